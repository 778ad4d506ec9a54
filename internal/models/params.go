package models

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	apperrors "oi-reversal/internal/errors"
)

// Strategy parameter names as persisted in the parameter table.
const (
	ParamOIRatioThreshold         = "oi_ratio_threshold"
	ParamProfitTargetPct          = "profit_target_pct"
	ParamMaxRiskPerTrade          = "max_risk_per_trade"
	ParamATMStrikesLimit          = "atm_strikes_limit"
	ParamMinConfidence            = "min_confidence"
	ParamOINormalizationThreshold = "oi_normalization_threshold"
)

// ParameterSpec describes one tunable threshold.
type ParameterSpec struct {
	Name        string
	Default     float64
	Min         float64
	Max         float64
	Integer     bool
	Description string
}

// ParameterSpecs lists every strategy parameter with its default and bounds.
var ParameterSpecs = []ParameterSpec{
	{ParamOIRatioThreshold, 2.0, 1.0, 100, false, "Minimum OI ratio for signal generation (Call OI > 2x Put OI)"},
	{ParamProfitTargetPct, 15.0, 0.1, 1000, false, "Profit target percentage for exit"},
	{ParamMaxRiskPerTrade, 2.0, 0.01, 100, false, "Maximum risk per trade as percentage of capital"},
	{ParamATMStrikesLimit, 6, 1, 100, true, "Number of strikes to consider around ATM"},
	{ParamMinConfidence, 70.0, 0, 100, false, "Minimum confidence level for trade execution"},
	{ParamOINormalizationThreshold, 1.5, 1.0, 100, false, "OI ratio threshold for normalization exit"},
}

// LookupParameter returns the definition of a named parameter.
func LookupParameter(name string) (ParameterSpec, bool) {
	for _, s := range ParameterSpecs {
		if s.Name == name {
			return s, true
		}
	}
	return ParameterSpec{}, false
}

// StrategyParameters holds the reversal strategy's tunable thresholds.
type StrategyParameters struct {
	OIRatioThreshold         float64 `json:"oi_ratio_threshold" mapstructure:"oi_ratio_threshold"`
	ProfitTargetPct          float64 `json:"profit_target_pct" mapstructure:"profit_target_pct"`
	MaxRiskPerTrade          float64 `json:"max_risk_per_trade" mapstructure:"max_risk_per_trade"`
	ATMStrikesLimit          int     `json:"atm_strikes_limit" mapstructure:"atm_strikes_limit"`
	MinConfidence            float64 `json:"min_confidence" mapstructure:"min_confidence"`
	OINormalizationThreshold float64 `json:"oi_normalization_threshold" mapstructure:"oi_normalization_threshold"`
}

// DefaultStrategyParameters returns the seeded defaults.
func DefaultStrategyParameters() StrategyParameters {
	return StrategyParameters{
		OIRatioThreshold:         2.0,
		ProfitTargetPct:          15.0,
		MaxRiskPerTrade:          2.0,
		ATMStrikesLimit:          6,
		MinConfidence:            70.0,
		OINormalizationThreshold: 1.5,
	}
}

// ParametersFromMap builds parameters from stored name/value pairs.
// Missing or unknown names fall back to defaults.
func ParametersFromMap(values map[string]float64) StrategyParameters {
	p := DefaultStrategyParameters()
	for name, v := range values {
		_ = p.Set(name, v)
	}
	return p
}

// AsMap returns the parameters keyed by persisted name.
func (p StrategyParameters) AsMap() map[string]float64 {
	return map[string]float64{
		ParamOIRatioThreshold:         p.OIRatioThreshold,
		ParamProfitTargetPct:          p.ProfitTargetPct,
		ParamMaxRiskPerTrade:          p.MaxRiskPerTrade,
		ParamATMStrikesLimit:          float64(p.ATMStrikesLimit),
		ParamMinConfidence:            p.MinConfidence,
		ParamOINormalizationThreshold: p.OINormalizationThreshold,
	}
}

// Names returns parameter names in stable order.
func (p StrategyParameters) Names() []string {
	names := make([]string, 0, len(ParameterSpecs))
	for name := range p.AsMap() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set validates and assigns a single parameter.
func (p *StrategyParameters) Set(name string, value float64) error {
	spec, ok := LookupParameter(name)
	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownParameter, name)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < spec.Min || value > spec.Max {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidParameter, apperrors.NewValidationError(name, value,
			fmt.Sprintf("must be between %g and %g", spec.Min, spec.Max)))
	}
	if spec.Integer && value != math.Trunc(value) {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidParameter,
			apperrors.NewValidationError(name, value, "must be a whole number"))
	}

	switch name {
	case ParamOIRatioThreshold:
		p.OIRatioThreshold = value
	case ParamProfitTargetPct:
		p.ProfitTargetPct = value
	case ParamMaxRiskPerTrade:
		p.MaxRiskPerTrade = value
	case ParamATMStrikesLimit:
		p.ATMStrikesLimit = int(value)
	case ParamMinConfidence:
		p.MinConfidence = value
	case ParamOINormalizationThreshold:
		p.OINormalizationThreshold = value
	}
	return nil
}

// SetString parses and assigns a parameter given as text.
func (p *StrategyParameters) SetString(name, raw string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", apperrors.ErrInvalidParameter,
			apperrors.NewValidationError(name, raw, "not a number"))
	}
	if err := p.Set(name, value); err != nil {
		return 0, err
	}
	return value, nil
}

// Validate checks every parameter against its bounds.
func (p StrategyParameters) Validate() error {
	scratch := DefaultStrategyParameters()
	for name, v := range p.AsMap() {
		if err := scratch.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}
