package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	apperrors "oi-reversal/internal/errors"
	"oi-reversal/internal/logging"
	"oi-reversal/internal/models"
	"oi-reversal/pkg/utils"
)

// DefaultNSEBaseURL is the public NSE site.
const DefaultNSEBaseURL = "https://www.nseindia.com"

const (
	indexChainPath  = "/api/option-chain-indices"
	equityChainPath = "/api/option-chain-equities"
	optionChainPage = "/option-chain"
)

// errTransient marks failures worth retrying: network errors, 429 and 5xx.
var errTransient = errors.New("transient upstream error")

// browserHeaders mimic a desktop browser; NSE rejects bare API clients.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.9",
	"DNT":             "1",
	"Connection":      "keep-alive",
	"Cache-Control":   "max-age=0",
}

// NSEConfig configures the NSE option-chain provider.
type NSEConfig struct {
	BaseURL          string
	Timeout          time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
	IndexSymbols     []string
	BreakerThreshold int
	BreakerCooldown  time.Duration
	Logger           zerolog.Logger
}

// DefaultNSEConfig returns production defaults.
func DefaultNSEConfig() NSEConfig {
	return NSEConfig{
		BaseURL:          DefaultNSEBaseURL,
		Timeout:          20 * time.Second,
		MaxRetries:       3,
		RetryDelay:       3 * time.Second,
		IndexSymbols:     DefaultIndexSymbols,
		BreakerThreshold: 5,
		BreakerCooldown:  5 * time.Minute,
		Logger:           zerolog.Nop(),
	}
}

// NSEProvider fetches option chains from the NSE public API. It bootstraps
// a cookie session from the site pages before the first API call and again
// after a 401/403 or an HTML error page.
type NSEProvider struct {
	client       *resty.Client
	cfg          NSEConfig
	breaker      *CircuitBreaker
	logger       zerolog.Logger
	sessionReady bool
}

// NewNSEProvider creates an NSE provider. Zero fields take defaults.
func NewNSEProvider(cfg NSEConfig) *NSEProvider {
	def := DefaultNSEConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if len(cfg.IndexSymbols) == 0 {
		cfg.IndexSymbols = def.IndexSymbols
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = def.BreakerCooldown
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetHeaders(browserHeaders)
	client.SetHeader("Referer", strings.TrimRight(cfg.BaseURL, "/")+"/")

	return &NSEProvider{
		client:  client,
		cfg:     cfg,
		breaker: NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		logger:  cfg.Logger.With().Str("component", "nse").Logger(),
	}
}

// Name returns the provider name.
func (p *NSEProvider) Name() string {
	return string(KindNSE)
}

// Breaker exposes the provider's circuit breaker.
func (p *NSEProvider) Breaker() *CircuitBreaker {
	return p.breaker
}

// Fetch returns the nearest-expiry option chain for symbol.
func (p *NSEProvider) Fetch(ctx context.Context, symbol string) (*models.RawSnapshot, error) {
	sym := CleanSymbol(symbol)
	if sym == "" {
		return nil, apperrors.NewValidationError("symbol", symbol, "must not be empty")
	}
	if err := p.breaker.Allow(); err != nil {
		return nil, err
	}

	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = p.cfg.MaxRetries
	retry.InitialDelay = p.cfg.RetryDelay
	retry.MaxDelay = 30 * time.Second
	retry.RetryableErrors = []error{errTransient, apperrors.ErrSessionRejected}
	retry.OnRetry = func(attempt int, err error, delay time.Duration) {
		p.logger.Warn().Err(err).Str("symbol", sym).Int("attempt", attempt).
			Dur("backoff", delay).Msg("Option chain fetch failed, retrying")
	}

	snap, err := utils.RetryWithResult(ctx, retry, func() (*models.RawSnapshot, error) {
		return p.fetchOnce(ctx, sym)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, apperrors.ErrSymbolNotFound) {
			p.breaker.Record(err)
		}
		return nil, fmt.Errorf("%w: %s: %w", apperrors.ErrProviderUnavailable, sym, err)
	}

	p.breaker.Record(nil)
	return snap, nil
}

func (p *NSEProvider) fetchOnce(ctx context.Context, sym string) (*models.RawSnapshot, error) {
	if !p.sessionReady {
		if err := p.bootstrap(ctx); err != nil {
			return nil, err
		}
	}

	path := equityChainPath
	referer := fmt.Sprintf("%s/get-quotes/derivatives?symbol=%s", p.cfg.BaseURL, sym)
	if IsIndex(sym, p.cfg.IndexSymbols) {
		path = indexChainPath
		referer = p.cfg.BaseURL + optionChainPage
	}

	start := time.Now()
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", sym).
		SetHeader("Referer", referer).
		Get(path)
	logging.LogAPICall(p.logger, http.MethodGet, path, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTransient, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		p.sessionReady = false
		return nil, fmt.Errorf("%w: status %d", apperrors.ErrSessionRejected, code)
	case code == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrSymbolNotFound, sym)
	case code == http.StatusTooManyRequests || code >= 500:
		return nil, fmt.Errorf("%w: status %d", errTransient, code)
	case code != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", apperrors.ErrUnexpectedPayload, code)
	}

	if strings.Contains(strings.ToLower(resp.Header().Get("Content-Type")), "text/html") {
		// An HTML page on the API path means the session was not accepted.
		p.sessionReady = false
		return nil, fmt.Errorf("%w: HTML response", apperrors.ErrSessionRejected)
	}

	return DecodeNSE(sym, resp.Body())
}

// bootstrap visits the home and option-chain pages to collect cookies.
func (p *NSEProvider) bootstrap(ctx context.Context) error {
	for _, page := range []string{"/", optionChainPage} {
		resp, err := p.client.R().
			SetContext(ctx).
			SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
			Get(page)
		if err != nil {
			return fmt.Errorf("%w: session bootstrap: %v", errTransient, err)
		}
		if resp.StatusCode() != http.StatusOK {
			return fmt.Errorf("%w: session bootstrap %s returned %d", apperrors.ErrSessionRejected, page, resp.StatusCode())
		}
	}

	p.sessionReady = true
	p.logger.Debug().Msg("NSE session initialized")
	return nil
}
