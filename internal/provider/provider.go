// Package provider fetches raw options-chain snapshots. Retry, session and
// rate-limit handling live here so the strategy only sees a snapshot or an
// error.
package provider

import (
	"context"
	"fmt"
	"strings"

	"oi-reversal/internal/models"
)

// SnapshotProvider returns one raw options-chain capture for a symbol.
type SnapshotProvider interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (*models.RawSnapshot, error)
}

// DefaultIndexSymbols are the NSE indices with index option chains.
var DefaultIndexSymbols = []string{"NIFTY", "BANKNIFTY", "FINNIFTY", "MIDCPNIFTY"}

// CleanSymbol strips the Yahoo-style ".NS" suffix and upper-cases.
func CleanSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	return strings.TrimSuffix(s, ".NS")
}

// IsIndex reports whether symbol is one of indices.
func IsIndex(symbol string, indices []string) bool {
	s := CleanSymbol(symbol)
	for _, idx := range indices {
		if strings.EqualFold(s, idx) {
			return true
		}
	}
	return false
}

// Kind names a provider implementation.
type Kind string

const (
	KindNSE  Kind = "nse"
	KindFile Kind = "file"
)

// Options configures New.
type Options struct {
	Kind         Kind
	NSE          NSEConfig
	SnapshotDir  string
	IndexSymbols []string
}

// New builds the provider named by opts.Kind.
func New(opts Options) (SnapshotProvider, error) {
	switch opts.Kind {
	case KindNSE, "":
		cfg := opts.NSE
		if len(cfg.IndexSymbols) == 0 {
			cfg.IndexSymbols = opts.IndexSymbols
		}
		return NewNSEProvider(cfg), nil
	case KindFile:
		if opts.SnapshotDir == "" {
			return nil, fmt.Errorf("file provider requires a snapshot directory")
		}
		return NewFileProvider(opts.SnapshotDir), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", opts.Kind)
	}
}
