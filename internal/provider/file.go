package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	apperrors "oi-reversal/internal/errors"
	"oi-reversal/internal/models"
)

// FileProvider replays NSE-shaped option-chain captures from
// <dir>/<SYMBOL>.json.
type FileProvider struct {
	dir string
}

// NewFileProvider creates a provider reading from dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

// Name returns the provider name.
func (p *FileProvider) Name() string {
	return string(KindFile)
}

// Path returns the capture file used for symbol.
func (p *FileProvider) Path(symbol string) string {
	return filepath.Join(p.dir, CleanSymbol(symbol)+".json")
}

// Fetch reads and decodes the capture for symbol.
func (p *FileProvider) Fetch(ctx context.Context, symbol string) (*models.RawSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := os.ReadFile(p.Path(symbol))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no capture for %s in %s", apperrors.ErrSymbolNotFound, CleanSymbol(symbol), p.dir)
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read capture %s", p.Path(symbol))
	}

	return DecodeNSE(symbol, body)
}
