package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "oi-reversal/internal/errors"
)

func fixture(t *testing.T) []byte {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("testdata", "NIFTY.json"))
	require.NoError(t, err)
	return body
}

func TestCleanSymbolAndIndex(t *testing.T) {
	assert.Equal(t, "RELIANCE", CleanSymbol(" reliance.ns "))
	assert.True(t, IsIndex("nifty", DefaultIndexSymbols))
	assert.True(t, IsIndex("BANKNIFTY.NS", DefaultIndexSymbols))
	assert.False(t, IsIndex("RELIANCE", DefaultIndexSymbols))
	// Exact match only; a stock containing an index name is still an equity.
	assert.False(t, IsIndex("NIFTYBEES", DefaultIndexSymbols))
}

func TestDecodeNSE(t *testing.T) {
	snap, err := DecodeNSE("NIFTY", fixture(t))
	require.NoError(t, err)

	assert.Equal(t, "NIFTY", snap.Symbol)
	assert.Equal(t, 25000.35, snap.SpotPrice)
	require.Len(t, snap.Strikes, 4, "later expiries are dropped")

	assert.Equal(t, 24900.0, snap.Strikes[0].Strike)
	assert.Equal(t, int64(1000), snap.Strikes[0].CallOI)
	assert.Equal(t, int64(100), snap.Strikes[0].PutOI)
	assert.Equal(t, int64(1500), snap.Strikes[0].CallVolume)

	// Missing CE leg decodes as zero call OI.
	assert.Zero(t, snap.Strikes[3].CallOI)
	assert.Equal(t, int64(40), snap.Strikes[3].PutOI)

	assert.Equal(t, 2025, snap.Timestamp.Year())
	assert.Equal(t, 15, snap.Timestamp.Hour())
}

func TestDecodeNSERejectsHTMLAndGarbage(t *testing.T) {
	_, err := DecodeNSE("NIFTY", []byte("<html>Access Denied</html>"))
	assert.ErrorIs(t, err, apperrors.ErrUnexpectedPayload)

	_, err = DecodeNSE("NIFTY", []byte("{not json"))
	assert.ErrorIs(t, err, apperrors.ErrUnexpectedPayload)

	_, err = DecodeNSE("NIFTY", []byte(`{}`))
	assert.ErrorIs(t, err, apperrors.ErrUnexpectedPayload)

	var dataErr *apperrors.DataError
	assert.ErrorAs(t, err, &dataErr)
}

func TestFileProvider(t *testing.T) {
	p := NewFileProvider("testdata")

	snap, err := p.Fetch(context.Background(), "nifty.ns")
	require.NoError(t, err)
	assert.Len(t, snap.Strikes, 4)

	_, err = p.Fetch(context.Background(), "TCS")
	assert.ErrorIs(t, err, apperrors.ErrSymbolNotFound)
}

func newTestNSE(t *testing.T, handler http.HandlerFunc) *NSEProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultNSEConfig()
	cfg.BaseURL = srv.URL
	cfg.RetryDelay = time.Millisecond
	cfg.Timeout = 2 * time.Second
	return NewNSEProvider(cfg)
}

func TestNSEProviderFetch(t *testing.T) {
	body := fixture(t)
	var bootstraps, apiCalls int32

	p := newTestNSE(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			atomic.AddInt32(&bootstraps, 1)
			http.SetCookie(w, &http.Cookie{Name: "nsit", Value: "abc"})
			w.Write([]byte("<html></html>"))
		case optionChainPage:
			w.Write([]byte("<html></html>"))
		case indexChainPath:
			n := atomic.AddInt32(&apiCalls, 1)
			if _, err := r.Cookie("nsit"); err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if r.URL.Query().Get("symbol") != "NIFTY" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if n == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(body)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	snap, err := p.Fetch(context.Background(), "NIFTY.NS")
	require.NoError(t, err)
	assert.Equal(t, 25000.35, snap.SpotPrice)
	assert.Equal(t, int32(2), atomic.LoadInt32(&apiCalls), "503 is retried")
	assert.Equal(t, int32(1), atomic.LoadInt32(&bootstraps))
	assert.Equal(t, CircuitClosed, p.Breaker().State())
}

func TestNSEProviderRefreshesSessionOnForbidden(t *testing.T) {
	body := fixture(t)
	var bootstraps, apiCalls int32

	p := newTestNSE(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			atomic.AddInt32(&bootstraps, 1)
		case optionChainPage:
		case equityChainPath:
			if atomic.AddInt32(&apiCalls, 1) == 1 {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Write(body)
		}
	})

	_, err := p.Fetch(context.Background(), "RELIANCE")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&bootstraps))
}

func TestNSEProviderNotFoundIsNotRetried(t *testing.T) {
	var apiCalls int32
	p := newTestNSE(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == equityChainPath {
			atomic.AddInt32(&apiCalls, 1)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	_, err := p.Fetch(context.Background(), "NOSUCH")
	assert.ErrorIs(t, err, apperrors.ErrSymbolNotFound)
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&apiCalls))
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	failure := errors.New("boom")
	require.NoError(t, cb.Allow())
	cb.Record(failure)
	require.NoError(t, cb.Allow())
	cb.Record(failure)

	assert.Equal(t, CircuitOpen, cb.State())
	assert.ErrorIs(t, cb.Allow(), apperrors.ErrProviderUnavailable)

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.Record(nil)
	assert.Equal(t, CircuitClosed, cb.State())
}
