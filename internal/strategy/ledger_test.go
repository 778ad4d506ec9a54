package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "oi-reversal/internal/errors"
	"oi-reversal/internal/models"
	"oi-reversal/internal/store"
)

// memLedger is an in-memory store.Ledger for engine tests.
type memLedger struct {
	mu sync.Mutex

	snapshots    int
	signals      []models.Signal
	fingerprints map[string]bool
	positions    []models.Position
	rollups      map[string]models.PerformanceSnapshot
	params       map[string]float64

	failSaveSignal    error
	failOpenPosition  error
	failClosePosition error
}

var _ store.Ledger = (*memLedger)(nil)

func newMemLedger() *memLedger {
	return &memLedger{
		fingerprints: make(map[string]bool),
		rollups:      make(map[string]models.PerformanceSnapshot),
		params:       models.DefaultStrategyParameters().AsMap(),
	}
}

func (m *memLedger) SaveMarketData(_ context.Context, _ *models.Snapshot) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots++
	return int64(m.snapshots), nil
}

func (m *memLedger) SaveSignal(_ context.Context, sig *models.Signal) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaveSignal != nil {
		return 0, m.failSaveSignal
	}
	if sig.Fingerprint != "" {
		if m.fingerprints[sig.Fingerprint] {
			return 0, fmt.Errorf("%w: %s", apperrors.ErrDuplicateSignal, sig.Fingerprint)
		}
		m.fingerprints[sig.Fingerprint] = true
	}
	s := *sig
	s.ID = int64(len(m.signals) + 1)
	m.signals = append(m.signals, s)
	return s.ID, nil
}

func (m *memLedger) UpdateSignalStatus(_ context.Context, id int64, status models.SignalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || int(id) > len(m.signals) {
		return errors.New("no such signal")
	}
	m.signals[id-1].Status = status
	return nil
}

func (m *memLedger) GetRecentSignals(_ context.Context, filter store.SignalFilter) ([]models.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Signal
	for i := len(m.signals) - 1; i >= 0; i-- {
		out = append(out, m.signals[i])
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memLedger) OpenPosition(_ context.Context, pos *models.Position) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOpenPosition != nil {
		return 0, m.failOpenPosition
	}
	p := *pos
	p.ID = int64(len(m.positions) + 1)
	p.Exit = nil
	m.positions = append(m.positions, p)
	return p.ID, nil
}

func (m *memLedger) ClosePosition(_ context.Context, id int64, exit models.PositionExit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failClosePosition != nil {
		return m.failClosePosition
	}
	if id < 1 || int(id) > len(m.positions) {
		return apperrors.ErrPositionNotFound
	}
	if m.positions[id-1].Exit != nil {
		return apperrors.ErrPositionClosed
	}
	e := exit
	m.positions[id-1].Exit = &e
	return nil
}

func (m *memLedger) GetPosition(_ context.Context, id int64) (*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || int(id) > len(m.positions) {
		return nil, apperrors.ErrPositionNotFound
	}
	p := m.positions[id-1]
	return &p, nil
}

func (m *memLedger) GetOpenPositions(_ context.Context, symbol string) ([]models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Position
	for _, p := range m.positions {
		if p.Exit == nil && (symbol == "" || p.Symbol == symbol) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memLedger) GetClosedPositions(_ context.Context, filter store.PositionFilter) ([]models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Position
	for _, p := range m.positions {
		if p.Exit == nil || p.Exit.Time.Before(filter.Since) {
			continue
		}
		if filter.Symbol != "" && p.Symbol != filter.Symbol {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Exit.Time.Before(out[j].Exit.Time) })
	return out, nil
}

func (m *memLedger) UpsertDailyPerformance(_ context.Context, date time.Time, perf models.PerformanceSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollups[date.Format("2006-01-02")] = perf
	return nil
}

func (m *memLedger) GetPnLHistory(context.Context, int) ([]models.PnLPoint, error) {
	return nil, nil
}

func (m *memLedger) GetParameters(context.Context) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.params))
	for k, v := range m.params {
		out[k] = v
	}
	return out, nil
}

func (m *memLedger) UpdateParameter(_ context.Context, name string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := models.LookupParameter(name); !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownParameter, name)
	}
	m.params[name] = value
	return nil
}

func (m *memLedger) Close() error { return nil }

// recordingNotifier counts notifier calls.
type recordingNotifier struct {
	mu        sync.Mutex
	opened    int
	closed    int
	summaries int
	errs      []string
}

func (n *recordingNotifier) SendPositionOpened(context.Context, *models.Position, *models.Signal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.opened++
	return nil
}

func (n *recordingNotifier) SendPositionClosed(context.Context, *models.Position) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed++
	return nil
}

func (n *recordingNotifier) SendCycleSummary(context.Context, []models.CycleResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries++
	return nil
}

func (n *recordingNotifier) SendError(_ context.Context, _ error, errContext string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, errContext)
	return nil
}
