package ledger

import (
	"context"
	"sync"

	"github.com/phambaophuc/meal-analyzer/internal/models"
)

type Memory struct {
	clock Clock

	mu   sync.Mutex
	days map[string]models.DailyStats
}

func NewMemory(clock Clock) *Memory {
	return &Memory{clock: clock, days: make(map[string]models.DailyStats)}
}

func (m *Memory) Accumulate(ctx context.Context, totals models.Totals) error {
	date := m.clock.today()

	m.mu.Lock()
	defer m.mu.Unlock()

	day := m.days[date]
	day.Date = date
	day.Kcal += totals.Kcal
	day.ProteinG += totals.ProteinG
	day.FatG += totals.FatG
	day.CarbG += totals.CarbG
	day.Count++
	m.days[date] = day

	// earlier days are never read again
	for d := range m.days {
		if d != date {
			delete(m.days, d)
		}
	}
	return nil
}

func (m *Memory) Today(ctx context.Context) (models.DailyStats, error) {
	date := m.clock.today()

	m.mu.Lock()
	defer m.mu.Unlock()

	day, ok := m.days[date]
	if !ok {
		return models.DailyStats{Date: date}, nil
	}
	return day, nil
}

func (m *Memory) Reset(ctx context.Context) error {
	date := m.clock.today()

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.days, date)
	return nil
}

func (m *Memory) Health(ctx context.Context) error {
	return nil
}

type MemoryHistory struct {
	limit int64

	mu     sync.Mutex
	events []models.AnalysisEvent
}

func NewMemoryHistory(limit int64) *MemoryHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MemoryHistory{limit: limit}
}

func (h *MemoryHistory) Record(ctx context.Context, event *models.AnalysisEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events = append([]models.AnalysisEvent{*event}, h.events...)
	if int64(len(h.events)) > h.limit {
		h.events = h.events[:h.limit]
	}
	return nil
}

func (h *MemoryHistory) Recent(ctx context.Context, n int64) ([]models.AnalysisEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 || n > int64(len(h.events)) {
		n = int64(len(h.events))
	}
	out := make([]models.AnalysisEvent, n)
	copy(out, h.events[:n])
	return out, nil
}
