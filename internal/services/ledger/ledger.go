// Package ledger keeps running nutrition totals per local day and a short
// history of recent analyses.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/phambaophuc/meal-analyzer/internal/config"
	"github.com/phambaophuc/meal-analyzer/internal/errs"
	"github.com/phambaophuc/meal-analyzer/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	statsPrefix = "stats:"
	dateLayout  = "2006-01-02"

	// DayRetention keeps yesterday's row readable around midnight.
	DayRetention = 48 * time.Hour

	DefaultHistoryLimit = 50
)

type Ledger interface {
	Accumulate(ctx context.Context, totals models.Totals) error
	Today(ctx context.Context) (models.DailyStats, error)
	Reset(ctx context.Context) error
	Health(ctx context.Context) error
}

// History is a capped, newest-first list of analysis events.
type History interface {
	Record(ctx context.Context, event *models.AnalysisEvent) error
	Recent(ctx context.Context, n int64) ([]models.AnalysisEvent, error)
}

// Clock maps instants to ledger days.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func (c Clock) today() string {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc).Format(dateLayout)
}

func dayKey(date string) string {
	return statsPrefix + date
}

// New builds the ledger and history for the configured backend.
func New(cfg *config.Config, client *redis.Client) (Ledger, History, error) {
	clock := Clock{Location: cfg.Storage.LedgerLocation}
	limit := cfg.Storage.HistoryLimit

	switch cfg.Storage.LedgerBackend {
	case "memory":
		return NewMemory(clock), NewMemoryHistory(limit), nil
	case "redis":
		if client == nil {
			return nil, nil, fmt.Errorf("redis ledger needs a redis client")
		}
		return NewRedis(client, clock), NewRedisHistory(client, limit), nil
	default:
		return nil, nil, fmt.Errorf("%w: ledger %q", errs.ErrInvalidBackend, cfg.Storage.LedgerBackend)
	}
}
