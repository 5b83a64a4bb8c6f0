package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/phambaophuc/meal-analyzer/internal/models"
	"github.com/redis/go-redis/v9"
)

const historyKey = "meals:recent"

// Redis stores one hash per day and lets it expire after DayRetention.
type Redis struct {
	client *redis.Client
	clock  Clock
}

func NewRedis(client *redis.Client, clock Clock) *Redis {
	return &Redis{client: client, clock: clock}
}

func (r *Redis) Accumulate(ctx context.Context, totals models.Totals) error {
	key := dayKey(r.clock.today())

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrByFloat(ctx, key, "kcal", totals.Kcal)
		pipe.HIncrByFloat(ctx, key, "protein_g", totals.ProteinG)
		pipe.HIncrByFloat(ctx, key, "fat_g", totals.FatG)
		pipe.HIncrByFloat(ctx, key, "carb_g", totals.CarbG)
		pipe.HIncrBy(ctx, key, "count", 1)
		pipe.Expire(ctx, key, DayRetention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to accumulate totals: %w", err)
	}
	return nil
}

func (r *Redis) Today(ctx context.Context) (models.DailyStats, error) {
	date := r.clock.today()
	stats := models.DailyStats{Date: date}

	fields, err := r.client.HGetAll(ctx, dayKey(date)).Result()
	if err != nil {
		return stats, fmt.Errorf("failed to read daily stats: %w", err)
	}

	stats.Kcal = parseFloat(fields["kcal"])
	stats.ProteinG = parseFloat(fields["protein_g"])
	stats.FatG = parseFloat(fields["fat_g"])
	stats.CarbG = parseFloat(fields["carb_g"])
	stats.Count, _ = strconv.ParseInt(fields["count"], 10, 64)
	return stats, nil
}

func (r *Redis) Reset(ctx context.Context) error {
	return r.client.Del(ctx, dayKey(r.clock.today())).Err()
}

func (r *Redis) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

type RedisHistory struct {
	client *redis.Client
	limit  int64
}

func NewRedisHistory(client *redis.Client, limit int64) *RedisHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &RedisHistory{client: client, limit: limit}
}

func (h *RedisHistory) Record(ctx context.Context, event *models.AnalysisEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, historyKey, data)
		pipe.LTrim(ctx, historyKey, 0, h.limit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

func (h *RedisHistory) Recent(ctx context.Context, n int64) ([]models.AnalysisEvent, error) {
	if n <= 0 || n > h.limit {
		n = h.limit
	}

	raw, err := h.client.LRange(ctx, historyKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	events := make([]models.AnalysisEvent, 0, len(raw))
	for _, item := range raw {
		var event models.AnalysisEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
