package events

import (
	"context"
	"encoding/json"

	"verdant-backend/internal/domain"
	"verdant-backend/internal/pkg/clock"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultChannel is the redis channel events are broadcast on.
const DefaultChannel = "ledger.events"

// Recorder appends structured notifications to the event journal and, after
// commit, broadcasts them over redis. The journal row commits with the
// mutation; the broadcast is fire-and-forget.
type Recorder struct {
	DB      *gorm.DB
	Rdb     *redis.Client
	Channel string
	Clock   clock.Clock
}

func (r *Recorder) now() clock.Clock {
	if r.Clock != nil {
		return r.Clock
	}
	return clock.System{}
}

// Append writes one event row inside tx and returns it for broadcast after
// the transaction commits.
func (r *Recorder) Append(tx *gorm.DB, name string, fields map[string]interface{}) (*domain.LedgerEvent, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	ev := &domain.LedgerEvent{
		Name:      name,
		Payload:   datatypes.JSON(payload),
		EmittedAt: r.now().Now(),
	}
	if err := tx.Create(ev).Error; err != nil {
		return nil, err
	}
	return ev, nil
}

// Broadcast publishes committed events to the redis channel. Delivery is not
// part of the atomicity guarantee; failures are logged and swallowed.
func (r *Recorder) Broadcast(ctx context.Context, evs ...*domain.LedgerEvent) {
	if r.Rdb == nil {
		return
	}
	channel := r.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		msg, err := json.Marshal(map[string]interface{}{
			"event_id":   ev.EventID.String(),
			"name":       ev.Name,
			"payload":    json.RawMessage(ev.Payload),
			"emitted_at": ev.EmittedAt,
		})
		if err != nil {
			log.Warn().Err(err).Str("event", ev.Name).Msg("event broadcast marshal failed")
			continue
		}
		if err := r.Rdb.Publish(ctx, channel, msg).Err(); err != nil {
			log.Warn().Err(err).Str("event", ev.Name).Msg("event broadcast failed")
		}
	}
}

// ListEvents returns journaled events, newest first, optionally filtered by
// name. Unset limits default to 100; oversized ones clamp to 500.
func (r *Recorder) ListEvents(ctx context.Context, name string, limit int) ([]domain.LedgerEvent, error) {
	q := r.DB.WithContext(ctx).Order("emitted_at DESC").Limit(clampLimit(limit))
	if name != "" {
		q = q.Where("name = ?", name)
	}
	var evs []domain.LedgerEvent
	if err := q.Find(&evs).Error; err != nil {
		return nil, err
	}
	return evs, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 500:
		return 500
	default:
		return limit
	}
}
