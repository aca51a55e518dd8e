package presence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chatify-service/internal/apperr"
	"chatify-service/internal/models"
)

const (
	statusKeyPrefix   = "presence:status:"
	lastSeenKeyPrefix = "presence:last_seen:"
	aliveKeyPrefix    = "presence:alive:"
	registryKey       = "presence:users"

	statusOnline  = "online"
	statusOffline = "offline"
)

// Notifier receives every presence transition, including ones produced by
// the liveness sweeper.
type Notifier interface {
	PresenceChanged(ctx context.Context, record models.PresenceRecord)
}

// Tracker maintains online/offline state and last-seen timestamps in redis.
// Online state is backed by a TTL'd liveness marker so a session that stops
// heartbeating goes offline without an explicit logout.
type Tracker struct {
	client   *redis.Client
	ttl      time.Duration
	log      *zap.SugaredLogger
	notifier Notifier
}

// NewTracker constructs a Tracker. The notifier may be set later, before the
// first session attaches.
func NewTracker(client *redis.Client, ttl time.Duration, log *zap.SugaredLogger) *Tracker {
	return &Tracker{client: client, ttl: ttl, log: log}
}

// SetNotifier wires the fan-out sink for presence transitions.
func (t *Tracker) SetNotifier(n Notifier) {
	t.notifier = n
}

// SetOnline marks the user online, stamps last-seen and arms the liveness
// marker.
func (t *Tracker) SetOnline(ctx context.Context, userID string) (models.PresenceRecord, error) {
	now := time.Now().UTC()
	pipe := t.client.TxPipeline()
	pipe.Set(ctx, statusKeyPrefix+userID, statusOnline, 0)
	pipe.Set(ctx, lastSeenKeyPrefix+userID, now.Format(time.RFC3339Nano), 0)
	pipe.Set(ctx, aliveKeyPrefix+userID, "1", t.ttl)
	pipe.SAdd(ctx, registryKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return models.PresenceRecord{}, apperr.Wrap(apperr.CodeUnavailable, "presence store unavailable", err)
	}

	record := models.PresenceRecord{UserID: userID, IsOnline: true, LastSeenAt: now}
	t.emit(ctx, record)
	return record, nil
}

// SetOffline marks the user offline and stamps last-seen.
func (t *Tracker) SetOffline(ctx context.Context, userID string) (models.PresenceRecord, error) {
	now := time.Now().UTC()
	pipe := t.client.TxPipeline()
	pipe.Set(ctx, statusKeyPrefix+userID, statusOffline, 0)
	pipe.Set(ctx, lastSeenKeyPrefix+userID, now.Format(time.RFC3339Nano), 0)
	pipe.Del(ctx, aliveKeyPrefix+userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return models.PresenceRecord{}, apperr.Wrap(apperr.CodeUnavailable, "presence store unavailable", err)
	}

	record := models.PresenceRecord{UserID: userID, IsOnline: false, LastSeenAt: now}
	t.emit(ctx, record)
	return record, nil
}

// Heartbeat refreshes the liveness marker. A heartbeat from a user the
// tracker believes offline counts as a session start.
func (t *Tracker) Heartbeat(ctx context.Context, userID string) error {
	status, err := t.client.Get(ctx, statusKeyPrefix+userID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return apperr.Wrap(apperr.CodeUnavailable, "presence store unavailable", err)
	}
	if status != statusOnline {
		_, err := t.SetOnline(ctx, userID)
		return err
	}
	if err := t.client.Set(ctx, aliveKeyPrefix+userID, "1", t.ttl).Err(); err != nil {
		return apperr.Wrap(apperr.CodeUnavailable, "presence store unavailable", err)
	}
	return nil
}

// Get reads one user's presence record. Users never seen by the tracker read
// as offline with a zero last-seen.
func (t *Tracker) Get(ctx context.Context, userID string) (models.PresenceRecord, error) {
	record := models.PresenceRecord{UserID: userID}

	status, err := t.client.Get(ctx, statusKeyPrefix+userID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return models.PresenceRecord{}, apperr.Wrap(apperr.CodeUnavailable, "presence store unavailable", err)
	}
	record.IsOnline = status == statusOnline

	raw, err := t.client.Get(ctx, lastSeenKeyPrefix+userID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return models.PresenceRecord{}, apperr.Wrap(apperr.CodeUnavailable, "presence store unavailable", err)
	}
	if raw != "" {
		if parsed, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
			record.LastSeenAt = parsed
		}
	}
	return record, nil
}

// BulkGet reads presence for a set of users.
func (t *Tracker) BulkGet(ctx context.Context, userIDs []string) (map[string]models.PresenceRecord, error) {
	result := make(map[string]models.PresenceRecord, len(userIDs))
	for _, id := range userIDs {
		record, err := t.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		result[id] = record
	}
	return result, nil
}

// Sweep transitions every user whose liveness marker expired but whose
// status still reads online. Returns the number of users flipped offline.
func (t *Tracker) Sweep(ctx context.Context) (int, error) {
	userIDs, err := t.client.SMembers(ctx, registryKey).Result()
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeUnavailable, "presence store unavailable", err)
	}

	swept := 0
	for _, userID := range userIDs {
		status, err := t.client.Get(ctx, statusKeyPrefix+userID).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return swept, apperr.Wrap(apperr.CodeUnavailable, "presence store unavailable", err)
		}
		if status != statusOnline {
			continue
		}
		alive, err := t.client.Exists(ctx, aliveKeyPrefix+userID).Result()
		if err != nil {
			return swept, apperr.Wrap(apperr.CodeUnavailable, "presence store unavailable", err)
		}
		if alive > 0 {
			continue
		}
		if _, err := t.SetOffline(ctx, userID); err != nil {
			return swept, err
		}
		t.log.Infow("presence sweep: marked offline", "user_id", userID)
		swept++
	}
	return swept, nil
}

func (t *Tracker) emit(ctx context.Context, record models.PresenceRecord) {
	if t.notifier != nil {
		t.notifier.PresenceChanged(ctx, record)
	}
}
