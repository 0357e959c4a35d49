package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sparkaj/sparkaj-api/internal/models"
	appErrors "github.com/sparkaj/sparkaj-api/pkg/errors"
)

// SessionRepository stores checkout sessions in Redis. Sessions expire on
// their own via the TTL; a successful checkout deletes eagerly.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRepository constructs a SessionRepository with the given TTL.
func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return "checkout:session:" + id
}

// Save writes the session, resetting its TTL.
func (r *SessionRepository) Save(ctx context.Context, session *models.CheckoutSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal checkout session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(session.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("save checkout session: %w", err)
	}
	return nil
}

// Find loads a session by id. An expired or unknown id maps to ErrNotFound.
func (r *SessionRepository) Find(ctx context.Context, id string) (*models.CheckoutSession, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find checkout session: %w", err)
	}
	var session models.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal checkout session: %w", err)
	}
	return &session, nil
}

// CompareAndSwapState transitions the session's state atomically. It returns
// false when the stored state no longer matches the expected one, which is
// how a concurrent confirm attempt is detected.
func (r *SessionRepository) CompareAndSwapState(ctx context.Context, id string, from, to models.CheckoutState) (bool, error) {
	key := sessionKey(id)
	var swapped bool
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return appErrors.ErrNotFound
			}
			return fmt.Errorf("load checkout session: %w", err)
		}
		var session models.CheckoutSession
		if err := json.Unmarshal(raw, &session); err != nil {
			return fmt.Errorf("unmarshal checkout session: %w", err)
		}
		if session.State != from {
			return nil
		}
		session.State = to
		session.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("marshal checkout session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, key)
	if err != nil {
		return false, err
	}
	return swapped, nil
}

// Delete removes a session eagerly.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete checkout session: %w", err)
	}
	return nil
}
