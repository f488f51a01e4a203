// Package idempotency deduplicates sends that carry an Idempotency-Key.
//
// State lives in redis under "idempotency:<key>":
//
//	in_progress            a send holds the lock
//	completed:<messageId>  the send succeeded; replays get the same id
//
// A failed send releases the key so the caller can retry with it.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrAlreadyInProgress = errors.New("operation already in progress")
	ErrAlreadyCompleted  = errors.New("operation already completed")
	ErrInvalidState      = errors.New("invalid state")
)

type State string

const (
	StateNone       State = "none"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

func (s State) String() string {
	return string(s)
}

const completedPrefix = "completed:"

// Idempotency runs fn at most once per key and remembers its result.
type Idempotency interface {
	Exec(ctx context.Context, key string, fn func(context.Context) (string, error), opts ...Option) (string, error)
}

// backend is the subset of redis.Cmdable the tracker needs.
type backend interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// StateTracker implements Idempotency on redis.
type StateTracker struct {
	client backend
	prefix string
}

// New builds a StateTracker on a redis client (*redis.Client, *redis.ClusterClient, ...).
func New(client backend) *StateTracker {
	return &StateTracker{
		client: client,
		prefix: "idempotency:",
	}
}

const (
	defaultLockDuration = time.Minute
	defaultStateTTL     = 24 * time.Hour
)

type Option func(*execOptions)

type execOptions struct {
	lockDuration time.Duration
	stateTTL     time.Duration
}

// WithLockDuration bounds how long an in-flight send holds the key.
func WithLockDuration(d time.Duration) Option {
	return func(o *execOptions) {
		o.lockDuration = d
	}
}

// WithStateTTL sets how long a completed result is replayed.
func WithStateTTL(d time.Duration) Option {
	return func(o *execOptions) {
		o.stateTTL = d
	}
}

// Acquire tries to take the key. On StateCompleted the stored result is returned too.
func (s *StateTracker) Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, string, error) {
	fk := s.prefix + key

	acquired, err := s.client.SetNX(ctx, fk, StateInProgress.String(), lockDuration).Result()
	if err != nil {
		return StateError, "", err
	}
	if acquired {
		return StateNone, "", nil
	}

	value, err := s.client.Get(ctx, fk).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SetNX and Get
		acquired, err = s.client.SetNX(ctx, fk, StateInProgress.String(), lockDuration).Result()
		if err != nil {
			return StateError, "", err
		}
		if acquired {
			return StateNone, "", nil
		}
		return StateError, "", ErrInvalidState
	}
	if err != nil {
		return StateError, "", err
	}

	switch {
	case value == StateInProgress.String():
		return StateInProgress, "", nil
	case strings.HasPrefix(value, completedPrefix):
		return StateCompleted, strings.TrimPrefix(value, completedPrefix), nil
	default:
		return StateError, "", ErrInvalidState
	}
}

// MarkCompleted stores result under key for ttl.
func (s *StateTracker) MarkCompleted(ctx context.Context, key, result string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, completedPrefix+result, ttl).Err()
}

// Release forgets key.
func (s *StateTracker) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Exec runs fn once per key.
//
// A replay of a completed key returns the stored result with ErrAlreadyCompleted.
// A concurrent call returns ErrAlreadyInProgress. When fn fails the key is
// released and fn's error returned.
func (s *StateTracker) Exec(ctx context.Context, key string, fn func(context.Context) (string, error), opts ...Option) (string, error) {
	o := &execOptions{lockDuration: defaultLockDuration, stateTTL: defaultStateTTL}
	for _, opt := range opts {
		opt(o)
	}
	if o.lockDuration <= 0 {
		o.lockDuration = defaultLockDuration
	}
	if o.stateTTL <= 0 {
		o.stateTTL = defaultStateTTL
	}

	state, stored, err := s.Acquire(ctx, key, o.lockDuration)
	if err != nil {
		return "", err
	}

	switch state {
	case StateInProgress:
		return "", ErrAlreadyInProgress
	case StateCompleted:
		return stored, ErrAlreadyCompleted
	}

	result, err := fn(ctx)
	if err != nil {
		return "", errors.Join(err, s.Release(context.WithoutCancel(ctx), key))
	}

	if err := s.MarkCompleted(context.WithoutCancel(ctx), key, result, o.stateTTL); err != nil {
		return result, err
	}

	return result, nil
}
