// Package kv provides the string-keyed persistence layer. Values are
// opaque strings; callers store JSON documents under well-known keys.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Store is the minimal contract every backend satisfies. Get reports
// absence via the boolean rather than an error so callers can treat a
// missing key as an empty collection.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// GetList loads a JSON array stored under key. An absent key yields an
// empty slice. A value that fails to decode also yields an empty slice:
// corrupt payloads must degrade to empty collections, never abort reads.
func GetList[T any](ctx context.Context, s Store, key string) ([]T, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if !ok || raw == "" {
		return []T{}, nil
	}
	var list []T
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		slog.WarnContext(ctx, "Discarding malformed list value", "key", key, "error", err)
		return []T{}, nil
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

// SetList persists a slice as a JSON array under key.
func SetList[T any](ctx context.Context, s Store, key string, list []T) error {
	if list == nil {
		list = []T{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// GetJSON loads a single JSON document under key. Absence and corrupt
// payloads both report ok=false.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var zero T
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return zero, false, fmt.Errorf("get %s: %w", key, err)
	}
	if !ok || raw == "" {
		return zero, false, nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		slog.WarnContext(ctx, "Discarding malformed value", "key", key, "error", err)
		return zero, false, nil
	}
	return v, true, nil
}

// SetJSON persists a single JSON document under key.
func SetJSON[T any](ctx context.Context, s Store, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
