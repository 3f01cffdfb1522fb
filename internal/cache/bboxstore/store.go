// Package bboxstore shares reprojected bounding boxes between service
// instances through Redis.
package bboxstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mohammed-shakir/crs-cache/internal/cache/redisstore"
	"github.com/mohammed-shakir/crs-cache/internal/core/model"
)

type Store interface {
	Get(ctx context.Context, key string) (model.BBox, bool, error)
	Put(ctx context.Context, key string, bb model.BBox) error
	Ping(ctx context.Context) error
}

type record struct {
	X1  float64 `json:"x1"`
	Y1  float64 `json:"y1"`
	X2  float64 `json:"x2"`
	Y2  float64 `json:"y2"`
	CRS string  `json:"crs"`
}

type redisStore struct {
	cli *redisstore.Client
	ttl time.Duration
}

// NewRedisStore stores entries with ttl; zero keeps them until evicted by
// Redis.
func NewRedisStore(cli *redisstore.Client, ttl time.Duration) Store {
	return &redisStore{cli: cli, ttl: ttl}
}

func (s *redisStore) Get(ctx context.Context, key string) (model.BBox, bool, error) {
	raw, found, err := s.cli.Get(ctx, key)
	if err != nil || !found {
		return model.BBox{}, false, err
	}
	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.BBox{}, false, fmt.Errorf("bboxstore decode %q: %w", key, err)
	}
	return model.BBox{X1: r.X1, Y1: r.Y1, X2: r.X2, Y2: r.Y2, CRS: r.CRS}, true, nil
}

func (s *redisStore) Put(ctx context.Context, key string, bb model.BBox) error {
	raw, err := json.Marshal(record{X1: bb.X1, Y1: bb.Y1, X2: bb.X2, Y2: bb.Y2, CRS: bb.CRS})
	if err != nil {
		return fmt.Errorf("bboxstore encode: %w", err)
	}
	if err := s.cli.Set(ctx, key, raw, s.ttl); err != nil {
		return fmt.Errorf("bboxstore put: %w", err)
	}
	return nil
}

func (s *redisStore) Ping(ctx context.Context) error { return s.cli.Ping(ctx) }
