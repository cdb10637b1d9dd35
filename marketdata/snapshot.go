package marketdata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/meenmo/fxcurve/curve"
)

// SnapshotSource layers a Redis read-through snapshot over another Source.
//
// Fetched tenor tables and FX legs are mirrored to Redis under a short TTL,
// so several pricing processes sharing one Redis instance hit the external
// market-data session once per key instead of once per process. In-process
// freshness is still governed by the deriver's own caches; the snapshot TTL
// only bounds how long a mirrored fetch can be shared.
type SnapshotSource struct {
	src Source
	rdb *redis.Client
	ttl time.Duration
	log *logrus.Logger
}

// NewSnapshotSource wraps src with the Redis snapshot layer.
func NewSnapshotSource(src Source, rdb *redis.Client, ttl time.Duration, log *logrus.Logger) *SnapshotSource {
	return &SnapshotSource{src: src, rdb: rdb, ttl: ttl, log: log}
}

func (s *SnapshotSource) TenorRows(ctx context.Context, ticker string) ([]curve.Row, error) {
	key := "fxcurve:tenors:" + ticker

	var rows []curve.Row
	if s.load(ctx, key, &rows) {
		return rows, nil
	}

	rows, err := s.src.TenorRows(ctx, ticker)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

func (s *SnapshotSource) FxLeg(ctx context.Context, ticker string) (*FxLegQuote, error) {
	key := "fxcurve:leg:" + ticker

	var leg FxLegQuote
	if s.load(ctx, key, &leg) {
		return &leg, nil
	}

	fetched, err := s.src.FxLeg(ctx, ticker)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, fetched)
	return fetched, nil
}

// load reads a snapshot into dest. Redis trouble is logged and treated as a
// miss; the underlying source remains authoritative.
func (s *SnapshotSource) load(ctx context.Context, key string, dest any) bool {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("snapshot read failed")
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("snapshot decode failed")
		return false
	}
	return true
}

func (s *SnapshotSource) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("snapshot encode failed")
		return
	}
	if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("snapshot write failed")
	}
}
