package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

func (db *PostgresDB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	return db.Pool.Ping(ctx)
}

// Close waits for acquired connections to be released
func (db *PostgresDB) Close() {
	if db.Pool == nil {
		return
	}
	db.Pool.Close()
	db.Pool = nil
	log.Info().Msg("PostgreSQL pool closed")
}

// PoolStats is a snapshot of pgxpool statistics
type PoolStats struct {
	MaxConns             int32
	TotalConns           int32
	IdleConns            int32
	AcquiredConns        int32
	AcquireCount         int64
	AcquireDuration      time.Duration
	CanceledAcquireCount int64
	EmptyAcquireCount    int64
}

func (db *PostgresDB) Stats() (*PoolStats, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	s := db.Pool.Stat()
	return &PoolStats{
		MaxConns:             s.MaxConns(),
		TotalConns:           s.TotalConns(),
		IdleConns:            s.IdleConns(),
		AcquiredConns:        s.AcquiredConns(),
		AcquireCount:         s.AcquireCount(),
		AcquireDuration:      s.AcquireDuration(),
		CanceledAcquireCount: s.CanceledAcquireCount(),
		EmptyAcquireCount:    s.EmptyAcquireCount(),
	}, nil
}

// AvgAcquireDuration is zero until the first acquire
func (s *PoolStats) AvgAcquireDuration() time.Duration {
	if s.AcquireCount == 0 {
		return 0
	}
	return s.AcquireDuration / time.Duration(s.AcquireCount)
}

// Utilization is the acquired share of MaxConns, in percent
func (s *PoolStats) Utilization() float64 {
	if s.MaxConns == 0 {
		return 0
	}
	return float64(s.AcquiredConns) / float64(s.MaxConns) * 100
}

// MonitorPoolHealth logs pool pressure every interval until ctx is done.
// Run it in its own goroutine.
func (db *PostgresDB) MonitorPoolHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := db.Stats()
			if err != nil {
				log.Warn().Err(err).Msg("Pool monitor: stats unavailable")
				continue
			}

			if pct := stats.Utilization(); pct > 80 {
				log.Warn().
					Float64("utilization_pct", pct).
					Int32("acquired", stats.AcquiredConns).
					Int32("max", stats.MaxConns).
					Msg("High pool utilization")
			}

			if avg := stats.AvgAcquireDuration(); avg > 100*time.Millisecond {
				log.Warn().Dur("avg_acquire", avg).Msg("High pool acquire latency")
			}

			if stats.AcquireCount > 0 && stats.CanceledAcquireCount > 0 {
				rate := float64(stats.CanceledAcquireCount) / float64(stats.AcquireCount) * 100
				if rate > 5 {
					log.Warn().Float64("cancel_rate_pct", rate).Msg("High pool acquire cancel rate")
				}
			}

		case <-ctx.Done():
			log.Debug().Msg("Pool monitor stopped")
			return
		}
	}
}
