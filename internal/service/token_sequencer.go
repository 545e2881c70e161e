package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"emergency-triage/internal/domain/repository"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// =============================================================================
// Scripts & Constants
// =============================================================================

// TokenSequenceKey holds the last display token handed out.
const TokenSequenceKey = "triage:token:seq"

const tokenRedisTimeout = 500 * time.Millisecond

// nextTokenScript raises the counter to ARGV[1] when it lags behind (a flushed
// redis, or tokens issued locally while redis was down) and then increments.
// Both steps run atomically, so two stations never share a token.
var nextTokenScript = redis.NewScript(`
	local floor = tonumber(ARGV[1])
	local current = tonumber(redis.call('GET', KEYS[1]) or '0')
	if current < floor then
		redis.call('SET', KEYS[1], floor)
	end
	return redis.call('INCR', KEYS[1])
`)

// raiseTokenScript never lowers the counter.
var raiseTokenScript = redis.NewScript(`
	local floor = tonumber(ARGV[1])
	local current = tonumber(redis.call('GET', KEYS[1]) or '0')
	if current < floor then
		redis.call('SET', KEYS[1], floor)
		return floor
	end
	return current
`)

// =============================================================================
// TokenSequencer
// =============================================================================

// TokenSequencer issues globally increasing display tokens. Redis is the
// shared counter; the process keeps a high-water mark so that tokens stay
// monotonic when redis is unreachable.
type TokenSequencer struct {
	db          *gorm.DB
	redisClient *redis.Client
	log         *logrus.Logger
	patientRepo repository.PatientRepository

	highWater atomic.Int64
}

// NewTokenSequencer creates a sequencer. redisClient may be nil for a
// single-instance deployment.
func NewTokenSequencer(db *gorm.DB, redisClient *redis.Client, log *logrus.Logger, patientRepo repository.PatientRepository) *TokenSequencer {
	return &TokenSequencer{
		db:          db,
		redisClient: redisClient,
		log:         log,
		patientRepo: patientRepo,
	}
}

// SyncOnStartup lifts the counter to MAX(token_number) from the database.
// Should be called BEFORE accepting traffic.
func (s *TokenSequencer) SyncOnStartup(ctx context.Context) error {
	maxToken, err := s.patientRepo.MaxTokenNumber(ctx, s.db)
	if err != nil {
		s.log.Warnf("Failed to read max token number: %+v", err)
		return fmt.Errorf("read max token number: %w", err)
	}
	s.observe(maxToken)

	if s.redisClient == nil {
		s.log.Infof("Token sequence seeded locally at %d", maxToken)
		return nil
	}

	current, err := raiseTokenScript.Run(ctx, s.redisClient, []string{TokenSequenceKey}, maxToken).Int64()
	if err != nil {
		s.log.Warnf("Failed to sync token sequence to Redis: %+v", err)
		return fmt.Errorf("lua raise token sequence: %w", err)
	}
	s.observe(current)

	s.log.Infof("Token sequence synced: db_max=%d, redis=%d", maxToken, current)
	return nil
}

// Next returns the next token.
func (s *TokenSequencer) Next(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if s.redisClient != nil {
		rctx, cancel := context.WithTimeout(ctx, tokenRedisTimeout)
		token, err := nextTokenScript.Run(rctx, s.redisClient, []string{TokenSequenceKey}, s.highWater.Load()).Int64()
		cancel()
		if err == nil {
			s.observe(token)
			return token, nil
		}
		s.log.Warnf("Redis token sequence unavailable, issuing locally: %+v", err)
	}

	return s.highWater.Add(1), nil
}

func (s *TokenSequencer) observe(token int64) {
	for {
		current := s.highWater.Load()
		if token <= current || s.highWater.CompareAndSwap(current, token) {
			return
		}
	}
}
