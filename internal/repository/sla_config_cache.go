package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-service/internal/domain"
)

const slaConfigKeyPrefix = "sla-config:"

// negative-cache marker so agencies without a configuration don't hit
// postgres on every issue creation
const slaConfigAbsent = "absent"

// cachedConfigProvider is a read-through Redis cache in front of another
// AgencyConfigProvider. Cache failures degrade to the inner provider.
type cachedConfigProvider struct {
	inner  AgencyConfigProvider
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedConfigProvider wraps a provider with Redis caching.
func NewCachedConfigProvider(inner AgencyConfigProvider, client *redis.Client, ttl time.Duration, logger *zap.Logger) AgencyConfigProvider {
	if client == nil {
		return inner
	}
	return &cachedConfigProvider{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (p *cachedConfigProvider) GetSLAConfiguration(ctx context.Context, agencyID string) (*domain.SLAConfiguration, error) {
	key := slaConfigKeyPrefix + agencyID

	raw, err := p.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if raw == slaConfigAbsent {
			return nil, nil
		}
		var cfg domain.SLAConfiguration
		if unmarshalErr := json.Unmarshal([]byte(raw), &cfg); unmarshalErr == nil {
			return &cfg, nil
		}
		// fall through to the inner provider on a corrupt entry
	case !errors.Is(err, redis.Nil):
		p.logger.Warn("sla config cache read failed", zap.String("agency_id", agencyID), zap.Error(err))
	}

	cfg, err := p.inner.GetSLAConfiguration(ctx, agencyID)
	if err != nil {
		return nil, err
	}

	payload := slaConfigAbsent
	if cfg != nil {
		encoded, marshalErr := json.Marshal(cfg)
		if marshalErr != nil {
			return cfg, nil
		}
		payload = string(encoded)
	}
	if setErr := p.client.Set(ctx, key, payload, p.ttl).Err(); setErr != nil {
		p.logger.Warn("sla config cache write failed", zap.String("agency_id", agencyID), zap.Error(setErr))
	}
	return cfg, nil
}
