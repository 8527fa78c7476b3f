package sla

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/voltdesk/maintenance-service/internal/domain"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// PolicyStore is the persistence contract the resolver needs. Lookups return
// (nil, nil) when no row matches.
type PolicyStore interface {
	FindActivePolicy(ctx context.Context, tenantID string, category domain.TicketCategory, priority domain.TicketPriority) (*domain.SlaPolicy, error)
	FindCategoryDefault(ctx context.Context, tenantID string, category domain.TicketCategory) (*domain.SlaPolicy, error)
}

// Resolver performs the deterministic policy lookup: exact
// (category, priority) match first, then the tenant's per-category default.
// A missing default is a tenant configuration error surfaced as
// POLICY_NOT_FOUND, never silently defaulted.
type Resolver struct {
	store  PolicyStore
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewResolver builds a resolver. cache may be nil, in which case every
// resolution hits the store.
func NewResolver(store PolicyStore, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *Resolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{store: store, cache: cache, ttl: ttl, logger: logger}
}

// Resolve returns the SLA policy applicable to the given tenant, category and
// priority.
func (r *Resolver) Resolve(ctx context.Context, tenantID string, category domain.TicketCategory, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	key := cacheKey(tenantID, category, priority)
	if cached := r.fromCache(ctx, key); cached != nil {
		return cached, nil
	}

	policy, err := r.store.FindActivePolicy(ctx, tenantID, category, priority)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if policy == nil {
		policy, err = r.store.FindCategoryDefault(ctx, tenantID, category)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	if policy == nil {
		return nil, apperrors.NewPolicyNotFound(map[string]any{
			"category": category,
			"priority": priority,
		})
	}

	r.toCache(ctx, key, policy)
	return policy, nil
}

// Invalidate drops the cached entry for one (category, priority) cell. The
// short TTL covers default-fallback entries that resolved through other keys.
func (r *Resolver) Invalidate(ctx context.Context, tenantID string, category domain.TicketCategory, priority domain.TicketPriority) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Del(ctx, cacheKey(tenantID, category, priority)).Err(); err != nil {
		r.logger.Warn("sla policy cache invalidation failed", zap.Error(err))
	}
}

func (r *Resolver) fromCache(ctx context.Context, key string) *domain.SlaPolicy {
	if r.cache == nil {
		return nil
	}
	raw, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("sla policy cache read failed", zap.Error(err))
		}
		return nil
	}
	var policy domain.SlaPolicy
	if err := json.Unmarshal(raw, &policy); err != nil {
		return nil
	}
	return &policy
}

func (r *Resolver) toCache(ctx context.Context, key string, policy *domain.SlaPolicy) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(policy)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("sla policy cache write failed", zap.Error(err))
	}
}

func cacheKey(tenantID string, category domain.TicketCategory, priority domain.TicketPriority) string {
	return fmt.Sprintf("sla:policy:%s:%s:%s", tenantID, category, priority)
}
