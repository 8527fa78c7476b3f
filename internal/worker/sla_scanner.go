package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/voltdesk/maintenance-service/internal/config"
	"github.com/voltdesk/maintenance-service/internal/observability"
	"github.com/voltdesk/maintenance-service/internal/service"
)

const leaderLockKey = "sla:scanner:leader"

// releaseLockScript deletes the leader lock only while this instance still
// holds it, so a replica that acquired the lock after our TTL expired keeps
// its lock.
var releaseLockScript = redis.NewScript(
	`if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`)

// SlaScanner periodically sweeps open tickets and persists newly detected
// SLA breaches. It produces the same result as the lazy read-path check; the
// sweep only bounds detection latency for tickets nobody is looking at.
// When Redis is configured, a leader lock keeps concurrent replicas from
// scanning the same tickets at the same time.
type SlaScanner struct {
	tickets  *service.TicketService
	locker   *redis.Client
	cfg      config.SlaConfig
	logger   *zap.Logger
	metrics  *observability.Metrics
	instance string
}

// NewSlaScanner constructs the scanner. locker may be nil.
func NewSlaScanner(tickets *service.TicketService, locker *redis.Client, cfg config.SlaConfig, logger *zap.Logger, metrics *observability.Metrics, instance string) *SlaScanner {
	return &SlaScanner{
		tickets:  tickets,
		locker:   locker,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		instance: instance,
	}
}

// Run blocks until ctx is cancelled, sweeping every scan interval.
func (s *SlaScanner) Run(ctx context.Context) {
	interval := s.cfg.ScanInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("sla scanner started",
		zap.Duration("interval", interval),
		zap.Int("page_size", s.pageSize()))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sla scanner stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Exported so operators can trigger an
// immediate scan.
func (s *SlaScanner) RunOnce(ctx context.Context) {
	if !s.acquireLeadership(ctx) {
		s.logger.Debug("sla scan skipped, another instance holds the leader lock")
		return
	}
	defer s.releaseLeadership(ctx)

	start := time.Now()
	scanned, breached, failed := 0, 0, 0
	pageSize := s.pageSize()

	for offset := 0; ; offset += pageSize {
		refs, err := s.tickets.ListOpenTicketsForScan(ctx, pageSize, offset)
		if err != nil {
			s.logger.Error("sla scan page failed", zap.Int("offset", offset), zap.Error(err))
			break
		}
		if len(refs) == 0 {
			break
		}
		for _, ref := range refs {
			if ctx.Err() != nil {
				return
			}
			newlyBreached, err := s.tickets.RunBreachCheck(ctx, ref.TenantID, ref.TicketID)
			if err != nil {
				failed++
				s.logger.Warn("breach check failed",
					zap.String("tenant_id", ref.TenantID),
					zap.String("ticket_id", ref.TicketID),
					zap.Error(err))
				continue
			}
			scanned++
			if newlyBreached {
				breached++
			}
		}
		if len(refs) < pageSize {
			break
		}
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.ScanRuns.Inc()
		s.metrics.ScanDuration.Observe(elapsed.Seconds())
	}
	s.logger.Info("sla scan complete",
		zap.Int("scanned", scanned),
		zap.Int("newly_breached", breached),
		zap.Int("failed", failed),
		zap.Duration("elapsed", elapsed))
}

func (s *SlaScanner) pageSize() int {
	if s.cfg.ScanPageSize <= 0 {
		return 200
	}
	return s.cfg.ScanPageSize
}

func (s *SlaScanner) acquireLeadership(ctx context.Context) bool {
	if s.locker == nil {
		return true
	}
	ttl := s.cfg.ScanInterval()
	ok, err := s.locker.SetNX(ctx, leaderLockKey, s.instance, ttl).Result()
	if err != nil {
		s.logger.Warn("leader lock unavailable, scanning anyway", zap.Error(err))
		return true
	}
	return ok
}

func (s *SlaScanner) releaseLeadership(ctx context.Context) {
	if s.locker == nil {
		return
	}
	if err := releaseLockScript.Run(ctx, s.locker, []string{leaderLockKey}, s.instance).Err(); err != nil && err != redis.Nil {
		s.logger.Warn("leader lock release failed", zap.Error(err))
	}
}
