package metrics

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	redisc "github.com/pagemind/core/internal/pkg/redis"
	"github.com/pagemind/core/internal/pkg/response"
	"go.uber.org/zap"
)

const (
	keyCacheHits        = "metrics:cache_hits"
	keyCacheMisses      = "metrics:cache_misses"
	keyGenerationCalls  = "metrics:generation_calls"
	keyGenerationErrors = "metrics:generation_errors"
)

// Service tracks the four monotonic operational counters in Redis. Increments
// are best-effort: a failed counter write is logged and never surfaces to the
// operation that triggered it.
type Service struct {
	rc  *redisc.Client
	log *zap.Logger
}

func NewService(rc *redisc.Client, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{rc: rc, log: log}
}

// CacheHit records a summary served from cache.
func (s *Service) CacheHit(ctx context.Context) { s.incr(ctx, keyCacheHits) }

// CacheMiss records a cache lookup that found nothing.
func (s *Service) CacheMiss(ctx context.Context) { s.incr(ctx, keyCacheMisses) }

// GenerationCall records an attempted upstream generation call.
func (s *Service) GenerationCall(ctx context.Context) { s.incr(ctx, keyGenerationCalls) }

// GenerationError records a failed upstream generation call.
func (s *Service) GenerationError(ctx context.Context) { s.incr(ctx, keyGenerationErrors) }

func (s *Service) incr(ctx context.Context, key string) {
	// Counters must survive request cancellation; they are advisory either way.
	if _, err := s.rc.Incr(context.WithoutCancel(ctx), key); err != nil {
		s.log.Debug("counter increment failed", zap.String("key", key), zap.Error(err))
	}
}

// Snapshot is the payload of GET /metrics.
type Snapshot struct {
	CacheHits        int64 `json:"cache_hits"`
	CacheMisses      int64 `json:"cache_misses"`
	GenerationCalls  int64 `json:"generation_calls"`
	GenerationErrors int64 `json:"generation_errors"`
	TotalRecords     int64 `json:"total_records"`
}

// Snapshot reads all counters plus the store key count. Absent counters read
// as zero.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	for _, entry := range []struct {
		key  string
		dest *int64
	}{
		{keyCacheHits, &snap.CacheHits},
		{keyCacheMisses, &snap.CacheMisses},
		{keyGenerationCalls, &snap.GenerationCalls},
		{keyGenerationErrors, &snap.GenerationErrors},
	} {
		raw, err := s.rc.Get(ctx, entry.key)
		if err != nil {
			return nil, err
		}
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.log.Warn("counter holds non-integer value", zap.String("key", entry.key), zap.String("value", raw))
			continue
		}
		*entry.dest = n
	}

	total, err := s.rc.DBSize(ctx)
	if err != nil {
		return nil, err
	}
	snap.TotalRecords = total

	return snap, nil
}

func RegisterRoutes(rg *gin.RouterGroup, svc *Service) {
	rg.GET("/metrics", func(c *gin.Context) {
		snap, err := svc.Snapshot(c.Request.Context())
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, snap)
	})
}
