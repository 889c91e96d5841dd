// Package worker hosts one detection algorithm behind POST /detect, fronted
// by the idempotency cache so a payload is detected at most once per request.
package worker

import (
	"log"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/surveillance-engine/internal/api"
	"github.com/rawblock/surveillance-engine/internal/cache"
	"github.com/rawblock/surveillance-engine/internal/config"
	"github.com/rawblock/surveillance-engine/internal/detectors"
	"github.com/rawblock/surveillance-engine/internal/events"
	"github.com/rawblock/surveillance-engine/pkg/models"
)

// Service is one worker: a single detector plus its idempotency cache. The
// cache is the only shared mutable state; everything else is per-request.
type Service struct {
	detector detectors.Detector
	cache    *cache.IdempotencyCache

	// strict re-derives the fingerprint from the payload and rejects
	// mismatches as client errors.
	strict bool

	// detections counts actual detector executions (not cache hits).
	// Test hook backing the Prometheus counter.
	detections atomic.Int64
}

// New builds a worker service for the given detector.
func New(detector detectors.Detector, cacheSize int, strict bool) (*Service, error) {
	idem, err := cache.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{detector: detector, cache: idem, strict: strict}, nil
}

// Detections returns how many times the detector has actually executed.
func (s *Service) Detections() int64 {
	return s.detections.Load()
}

// CacheLen returns the idempotency cache occupancy.
func (s *Service) CacheLen() int {
	return s.cache.Len()
}

// HandleDetect serves POST /detect.
func (s *Service) HandleDetect(c *gin.Context) {
	var req models.DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.RequestID == "" || req.EventFingerprint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request_id and event_fingerprint are required"})
		return
	}

	if s.strict {
		if actual := events.Fingerprint(req.Events); actual != req.EventFingerprint {
			// A replay with mutated events under the same request id.
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "event_fingerprint does not match the events payload",
			})
			return
		}
	}

	key := cache.Key{RequestID: req.RequestID, Fingerprint: req.EventFingerprint}
	seqs, cached := s.cache.GetOrCompute(key, func() []models.SuspiciousSequence {
		s.detections.Add(1)
		api.DetectionRuns.WithLabelValues(s.detector.Name()).Inc()
		filtered := s.detector.FilterEvents(req.Events)
		found := s.detector.Detect(filtered)
		api.SequencesFound.WithLabelValues(s.detector.Name()).Add(float64(len(found)))
		return found
	})
	if cached {
		api.CacheHits.WithLabelValues(s.detector.Name()).Inc()
	}
	if seqs == nil {
		seqs = []models.SuspiciousSequence{}
	}

	log.Printf("[WORKER %s] request=%s cached=%v events=%d sequences=%d",
		s.detector.Name(), req.RequestID, cached, len(req.Events), len(seqs))

	c.JSON(http.StatusOK, models.DetectResponse{
		ServiceName: s.detector.Name(),
		Cached:      cached,
		Sequences:   seqs,
	})
}

// Router assembles the worker's HTTP surface.
func (s *Service) Router(cfg *config.Config) *gin.Engine {
	r := gin.Default()
	r.Use(api.CORS(cfg.AllowedOrigins))

	r.GET("/", api.RootHandler("worker-"+s.detector.Name()))
	r.GET("/health", api.HealthHandler("worker-"+s.detector.Name(), func() gin.H {
		return gin.H{
			"algorithm":   s.detector.Name(),
			"description": s.detector.Description(),
			"cacheLen":    s.CacheLen(),
		}
	}))
	r.GET("/metrics", api.MetricsHandler())

	limiter := api.NewRateLimiter(600, 60)
	detect := r.Group("/")
	detect.Use(limiter.Middleware(), api.APIKeyAuth(cfg.APIKey), api.BodySizeLimit(cfg.MaxBodyBytes))
	detect.POST("/detect", s.HandleDetect)

	return r
}
