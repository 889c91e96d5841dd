// Package aggregator validates the completeness of per-algorithm results,
// merges them, and writes the two canonical CSV outputs.
package aggregator

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/surveillance-engine/internal/api"
	"github.com/rawblock/surveillance-engine/internal/config"
	"github.com/rawblock/surveillance-engine/internal/report"
	"github.com/rawblock/surveillance-engine/pkg/models"
)

// Service is the aggregation role.
type Service struct {
	outputDir    string
	logsDir      string
	allowPartial bool
	pseudo       *report.Pseudonymizer
}

// New builds the aggregator. pseudo may be nil when pseudonymization of the
// detection log is disabled.
func New(cfg *config.Config) (*Service, error) {
	var pseudo *report.Pseudonymizer
	if cfg.Pseudonymize {
		p, err := report.NewPseudonymizer(cfg.PseudonymizationSalt)
		if err != nil {
			return nil, err
		}
		pseudo = p
	}
	return &Service{
		outputDir:    cfg.OutputDir,
		logsDir:      cfg.LogsDir,
		allowPartial: cfg.AllowPartialResults,
		pseudo:       pseudo,
	}, nil
}

// validate checks that the delivered results line up with the expected
// service set. Duplicates and unknown names always fail; missing services
// fail unless partial results are allowed.
func (s *Service) validate(req *models.AggregateRequest) error {
	expected := make(map[string]bool, len(req.ExpectedServices))
	for _, name := range req.ExpectedServices {
		expected[name] = true
	}

	seen := make(map[string]bool, len(req.Results))
	for _, res := range req.Results {
		if seen[res.ServiceName] {
			return fmt.Errorf("duplicate result from service %q", res.ServiceName)
		}
		seen[res.ServiceName] = true
		if !expected[res.ServiceName] {
			return fmt.Errorf("result from unknown service %q", res.ServiceName)
		}
	}

	var missing []string
	for _, name := range req.ExpectedServices {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 && !s.allowPartial {
		sort.Strings(missing)
		return fmt.Errorf("missing results from services %v", missing)
	}
	if len(missing) > 0 {
		log.Printf("[AGGREGATE] tolerating missing services %v (partial results allowed)", missing)
	}
	return nil
}

// Aggregate validates, merges, and writes the outputs for one run.
func (s *Service) Aggregate(req *models.AggregateRequest) models.AggregateResponse {
	start := time.Now()

	if err := s.validate(req); err != nil {
		log.Printf("[AGGREGATE] request=%s validation failed: %v", req.RequestID, err)
		return models.AggregateResponse{
			RequestID: req.RequestID,
			Status:    models.AggregateStatusValidationFailed,
			Error:     err.Error(),
		}
	}

	var merged []models.SuspiciousSequence
	for _, res := range req.Results {
		merged = append(merged, res.Sequences...)
	}

	accountsPath := filepath.Join(s.outputDir, fmt.Sprintf("suspicious_accounts_%s.csv", req.RequestID))
	logsPath := filepath.Join(s.logsDir, fmt.Sprintf("detection_logs_%s.csv", req.RequestID))

	if err := report.WriteSuspiciousAccounts(accountsPath, merged); err != nil {
		return models.AggregateResponse{
			RequestID: req.RequestID,
			Status:    models.AggregateStatusValidationFailed,
			Error:     fmt.Sprintf("write suspicious accounts: %v", err),
		}
	}
	if err := report.WriteDetectionLogs(logsPath, merged, s.pseudo); err != nil {
		return models.AggregateResponse{
			RequestID: req.RequestID,
			Status:    models.AggregateStatusValidationFailed,
			Error:     fmt.Sprintf("write detection logs: %v", err),
		}
	}

	log.Printf("[AGGREGATE] request=%s merged %d sequences from %d services in %v",
		req.RequestID, len(merged), len(req.Results), time.Since(start))

	return models.AggregateResponse{
		RequestID:              req.RequestID,
		Status:                 models.AggregateStatusCompleted,
		SequenceCount:          len(merged),
		SuspiciousAccountsPath: accountsPath,
		DetectionLogsPath:      logsPath,
	}
}

// HandleAggregate serves POST /aggregate. Validation failures are reported
// in the body with HTTP 200; only malformed requests produce a 4xx.
func (s *Service) HandleAggregate(c *gin.Context) {
	var req models.AggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.RequestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request_id is required"})
		return
	}
	if len(req.ExpectedServices) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected_services must not be empty"})
		return
	}

	c.JSON(http.StatusOK, s.Aggregate(&req))
}

// Router assembles the aggregator's HTTP surface.
func (s *Service) Router(cfg *config.Config) *gin.Engine {
	r := gin.Default()
	r.Use(api.CORS(cfg.AllowedOrigins))

	r.GET("/", api.RootHandler("aggregator"))
	r.GET("/health", api.HealthHandler("aggregator", func() gin.H {
		return gin.H{
			"outputDir":           s.outputDir,
			"logsDir":             s.logsDir,
			"allowPartialResults": s.allowPartial,
		}
	}))
	r.GET("/metrics", api.MetricsHandler())

	limiter := api.NewRateLimiter(600, 60)
	agg := r.Group("/")
	agg.Use(limiter.Middleware(), api.APIKeyAuth(cfg.APIKey), api.BodySizeLimit(cfg.MaxBodyBytes))
	agg.POST("/aggregate", s.HandleAggregate)

	return r
}
