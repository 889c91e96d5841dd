// Package coordinator drives the detection pipeline: it reads and validates
// an input file, fans the events out to every enabled worker, and hands the
// collected results to the aggregator.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rawblock/surveillance-engine/internal/api"
	"github.com/rawblock/surveillance-engine/internal/config"
	"github.com/rawblock/surveillance-engine/internal/detectors"
	"github.com/rawblock/surveillance-engine/internal/events"
	"github.com/rawblock/surveillance-engine/pkg/models"
)

// Coordinator owns the fan-out/fan-in for one deployment.
type Coordinator struct {
	cfg      *config.Config
	registry *detectors.Registry
	client   *serviceClient

	// onComplete, when set, receives every finished run (websocket alerts).
	onComplete func(models.OrchestrateResult)
}

// New builds a coordinator from the shared config and algorithm registry.
func New(cfg *config.Config, registry *detectors.Registry) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		registry: registry,
		client:   newServiceClient(cfg.APIKey, cfg.AttemptTimeout, cfg.MaxRetries, cfg.RetryBaseDelay),
	}
}

// OnComplete registers a callback invoked after every run, success or not.
func (co *Coordinator) OnComplete(fn func(models.OrchestrateResult)) {
	co.onComplete = fn
}

// targets resolves the enabled algorithm names to worker base URLs. Every
// enabled algorithm must be registered and must have a configured target.
func (co *Coordinator) targets() (map[string]string, error) {
	names := co.cfg.EnabledAlgorithms
	if names == nil {
		names = co.registry.List()
	}
	targets := make(map[string]string, len(names))
	for _, name := range names {
		if _, err := co.registry.Get(name); err != nil {
			return nil, err
		}
		url, ok := co.cfg.WorkerURLs[name]
		if !ok {
			return nil, fmt.Errorf("no worker URL configured for algorithm %q", name)
		}
		targets[name] = url
	}
	return targets, nil
}

// Run executes one full pipeline invocation. Input resolution and parse
// errors are returned to the caller; downstream service failures are folded
// into the result's status instead.
func (co *Coordinator) Run(ctx context.Context, inputName string) (models.OrchestrateResult, error) {
	path, err := config.ResolveInputPath(co.cfg.InputDir, inputName)
	if err != nil {
		return models.OrchestrateResult{}, err
	}
	read, err := events.ReadFile(path)
	if err != nil {
		return models.OrchestrateResult{}, err
	}

	targets, err := co.targets()
	if err != nil {
		return models.OrchestrateResult{}, err
	}

	requestID := uuid.NewString()
	fingerprint := events.Fingerprint(read.Events)
	log.Printf("[ORCHESTRATE] request=%s input=%s events=%d skipped=%d fingerprint=%s",
		requestID, inputName, len(read.Events), read.RowsSkipped, fingerprint)

	runCtx, cancel := context.WithTimeout(ctx, co.cfg.GlobalDeadline)
	defer cancel()

	expected := make([]string, 0, len(targets))
	for name := range targets {
		expected = append(expected, name)
	}
	sort.Strings(expected)

	// Fan out. Targets are independent: one worker exhausting its retries
	// must not cancel the others, so failures are recorded, not returned.
	var (
		mu      sync.Mutex
		results []models.ServiceResult
		failed  []string
	)
	var g errgroup.Group
	for _, name := range expected {
		name, url := name, targets[name]
		g.Go(func() error {
			req := models.DetectRequest{
				RequestID:        requestID,
				EventFingerprint: fingerprint,
				Events:           read.Events,
			}
			var resp models.DetectResponse
			if err := co.client.postJSON(runCtx, name, url+"/detect", req, &resp); err != nil {
				log.Printf("[ORCHESTRATE] request=%s worker %s failed permanently: %v", requestID, name, err)
				mu.Lock()
				failed = append(failed, name)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			results = append(results, models.ServiceResult{ServiceName: name, Sequences: resp.Sequences})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].ServiceName < results[j].ServiceName })
	sort.Strings(failed)
	completed := make([]string, 0, len(results))
	for _, res := range results {
		completed = append(completed, res.ServiceName)
	}

	result := models.OrchestrateResult{
		RequestID:         requestID,
		EventFingerprint:  fingerprint,
		EventsRead:        len(read.Events),
		RowsSkipped:       read.RowsSkipped,
		ServicesCompleted: completed,
		ServicesFailed:    failed,
	}

	aggReq := models.AggregateRequest{
		RequestID:        requestID,
		ExpectedServices: expected,
		Results:          results,
	}
	var aggResp models.AggregateResponse
	if err := co.client.postJSON(runCtx, "aggregator", co.cfg.AggregatorURL+"/aggregate", aggReq, &aggResp); err != nil {
		result.Status = models.RunStatusFailed
		result.Error = fmt.Sprintf("aggregation failed: %v", err)
	} else if aggResp.Status != models.AggregateStatusCompleted {
		result.Status = models.RunStatusFailed
		result.Error = aggResp.Error
		result.SequenceCount = aggResp.SequenceCount
	} else {
		result.Status = models.RunStatusCompleted
		result.SequenceCount = aggResp.SequenceCount
	}

	co.finish(result)
	return result, nil
}

func (co *Coordinator) finish(result models.OrchestrateResult) {
	api.RunsCompleted.WithLabelValues(result.Status).Inc()
	log.Printf("[ORCHESTRATE] request=%s status=%s sequences=%d completed=%v failed=%v",
		result.RequestID, result.Status, result.SequenceCount,
		result.ServicesCompleted, result.ServicesFailed)
	if co.onComplete != nil {
		co.onComplete(result)
	}
}
