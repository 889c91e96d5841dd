package coordinator

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/rawblock/surveillance-engine/internal/aggregator"
	"github.com/rawblock/surveillance-engine/internal/config"
	"github.com/rawblock/surveillance-engine/internal/detectors"
	"github.com/rawblock/surveillance-engine/internal/events"
	"github.com/rawblock/surveillance-engine/pkg/models"
)

// LocalRun executes the whole pipeline inside one process: every enabled
// detector runs in-process and the aggregation step writes the outputs
// directly. This backs the single-machine CLI mode; no workers are involved.
func LocalRun(cfg *config.Config, registry *detectors.Registry, inputName string) (models.OrchestrateResult, error) {
	path, err := config.ResolveInputPath(cfg.InputDir, inputName)
	if err != nil {
		return models.OrchestrateResult{}, err
	}
	read, err := events.ReadFile(path)
	if err != nil {
		return models.OrchestrateResult{}, err
	}

	dets, err := registry.GetAll(cfg.EnabledAlgorithms)
	if err != nil {
		return models.OrchestrateResult{}, err
	}

	requestID := uuid.NewString()
	fingerprint := events.Fingerprint(read.Events)
	log.Printf("[RUN] request=%s input=%s events=%d skipped=%d", requestID, inputName, len(read.Events), read.RowsSkipped)

	expected := make([]string, 0, len(dets))
	results := make([]models.ServiceResult, 0, len(dets))
	for _, det := range dets {
		expected = append(expected, det.Name())
		filtered := det.FilterEvents(read.Events)
		seqs := det.Detect(filtered)
		log.Printf("[RUN] %s: %d sequences", det.Name(), len(seqs))
		results = append(results, models.ServiceResult{ServiceName: det.Name(), Sequences: seqs})
	}

	agg, err := aggregator.New(cfg)
	if err != nil {
		return models.OrchestrateResult{}, err
	}
	aggResp := agg.Aggregate(&models.AggregateRequest{
		RequestID:        requestID,
		ExpectedServices: expected,
		Results:          results,
	})

	result := models.OrchestrateResult{
		RequestID:         requestID,
		EventFingerprint:  fingerprint,
		EventsRead:        len(read.Events),
		RowsSkipped:       read.RowsSkipped,
		ServicesCompleted: expected,
		ServicesFailed:    []string{},
		SequenceCount:     aggResp.SequenceCount,
	}
	if aggResp.Status == models.AggregateStatusCompleted {
		result.Status = models.RunStatusCompleted
	} else {
		result.Status = models.RunStatusFailed
		result.Error = aggResp.Error
	}
	if result.Status == models.RunStatusFailed {
		return result, fmt.Errorf("run %s failed: %s", requestID, result.Error)
	}
	return result, nil
}
