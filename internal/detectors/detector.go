// Package detectors implements the manipulation pattern detectors and the
// registry that exposes them to the worker services by name.
package detectors

import (
	"golang.org/x/sync/errgroup"

	"github.com/rawblock/surveillance-engine/internal/events"
	"github.com/rawblock/surveillance-engine/pkg/models"
)

// Detector is one detection algorithm. Detectors are stateless: the registry
// hands out a fresh instance per Get, and Detect carries no cross-call state,
// so a single instance is also safe to reuse concurrently.
type Detector interface {
	// Name is the unique registry key, also used as the service name on the wire.
	Name() string
	Description() string

	// FilterEvents narrows a batch to the event types the algorithm consumes.
	// The default is identity; layering keeps its three relevant types,
	// wash trading keeps trade executions only.
	FilterEvents(evts []models.TransactionEvent) []models.TransactionEvent

	// Detect runs the algorithm over a (pre-filtered) batch and returns all
	// suspicious sequences found.
	Detect(evts []models.TransactionEvent) []models.SuspiciousSequence
}

// detectPerGroup groups the batch, runs fn on every group in parallel, and
// reassembles the results in deterministic key order. Groups are independent
// by construction, so sequence-level output does not depend on scheduling.
func detectPerGroup(
	evts []models.TransactionEvent,
	fn func(key events.GroupKey, group []models.TransactionEvent) []models.SuspiciousSequence,
) []models.SuspiciousSequence {
	groups := events.Group(evts)
	keys := events.SortedKeys(groups)

	perKey := make([][]models.SuspiciousSequence, len(keys))
	var g errgroup.Group
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			perKey[i] = fn(key, groups[key])
			return nil
		})
	}
	g.Wait() // fn never errors

	var out []models.SuspiciousSequence
	for _, seqs := range perKey {
		out = append(out, seqs...)
	}
	return out
}
