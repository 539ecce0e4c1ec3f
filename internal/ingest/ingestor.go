// Pitwall - Racing Telemetry Integration and Race Strategy Analytics
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-dev/pitwall

package ingest

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pitwall-dev/pitwall/internal/metrics"
)

const (
	// DefaultBatchSize is the starting chunk size for bulk writes.
	DefaultBatchSize = 500

	// minBatchSize is the floor below which a failing chunk is no
	// longer subdivided and its range is reported instead.
	minBatchSize = 100
)

// BulkWriter persists one ordered batch of samples atomically. A batch
// either lands entirely or fails entirely.
type BulkWriter interface {
	WriteBatch(ctx context.Context, samples []Sample) error
}

// FailedBatch identifies a half-open range [Start, End) of the original
// input that was not persisted: either a single sample still invalid
// after clamping, or a chunk that failed even at the minimum size.
type FailedBatch struct {
	Start int   `json:"start"`
	End   int   `json:"end"`
	Err   error `json:"-"`
}

// Result reports the outcome of one ingestion run. Partial success is
// the expected terminal state for large uploads.
type Result struct {
	Inserted      int           `json:"inserted"`
	FailedBatches []FailedBatch `json:"failed_batches,omitempty"`
}

// Ingestor splits oversized or failing write batches into progressively
// smaller sub-batches and retries, reporting partial success instead of
// aborting the run.
type Ingestor struct {
	writer    BulkWriter
	batchSize int
	logger    zerolog.Logger
}

// New creates an ingestor writing through w. batchSize values below the
// floor are raised to it.
func New(w BulkWriter, batchSize int, logger zerolog.Logger) *Ingestor {
	if batchSize < minBatchSize {
		batchSize = minBatchSize
	}
	return &Ingestor{
		writer:    w,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "ingest").Logger(),
	}
}

// span is one pending write over items[start:end) attempted at size.
type span struct {
	start, end int
	size       int
}

// Insert normalizes, validates, and writes items in order. Samples that
// are still invalid after clamping are recorded as failed ranges and
// skipped, never aborting the rest of the run. Chunks that fail to
// write are halved down to the floor and retried; ranges that still
// fail at the floor are recorded in the result. The caller's slice is
// not modified. A non-nil error is returned only for context
// cancellation, never for bad samples or storage failures.
func (in *Ingestor) Insert(ctx context.Context, items []Sample) (*Result, error) {
	result := &Result{}
	if len(items) == 0 {
		return result, nil
	}

	// Clamp a copy so callers keep their original values.
	samples := make([]Sample, len(items))
	copy(samples, items)

	valid := make([]bool, len(samples))
	for i := range samples {
		samples[i].Normalize()
		if err := validate.Struct(&samples[i]); err != nil {
			in.logger.Warn().Err(err).
				Int("index", i).
				Msg("sample invalid after clamping, skipping")
			result.FailedBatches = append(result.FailedBatches, FailedBatch{
				Start: i,
				End:   i + 1,
				Err:   &ValidationError{Index: i, Err: err},
			})
			metrics.IngestBatchesFailed.Inc()
			continue
		}
		valid[i] = true
	}

	// Seed the worklist with top-level chunks over each run of valid
	// samples, front to back. Ranges keep the caller's indexing.
	var work []span
	runStart := -1
	flushRun := func(end int) {
		if runStart < 0 {
			return
		}
		for s := runStart; s < end; s += in.batchSize {
			e := s + in.batchSize
			if e > end {
				e = end
			}
			work = append(work, span{start: s, end: e, size: in.batchSize})
		}
		runStart = -1
	}
	for i := range samples {
		if !valid[i] {
			flushRun(i)
			continue
		}
		if runStart < 0 {
			runStart = i
		}
	}
	flushRun(len(samples))

	for len(work) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		job := work[0]
		work = work[1:]

		err := in.writer.WriteBatch(ctx, samples[job.start:job.end])
		if err == nil {
			n := job.end - job.start
			result.Inserted += n
			metrics.IngestSamplesInserted.Add(float64(n))
			continue
		}

		if job.size <= minBatchSize {
			in.logger.Error().Err(err).
				Int("start", job.start).
				Int("end", job.end).
				Msg("batch failed at minimum size, recording range")
			result.FailedBatches = append(result.FailedBatches, FailedBatch{
				Start: job.start,
				End:   job.end,
				Err:   err,
			})
			metrics.IngestBatchesFailed.Inc()
			continue
		}

		half := job.size / 2
		if half < minBatchSize {
			half = minBatchSize
		}
		in.logger.Warn().Err(err).
			Int("start", job.start).
			Int("end", job.end).
			Int("new_size", half).
			Msg("batch failed, splitting")
		metrics.IngestBatchSplits.Inc()

		// Re-queue the failed range at the smaller size ahead of the
		// remaining work so original order is preserved.
		var sub []span
		for s := job.start; s < job.end; s += half {
			e := s + half
			if e > job.end {
				e = job.end
			}
			sub = append(sub, span{start: s, end: e, size: half})
		}
		work = append(sub, work...)
	}

	return result, nil
}
