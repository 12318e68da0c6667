// Package retention keeps the set of stored documents bounded by count and
// total size. A pure scoring policy ranks eviction candidates; a manager
// runs gated cleanup passes; a scheduler sweeps in the background.
package retention

import (
	"time"

	"markui/internal/model"
)

// Default scoring weights. Kept as named constants so behavior is tunable
// without touching the pass logic.
const (
	DefaultAgePointsPerDay    = 5.0
	DefaultSizePointsPerMB    = 3.0
	DefaultIdlePointsPerDay   = 3.0
	DefaultUnprocessedPenalty = 100.0
)

const bytesPerMB = 1024 * 1024

// Weights parameterizes the eviction score. Higher score means a stronger
// deletion candidate.
type Weights struct {
	AgePerDay          float64
	SizePerMB          float64
	IdlePerDay         float64
	UnprocessedPenalty float64
}

// DefaultWeights returns the standard weighting: age and idle time at 5 and
// 3 points per day, size at 3 points per MB, and a flat 100-point penalty
// for documents that were uploaded but never successfully converted.
func DefaultWeights() Weights {
	return Weights{
		AgePerDay:          DefaultAgePointsPerDay,
		SizePerMB:          DefaultSizePointsPerMB,
		IdlePerDay:         DefaultIdlePointsPerDay,
		UnprocessedPenalty: DefaultUnprocessedPenalty,
	}
}

// Score computes the deletion priority of a document at the given instant.
// Pure and total: no side effects, no error conditions. Days are fractional
// so every signal is strictly monotonic in time.
func (w Weights) Score(doc *model.Document, now time.Time) float64 {
	ageDays := now.Sub(doc.CreatedAt).Hours() / 24
	idleDays := now.Sub(doc.LastAccessedAt).Hours() / 24
	sizeMB := float64(doc.Size) / bytesPerMB

	score := w.AgePerDay*ageDays + w.SizePerMB*sizeMB + w.IdlePerDay*idleDays
	if !doc.Processed {
		score += w.UnprocessedPenalty
	}
	return score
}

// Evictable reports whether the document is old enough to be considered for
// eviction. This is an absolute floor applied before scoring: no score,
// however high, makes a too-young document a valid candidate.
func Evictable(doc *model.Document, now time.Time, minRetention time.Duration) bool {
	return now.Sub(doc.CreatedAt) >= minRetention
}

// Demand describes how much a cleanup pass must free. Both components are
// the positive excess over their respective limit; zero means that limit is
// not exceeded.
type Demand struct {
	ReduceCount int   `json:"reduce_count"`
	FreeBytes   int64 `json:"free_bytes"`
}

// IsZero reports whether no cleanup is needed.
func (d Demand) IsZero() bool {
	return d.ReduceCount == 0 && d.FreeBytes == 0
}

// Satisfied reports whether the accumulated deletions cover both deficits.
func (d Demand) Satisfied(freedCount int, freedBytes int64) bool {
	return freedCount >= d.ReduceCount && freedBytes >= d.FreeBytes
}

// ComputeDemand evaluates both limits independently. Cleanup is triggered
// when either is exceeded; the demand carries both deltas so the executor
// knows when each is individually satisfied mid-pass.
func ComputeDemand(count int, totalBytes int64, maxCount int, maxBytes int64) Demand {
	var d Demand
	if count > maxCount {
		d.ReduceCount = count - maxCount
	}
	if totalBytes > maxBytes {
		d.FreeBytes = totalBytes - maxBytes
	}
	return d
}
