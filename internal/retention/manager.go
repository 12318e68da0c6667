package retention

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"markui/internal/config"
	"markui/internal/model"
	"markui/internal/repository"
	"markui/internal/storage"
)

// Report summarizes one cleanup pass. A skipped report (gate already held)
// is distinct from an empty report (nothing exceeded the limits).
type Report struct {
	Skipped      bool     `json:"skipped"`
	Demand       Demand   `json:"demand"`
	EvictedCount int      `json:"evicted_count"`
	FreedBytes   int64    `json:"freed_bytes"`
	EvictedIDs   []string `json:"evicted_ids"`
	FileErrors   int      `json:"file_errors"`
	Reasons      []string `json:"reasons,omitempty"`
	Duration     float64  `json:"duration_ms"`
}

// Status is the read-only view served by the storage-info endpoint.
type Status struct {
	Count             int        `json:"count"`
	TotalBytes        int64      `json:"total_bytes"`
	MaxCount          int        `json:"max_count"`
	MaxBytes          int64      `json:"max_bytes"`
	MinRetentionHours int        `json:"min_retention_hours"`
	CountUsagePercent float64    `json:"count_usage_percent"`
	SizeUsagePercent  float64    `json:"size_usage_percent"`
	LastPassAt        *time.Time `json:"last_pass_at,omitempty"`
	LastPass          *Report    `json:"last_pass,omitempty"`
}

// Manager runs cleanup passes against the document repository and the
// underlying object storage. All triggers (background sweep, post-upload
// notification, manual API call) funnel through the same compare-and-swap
// gate, so passes never run concurrently.
type Manager struct {
	repo    repository.DocumentRepository
	store   storage.Storage
	cfg     config.RetentionConfig
	weights Weights
	metrics *Metrics

	running atomic.Bool

	mu         sync.Mutex
	lastPassAt *time.Time
	lastPass   *Report
}

// NewManager wires a Manager. cfg must already be validated.
func NewManager(repo repository.DocumentRepository, store storage.Storage, cfg config.RetentionConfig, metrics *Metrics) *Manager {
	return &Manager{
		repo:    repo,
		store:   store,
		cfg:     cfg,
		weights: DefaultWeights(),
		metrics: metrics,
	}
}

type candidate struct {
	doc   model.Document
	score float64
}

// RunPass executes one cleanup pass at the given instant. Callers other
// than tests should go through TriggerCleanup, which enforces the
// single-pass gate. An error means the repository was unreachable; the pass
// aborts cleanly with no partial report.
func (m *Manager) RunPass(ctx context.Context, now time.Time) (*Report, error) {
	start := time.Now()

	count, totalBytes, err := m.repo.Aggregate(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry aggregate: %w", err)
	}

	report := &Report{EvictedIDs: []string{}}
	demand := ComputeDemand(count, totalBytes, m.cfg.MaxStoredDocuments, m.cfg.MaxBytes())
	report.Demand = demand
	if demand.IsZero() {
		m.logPass("retention_noop", report, map[string]any{
			"count":       count,
			"total_bytes": totalBytes,
		})
		m.recordPass(now, report)
		return report, nil
	}

	if demand.ReduceCount > 0 {
		report.Reasons = append(report.Reasons,
			fmt.Sprintf("document count %d exceeds limit %d", count, m.cfg.MaxStoredDocuments))
	}
	if demand.FreeBytes > 0 {
		report.Reasons = append(report.Reasons,
			fmt.Sprintf("storage size %dB exceeds limit %dB", totalBytes, m.cfg.MaxBytes()))
	}

	docs, err := m.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry list: %w", err)
	}

	candidates := m.rankCandidates(docs, now)

	freedCount := 0
	var freedBytes int64
	for _, c := range candidates {
		if report.EvictedCount >= m.cfg.CleanupBatchSize {
			break
		}
		if demand.Satisfied(freedCount, freedBytes) {
			break
		}

		if err := m.store.Delete(ctx, c.doc.StoragePath); err != nil {
			// A missing or undeletable file never blocks freeing the
			// metadata slot; accounting derives from metadata only.
			report.FileErrors++
			event := "retention_file_delete_failed"
			if errors.Is(err, storage.ErrNotFound) {
				event = "retention_file_already_absent"
			}
			logJSON(map[string]any{
				"component":    "retention",
				"event":        event,
				"status":       "warning",
				"document_id":  c.doc.ID,
				"storage_path": c.doc.StoragePath,
				"error":        err.Error(),
			})
		}

		if err := m.repo.Delete(ctx, c.doc.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// A concurrent user delete won the race; nothing was freed
				// by this pass.
				continue
			}
			return nil, fmt.Errorf("registry delete %s: %w", c.doc.ID, err)
		}

		freedCount++
		freedBytes += c.doc.Size
		report.EvictedCount++
		report.FreedBytes += c.doc.Size
		report.EvictedIDs = append(report.EvictedIDs, c.doc.ID)

		logJSON(map[string]any{
			"component":   "retention",
			"event":       "retention_evicted",
			"status":      "success",
			"document_id": c.doc.ID,
			"filename":    c.doc.Filename,
			"size":        c.doc.Size,
			"score":       c.score,
		})
	}

	report.Duration = float64(time.Since(start).Milliseconds())
	m.logPass("retention_pass_completed", report, map[string]any{
		"initial_count": count,
		"initial_bytes": totalBytes,
	})
	m.recordPass(now, report)
	return report, nil
}

// rankCandidates filters out documents still inside the retention floor and
// orders the rest by descending score. Ties break toward the older
// created_at, then the smaller id, so a pass is fully deterministic.
func (m *Manager) rankCandidates(docs []model.Document, now time.Time) []candidate {
	minRetention := m.cfg.MinRetention()
	candidates := make([]candidate, 0, len(docs))
	for i := range docs {
		if !Evictable(&docs[i], now, minRetention) {
			continue
		}
		candidates = append(candidates, candidate{
			doc:   docs[i],
			score: m.weights.Score(&docs[i], now),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.doc.CreatedAt.Equal(b.doc.CreatedAt) {
			return a.doc.CreatedAt.Before(b.doc.CreatedAt)
		}
		return a.doc.ID < b.doc.ID
	})
	return candidates
}

// TriggerCleanup attempts one gated cleanup pass. If a pass is already
// running it returns immediately with a skipped report rather than
// blocking or queueing.
func (m *Manager) TriggerCleanup(ctx context.Context) (*Report, error) {
	if !m.running.CompareAndSwap(false, true) {
		m.metrics.observePass("skipped", nil)
		return &Report{Skipped: true}, nil
	}
	defer m.running.Store(false)

	report, err := m.RunPass(ctx, time.Now().UTC())
	if err != nil {
		m.metrics.observePass("error", nil)
		logJSON(map[string]any{
			"component": "retention",
			"event":     "retention_pass_failed",
			"status":    "error",
			"error":     err.Error(),
		})
		return nil, err
	}
	m.metrics.observePass("completed", report)
	return report, nil
}

// NotifyUpload is the reactive, fire-and-forget trigger invoked after each
// successful upload. A flood of uploads coalesces into at most one running
// pass; the next scheduled sweep catches anything left over.
func (m *Manager) NotifyUpload() {
	go func() {
		_, _ = m.TriggerCleanup(context.Background())
	}()
}

// Status reports current usage against the configured limits plus the most
// recent pass, if any.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	count, totalBytes, err := m.repo.Aggregate(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry aggregate: %w", err)
	}

	s := &Status{
		Count:             count,
		TotalBytes:        totalBytes,
		MaxCount:          m.cfg.MaxStoredDocuments,
		MaxBytes:          m.cfg.MaxBytes(),
		MinRetentionHours: m.cfg.MinRetentionHours,
		CountUsagePercent: roundPercent(float64(count) / float64(m.cfg.MaxStoredDocuments)),
		SizeUsagePercent:  roundPercent(float64(totalBytes) / float64(m.cfg.MaxBytes())),
	}

	m.mu.Lock()
	s.LastPassAt = m.lastPassAt
	s.LastPass = m.lastPass
	m.mu.Unlock()

	return s, nil
}

func (m *Manager) recordPass(at time.Time, report *Report) {
	m.mu.Lock()
	t := at
	m.lastPassAt = &t
	m.lastPass = report
	m.mu.Unlock()
}

func (m *Manager) logPass(event string, report *Report, extra map[string]any) {
	data := map[string]any{
		"component":     "retention",
		"event":         event,
		"status":        "success",
		"evicted_count": report.EvictedCount,
		"freed_bytes":   report.FreedBytes,
		"file_errors":   report.FileErrors,
	}
	for k, v := range extra {
		data[k] = v
	}
	logJSON(data)
}

func roundPercent(ratio float64) float64 {
	return math.Round(ratio*1000) / 10
}

func logJSON(data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		switch data["status"] {
		case "error":
			data["level"] = "error"
		case "warning":
			data["level"] = "warn"
		default:
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal retention log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
