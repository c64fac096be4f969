package etl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/order-etl/internal/orders"
)

// Auditor receives one line per record that did not load cleanly.
type Auditor interface {
	Missing(row int, fields []string)
	Duplicate(row int, orderID string)
	Error(row int, orderID string, reason string)
}

// Pipeline loads order datasets
type Pipeline struct {
	sessions   SessionOpener
	audit      Auditor
	config     *Config
	logger     *zap.Logger
	dispatcher *Dispatcher
	stats      *ProcessingStats
	mu         sync.RWMutex
}

// NewPipeline creates a new ETL pipeline
func NewPipeline(sessions SessionOpener, audit Auditor, config *Config, logger *zap.Logger) *Pipeline {
	if config.ProgressReport <= 0 {
		config.ProgressReport = 1000
	}
	return &Pipeline{
		sessions:   sessions,
		audit:      audit,
		config:     config,
		logger:     logger,
		dispatcher: NewDispatcher(config.MaxRowsPerSecond),
		stats: &ProcessingStats{
			StartTime: time.Now(),
		},
	}
}

// ProcessFile reads, normalizes and loads a dataset file.
func (p *Pipeline) ProcessFile(ctx context.Context, filePath string) (*RunSummary, error) {
	format := DetectFileFormat(filePath)
	p.logger.Info("Detected file format",
		zap.String("file", filePath),
		zap.String("format", string(format)))

	records, err := LoadFile(filePath)
	if err != nil {
		return nil, err
	}

	return p.Run(ctx, Normalize(records))
}

// Run loads already normalized records in one session. Per-record failures
// are absorbed into the summary; the returned error is only set when the
// session itself cannot be opened, the run is cancelled, or a commit fails.
// The summary is returned in every case.
func (p *Pipeline) Run(ctx context.Context, records []Record) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{}
	p.resetStats(int64(len(records)))

	p.logger.Info("Starting ETL run",
		zap.Int("records", len(records)),
		zap.Duration("statement_timeout", p.config.StatementTimeout),
		zap.Int("commit_every", p.config.CommitEvery))

	sess, err := p.sessions.Begin(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to open session: %w", err)
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			p.abort(sess, summary, start)
			return summary, fmt.Errorf("run cancelled after %d records: %w", i, err)
		}

		valid := IsValidRow(rec, RequiredColumns)
		out := p.dispatcher.Dispatch(ctx, sess, rec, valid)
		if out.Kind == OutcomeError && ctx.Err() != nil && errors.Is(out.Err, ctx.Err()) {
			p.abort(sess, summary, start)
			return summary, fmt.Errorf("run cancelled after %d records: %w", i, ctx.Err())
		}

		p.apply(ctx, sess, rec, out, summary)

		if p.config.CommitEvery > 0 && (i+1)%p.config.CommitEvery == 0 && i+1 < len(records) {
			if sess, err = p.checkpoint(ctx, sess); err != nil {
				summary.Duration = time.Since(start)
				return summary, err
			}
		}

		if (i+1)%p.config.ProgressReport == 0 {
			p.reportProgress()
		}
	}

	if err := sess.Commit(); err != nil {
		summary.Duration = time.Since(start)
		return summary, err
	}
	p.recordCommit()

	summary.Duration = time.Since(start)
	p.logger.Info("ETL run completed",
		zap.Int64("total", summary.Total),
		zap.Int64("inserted", summary.Inserted),
		zap.Int64("duplicates", summary.Duplicates),
		zap.Int64("errors", summary.Errors),
		zap.Int64("missing", summary.Missing),
		zap.Int64("timeouts", summary.Timeouts),
		zap.Int64("reject_sink_failures", summary.RejectSinkFailures),
		zap.Duration("duration", summary.Duration))

	return summary, nil
}

// apply performs the side effects of one outcome: the audit line, the
// rejection insert and the counters.
func (p *Pipeline) apply(ctx context.Context, sess Session, rec Record, out Outcome, summary *RunSummary) {
	switch out.Kind {
	case OutcomeRejectedMissing:
		p.audit.Missing(out.Row, out.Missing)
	case OutcomeDuplicate:
		p.audit.Duplicate(out.Row, out.OrderID)
	case OutcomeTimeout:
		p.audit.Error(out.Row, out.OrderID, "statement timeout")
	case OutcomeError:
		p.audit.Error(out.Row, out.OrderID, orders.Describe(out.Err))
	}

	if out.Rejected() {
		p.reject(ctx, sess, rec, out, summary)
	}

	summary.Count(out.Kind)
	p.recordOutcome(out)
}

// reject writes the record to the rejection store. A failure here is logged
// and counted but never changes the record's outcome.
func (p *Pipeline) reject(ctx context.Context, sess Session, rec Record, out Outcome, summary *RunSummary) {
	if err := sess.InsertRejected(ctx, ToRejectedRow(rec)); err != nil {
		summary.RejectSinkFailures++
		p.logger.Warn("Failed to write rejected record",
			zap.Int("row", out.Row),
			zap.String("order_id", out.OrderID),
			zap.String("outcome", string(out.Kind)),
			zap.Error(err))
	}
}

// checkpoint commits the current session and opens the next one.
func (p *Pipeline) checkpoint(ctx context.Context, sess Session) (Session, error) {
	if err := sess.Commit(); err != nil {
		return nil, err
	}
	p.recordCommit()

	next, err := p.sessions.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return next, nil
}

func (p *Pipeline) abort(sess Session, summary *RunSummary, start time.Time) {
	if err := sess.Rollback(); err != nil {
		p.logger.Error("Failed to rollback session", zap.Error(err))
	}
	summary.Duration = time.Since(start)
	p.logger.Warn("ETL run aborted, uncommitted records rolled back",
		zap.Int64("processed", summary.Total))
}

func (p *Pipeline) recordOutcome(out Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.RecordsDone++
	if out.Kind == OutcomeInserted {
		p.stats.Inserted++
	} else {
		p.stats.Rejected++
	}
	if elapsed := time.Since(p.stats.StartTime).Seconds(); elapsed > 0 {
		p.stats.ProcessingRate = float64(p.stats.RecordsDone) / elapsed
	}
}

func (p *Pipeline) recordCommit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Commits++
}

// reportProgress reports current processing progress
func (p *Pipeline) reportProgress() {
	stats := p.GetStats()
	p.logger.Info("Processing progress",
		zap.Int64("records_done", stats.RecordsDone),
		zap.Int64("records_total", stats.RecordsTotal),
		zap.Int64("inserted", stats.Inserted),
		zap.Int64("rejected", stats.Rejected),
		zap.Float64("rate_per_sec", stats.ProcessingRate),
		zap.Duration("elapsed", time.Since(stats.StartTime)))
}

// resetStats resets processing statistics
func (p *Pipeline) resetStats(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats = &ProcessingStats{
		StartTime:    time.Now(),
		RecordsTotal: total,
	}
}

// GetStats returns current processing statistics
func (p *Pipeline) GetStats() *ProcessingStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	// Create a copy
	stats := *p.stats
	return &stats
}
