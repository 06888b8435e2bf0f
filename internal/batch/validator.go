package batch

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sondeo-labs/crimeval/internal/config"
	"github.com/sondeo-labs/crimeval/internal/corpus"
	"github.com/sondeo-labs/crimeval/internal/model"
	"github.com/sondeo-labs/crimeval/internal/resilience"
	"github.com/sondeo-labs/crimeval/internal/store"
	"github.com/sondeo-labs/crimeval/pkg/classifier"
)

// Validator submits batches to the classification service and persists
// one durable result file per batch id. Result files are written before
// the next batch starts, so a crash loses at most the in-flight batch.
type Validator struct {
	client classifier.Client
	reg    store.Store
	cfg    config.ProcessingConfig
	dir    string // directory for per-batch result files
}

// NewValidator wires a validator against the classifier client and the
// batch-state registry. dir receives one result file per batch.
func NewValidator(client classifier.Client, reg store.Store, cfg config.ProcessingConfig, dir string) *Validator {
	return &Validator{client: client, reg: reg, cfg: cfg, dir: dir}
}

// Summary reports the outcome of one validation run. A batch that
// exhausted its retries appears in Failed; the run itself still completes.
type Summary struct {
	RunID     string              `json:"run_id"`
	Batches   int                 `json:"batches"`
	Skipped   int                 `json:"skipped"`
	Succeeded int                 `json:"succeeded"`
	Partial   int                 `json:"partial"`
	Failed    []model.FailedBatch `json:"failed,omitempty"`
	Cancelled bool                `json:"cancelled,omitempty"`
}

// Run partitions the cleaned corpus and submits every batch. With resume
// set, batches whose persisted result already succeeded are skipped
// without resubmission. Cancellation is honored between batches only; an
// in-flight batch always runs to completion and is persisted.
func (v *Validator) Run(ctx context.Context, dataset string, observations []model.Observation, resume bool) (*Summary, error) {
	batches := Partition(observations, v.cfg.BatchSize)

	run, err := v.reg.CreateRun(ctx, dataset)
	if err != nil {
		return nil, err
	}

	summary := &Summary{RunID: run.ID, Batches: len(batches)}

	zap.L().Info("validation run started",
		zap.String("run_id", run.ID),
		zap.Int("observations", len(observations)),
		zap.Int("batches", len(batches)),
		zap.Bool("resume", resume))

	if v.cfg.MaxConcurrent > 1 {
		err = v.runParallel(ctx, run.ID, batches, resume, summary)
	} else {
		err = v.runSequential(ctx, run.ID, batches, resume, summary)
	}
	if err != nil {
		return nil, err
	}

	status := store.RunStatusComplete
	if summary.Cancelled {
		status = store.RunStatusCancelled
	}
	if err := v.reg.FinishRun(context.WithoutCancel(ctx), run.ID, status); err != nil {
		return nil, err
	}

	zap.L().Info("validation run finished",
		zap.String("run_id", run.ID),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("partial", summary.Partial),
		zap.Int("failed", len(summary.Failed)),
		zap.Int("skipped", summary.Skipped),
		zap.Bool("cancelled", summary.Cancelled))

	return summary, nil
}

func (v *Validator) runSequential(ctx context.Context, runID string, batches []model.Batch, resume bool, summary *Summary) error {
	var mu sync.Mutex
	for i := range batches {
		// Cancellation boundary: only between batches.
		if ctx.Err() != nil {
			summary.Cancelled = true
			return nil
		}

		if err := v.processOne(ctx, runID, &batches[i], resume, summary, &mu); err != nil {
			return err
		}

		if (i+1)%v.cfg.MemoryCleanupEvery == 0 {
			v.releaseBuffers(batches[:i+1])
		}
	}
	return nil
}

func (v *Validator) runParallel(ctx context.Context, runID string, batches []model.Batch, resume bool, summary *Summary) error {
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(v.cfg.MaxConcurrent)

	var done int
	for i := range batches {
		if ctx.Err() != nil {
			mu.Lock()
			summary.Cancelled = true
			mu.Unlock()
			break
		}

		g.Go(func() error {
			if err := v.processOne(ctx, runID, &batches[i], resume, summary, &mu); err != nil {
				return err
			}
			mu.Lock()
			done++
			cleanup := done%v.cfg.MemoryCleanupEvery == 0
			mu.Unlock()
			if cleanup {
				runtime.GC()
			}
			return nil
		})
	}
	return g.Wait()
}

// processOne handles one batch end to end: resume check, submission with
// retry, durable persistence, registry update. Only infrastructure
// failures (registry, result file) return an error; a batch that exhausts
// its retries is recorded and the run moves on.
func (v *Validator) processOne(ctx context.Context, runID string, b *model.Batch, resume bool, summary *Summary, mu *sync.Mutex) error {
	if resume {
		prior, err := v.loadPersisted(b.ID)
		if err != nil {
			return err
		}
		if prior != nil && prior.Status == model.BatchStatusSucceeded {
			zap.L().Info("batch already succeeded, skipping",
				zap.String("batch_id", b.ID))
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			return nil
		}
	}

	result := v.submit(ctx, b)

	if err := corpus.WriteFile(ResultPath(v.dir, b.ID), []model.BatchResult{*result}); err != nil {
		return err
	}

	state := store.BatchState{
		RunID:     runID,
		BatchID:   b.ID,
		Index:     b.Index,
		Size:      len(b.Observations),
		Status:    result.Status,
		Attempts:  result.Attempts,
		LastError: result.LastError,
	}
	if err := v.reg.UpsertBatch(context.WithoutCancel(ctx), state); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	switch result.Status {
	case model.BatchStatusSucceeded:
		summary.Succeeded++
	case model.BatchStatusPartial:
		summary.Partial++
	default:
		summary.Failed = append(summary.Failed, model.FailedBatch{
			BatchID:   b.ID,
			Index:     b.Index,
			Size:      len(b.Observations),
			Attempts:  result.Attempts,
			LastError: result.LastError,
		})
	}
	return nil
}

// submit sends one batch with per-batch timeout and fixed-delay retry.
// Transport failures retry the whole batch; per-case verdict problems are
// carried inside the result.
func (v *Validator) submit(ctx context.Context, b *model.Batch) *model.BatchResult {
	cases := make([]classifier.Case, len(b.Observations))
	for i, obs := range b.Observations {
		cases[i] = classifier.Case{
			ObservationID: obs.ObservationID,
			Category:      obs.Category,
			Narrative:     obs.Text(),
		}
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts: v.cfg.MaxRetries,
		Delay:       v.cfg.RetryDelay(),
		ShouldRetry: func(err error) bool {
			return classifier.IsRetryable(err) || resilience.IsTransient(err)
		},
		OnRetry: resilience.RetryLogger("classifier", "validate "+b.ID),
	}

	// The batch is in flight from here on: operator cancellation no
	// longer reaches the classifier calls, so the batch's external work
	// is never half-done and redone on resume. The loop boundary is the
	// only cancellation point; the per-batch timeout still bounds each
	// attempt.
	submitCtx := context.WithoutCancel(ctx)

	started := time.Now()
	results, attempts, err := resilience.DoVal(submitCtx, retryCfg, func(ctx context.Context) ([]classifier.Result, error) {
		callCtx, cancel := context.WithTimeout(ctx, v.cfg.Timeout())
		defer cancel()
		return v.client.ValidateBatch(callCtx, cases)
	})

	res := &model.BatchResult{
		BatchID:     b.ID,
		Index:       b.Index,
		Attempts:    attempts,
		CompletedAt: time.Now().UTC(),
	}

	if err != nil {
		res.Status = model.BatchStatusFailed
		res.LastError = eris.ToString(err, false)
		zap.L().Error("batch failed after retries",
			zap.String("batch_id", b.ID),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return res
	}

	res.Verdicts = make(map[string]model.Verdict, len(results))
	for _, r := range results {
		res.Verdicts[r.ObservationID] = model.Verdict{
			Match:         r.Match,
			Justification: r.Justification,
			Observed:      r.Observed,
			Error:         r.Err,
			RawResponse:   r.Raw,
		}
	}
	res.Status = res.ResolveStatus()

	zap.L().Info("batch completed",
		zap.String("batch_id", b.ID),
		zap.String("status", string(res.Status)),
		zap.Int("attempts", attempts),
		zap.Duration("elapsed", time.Since(started)))

	return res
}

// loadPersisted returns the durable result for a batch id, or nil when no
// result file exists yet.
func (v *Validator) loadPersisted(batchID string) (*model.BatchResult, error) {
	path := ResultPath(v.dir, batchID)
	if !corpus.Exists(path) {
		return nil, nil
	}
	results, err := corpus.ReadFile[model.BatchResult](path)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// releaseBuffers drops references to already-persisted observations so
// large runs do not accumulate every narrative in memory.
func (v *Validator) releaseBuffers(processed []model.Batch) {
	for i := range processed {
		processed[i].Observations = nil
	}
	runtime.GC()
}
