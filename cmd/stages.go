package main

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sondeo-labs/crimeval/internal/analyze"
	"github.com/sondeo-labs/crimeval/internal/batch"
	"github.com/sondeo-labs/crimeval/internal/corpus"
	"github.com/sondeo-labs/crimeval/internal/ingest"
	"github.com/sondeo-labs/crimeval/internal/model"
	"github.com/sondeo-labs/crimeval/internal/pattern"
	reportpkg "github.com/sondeo-labs/crimeval/internal/report"
	"github.com/sondeo-labs/crimeval/internal/store"
	"github.com/sondeo-labs/crimeval/internal/taxonomy"
	"github.com/sondeo-labs/crimeval/internal/unify"
	"github.com/sondeo-labs/crimeval/pkg/classifier"
)

// Durable stage outputs under the data directory. Every stage reads its
// predecessor's file, never an in-memory handoff.
const (
	fileCleaned   = "cleaned.jsonl"
	fileRejected  = "rejected.jsonl"
	filePatterns  = "patterns.jsonl"
	fileFlattened = "flattened.jsonl"
	fileNested    = "nested.jsonl"
	fileGaps      = "gaps.jsonl"
	fileErrors    = "errors.jsonl"
	fileReport    = "report.xlsx"
	dirBatches    = "batches"
)

func dataPath(name string) string {
	return filepath.Join(cfg.Data.Dir, name)
}

func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func patternConfig() pattern.Config {
	return pattern.Config{
		MinCount:        cfg.Processing.PatternMinCount,
		MinPercent:      cfg.Processing.PatternMinPercent,
		MinNarrativeLen: cfg.Processing.MinNarrativeLen,
		MinWords:        cfg.Processing.MinWords,
	}
}

// stageClean ingests the survey workbook, analyzes and strips recurring
// leading fragments, and writes the cleaned corpus plus the rejected and
// pattern files.
func stageClean(input, sheet string) error {
	tax, err := taxonomy.Load(cfg.Data.TaxonomyPath)
	if err != nil {
		return err
	}

	loaded, err := ingest.LoadWorkbook(input, ingest.Options{
		SheetName:       sheet,
		MinNarrativeLen: cfg.Processing.MinNarrativeLen,
		MinWords:        cfg.Processing.MinWords,
	})
	if err != nil {
		return err
	}

	accepted, unknown := splitKnownCategories(tax, loaded.Observations)
	rejected := append(loaded.Rejected, unknown...)

	report := pattern.Analyze(patternConfig(), tax, accepted)
	cleaned := pattern.Clean(patternConfig(), report, accepted)
	rejected = append(rejected, cleaned.Rejected...)

	if err := corpus.WriteFile(dataPath(fileCleaned), cleaned.Cleaned); err != nil {
		return err
	}
	if err := corpus.WriteFile(dataPath(fileRejected), rejected); err != nil {
		return err
	}
	return corpus.WriteFile(dataPath(filePatterns), report.Patterns)
}

// splitKnownCategories rejects observations whose category code is not in
// the taxonomy; the classifier cannot audit against an unknown code.
func splitKnownCategories(tax *taxonomy.Taxonomy, obs []model.Observation) ([]model.Observation, []model.RejectedObservation) {
	var accepted []model.Observation
	var rejected []model.RejectedObservation
	for _, o := range obs {
		if !tax.Known(o.Category) {
			rejected = append(rejected, model.RejectedObservation{
				Observation: o,
				Reason:      model.RejectInputRejected,
				Detail:      "category code not in taxonomy: " + o.Category,
			})
			continue
		}
		accepted = append(accepted, o)
	}
	return accepted, rejected
}

// stageValidate submits the cleaned corpus in batches and persists one
// result file per batch.
func stageValidate(ctx context.Context, dataset string, resume bool) (*batch.Summary, error) {
	if err := cfg.RequireClassifierKey(); err != nil {
		return nil, err
	}

	tax, err := taxonomy.Load(cfg.Data.TaxonomyPath)
	if err != nil {
		return nil, err
	}
	cleaned, err := corpus.ReadFile[model.Observation](dataPath(fileCleaned))
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	client := classifier.New(cfg.Classifier.Key, classifier.Options{
		Model:         cfg.Classifier.Model,
		MaxTokens:     int64(cfg.Classifier.MaxTokens),
		RatePerSecond: cfg.Classifier.RatePerSecond,
		MaxConcurrent: cfg.Processing.MaxConcurrent,
		Categories:    tax.Categories,
	})

	v := batch.NewValidator(client, st, cfg.Processing, dataPath(dirBatches))
	return v.Run(ctx, dataset, cleaned, resume)
}

// stageUnify merges the persisted batch results into the flattened,
// nested and gap files.
func stageUnify() (*unify.Output, error) {
	cleaned, err := corpus.ReadFile[model.Observation](dataPath(fileCleaned))
	if err != nil {
		return nil, err
	}

	out, err := unify.Unify(cleaned, dataPath(dirBatches), cfg.Processing.BatchSize)
	if err != nil {
		return nil, err
	}

	if err := corpus.WriteFile(dataPath(fileFlattened), out.Flat); err != nil {
		return nil, err
	}
	if err := corpus.WriteFile(dataPath(fileNested), out.Subjects); err != nil {
		return nil, err
	}
	if err := corpus.WriteFile(dataPath(fileGaps), out.Gaps); err != nil {
		return nil, err
	}
	return out, nil
}

// stageErrors rebuilds the adjudication file from the unified outputs.
// The previous extraction is replaced wholesale.
func stageErrors() ([]model.ErrorRecord, error) {
	flat, err := corpus.ReadFile[model.FlatRecord](dataPath(fileFlattened))
	if err != nil {
		return nil, err
	}

	var gaps []model.CoverageGap
	if corpus.Exists(dataPath(fileGaps)) {
		gaps, err = corpus.ReadFile[model.CoverageGap](dataPath(fileGaps))
		if err != nil {
			return nil, err
		}
	}

	recs := analyze.Extract(flat, gaps)
	if err := corpus.WriteFile(dataPath(fileErrors), recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// stageReport renders the reviewer workbook from the flattened and error
// files.
func stageReport() error {
	flat, err := corpus.ReadFile[model.FlatRecord](dataPath(fileFlattened))
	if err != nil {
		return err
	}
	errs, err := corpus.ReadFile[model.ErrorRecord](dataPath(fileErrors))
	if err != nil {
		return err
	}

	if err := reportpkg.Write(dataPath(fileReport), flat, errs); err != nil {
		return err
	}
	zap.L().Info("pipeline report ready", zap.String("path", dataPath(fileReport)))
	return nil
}
