// Package splitter partitions the pages of a scanned multi-receipt document into
// individual invoices and flags expense-report container pages.
//
// Two strategies exist. When any page carries an image, adjacent pages are compared
// pairwise with a vision-capable model and boundaries are accepted only on
// confident "different document" verdicts. Otherwise the text of every page is sent
// in one request and the model proposes the whole partition. Any failure collapses
// into a single low-confidence group covering the whole document, so callers always
// receive a valid partition.
package splitter

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"doc-splitter/internal/llm"
	"doc-splitter/internal/metrics"
	"doc-splitter/internal/models"

	"go.uber.org/zap"
)

// Outcome is the result of one analysis together with how it was produced.
type Outcome struct {
	Result   models.PageAnalysisResult
	Strategy models.Strategy
	Fallback bool
	// Err is the failure that triggered the fallback, nil otherwise.
	Err error
}

// Splitter is safe for concurrent use; every call owns its own state.
type Splitter struct {
	cfg    Config
	pair   *PairClassifier
	batch  *BatchClassifier
	logger *zap.Logger
}

func New(client llm.Client, cfg Config, logger *zap.Logger) *Splitter {
	cfg = cfg.withDefaults()
	return &Splitter{
		cfg:    cfg,
		pair:   NewPairClassifier(client, cfg, logger),
		batch:  NewBatchClassifier(client, cfg, logger),
		logger: logger,
	}
}

// AnalyzePages partitions pages into invoice groups. It never fails.
func (s *Splitter) AnalyzePages(ctx context.Context, pages []models.Page) models.PageAnalysisResult {
	return s.Analyze(ctx, pages).Result
}

// Analyze is AnalyzePages with the strategy and fallback details exposed.
func (s *Splitter) Analyze(ctx context.Context, pages []models.Page) Outcome {
	start := time.Now()

	ordered := slices.Clone(pages)
	slices.SortStableFunc(ordered, func(a, b models.Page) int { return cmp.Compare(a.PageNumber, b.PageNumber) })

	out := Outcome{Strategy: selectStrategy(ordered)}
	switch out.Strategy {
	case models.StrategyEmpty:
		out.Result = emptyResult()
	case models.StrategySingle:
		out.Result = singlePageResult(ordered[0])
	default:
		result, err := s.run(ctx, out.Strategy, ordered)
		if err != nil {
			s.logger.Error("Page analysis failed, falling back to a single invoice",
				zap.String("strategy", string(out.Strategy)),
				zap.Int("pages", len(ordered)),
				zap.Error(err),
			)
			result = fallbackResult(ordered, err, s.cfg)
			out.Fallback = true
			out.Err = err
		}
		out.Result = result
	}

	s.record(out, len(ordered), time.Since(start))
	return out
}

func selectStrategy(pages []models.Page) models.Strategy {
	switch len(pages) {
	case 0:
		return models.StrategyEmpty
	case 1:
		return models.StrategySingle
	}
	for _, p := range pages {
		if p.HasImage() {
			return models.StrategyVision
		}
	}
	return models.StrategyText
}

// run executes the chosen strategy. Panics are turned into errors so the
// fallback still applies.
func (s *Splitter) run(ctx context.Context, strategy models.Strategy, pages []models.Page) (result models.PageAnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected panic during %s analysis: %v", strategy, r)
		}
	}()

	if strategy == models.StrategyVision {
		return s.runVision(ctx, pages)
	}
	return s.runText(ctx, pages)
}

// runVision compares every adjacent pair in page order, one request at a time.
func (s *Splitter) runVision(ctx context.Context, pages []models.Page) (models.PageAnalysisResult, error) {
	decisions := make([]models.BoundaryDecision, 0, len(pages)-1)
	for i := 0; i+1 < len(pages); i++ {
		if err := ctx.Err(); err != nil {
			return models.PageAnalysisResult{}, fmt.Errorf("analysis cancelled after %d of %d comparisons: %w", i, len(pages)-1, err)
		}
		d := s.pair.Compare(ctx, pages[i], pages[i+1])
		d.PageAIndex, d.PageBIndex = i, i+1
		decisions = append(decisions, d)
	}
	return AssembleFromDecisions(pages, decisions, s.cfg)
}

func (s *Splitter) runText(ctx context.Context, pages []models.Page) (models.PageAnalysisResult, error) {
	raw, err := s.batch.Classify(ctx, pages)
	if err != nil {
		return models.PageAnalysisResult{}, err
	}
	return AssembleFromPartition(pages, raw, s.cfg)
}

func (s *Splitter) record(out Outcome, pages int, elapsed time.Duration) {
	outcome := "success"
	if out.Fallback {
		outcome = "fallback"
	}
	metrics.AnalysesTotal.WithLabelValues(string(out.Strategy), outcome).Inc()
	metrics.InvoicesPerAnalysis.Observe(float64(out.Result.TotalInvoices))

	containers := 0
	for _, g := range out.Result.PageGroups {
		if g.IsExpensifyExport {
			containers++
		}
	}
	metrics.ContainerGroupsTotal.Add(float64(containers))

	s.logger.Info("Page analysis completed",
		zap.String("strategy", string(out.Strategy)),
		zap.Bool("fallback", out.Fallback),
		zap.Int("pages", pages),
		zap.Int("invoices", out.Result.TotalInvoices),
		zap.Int("containers", containers),
		zap.Duration("elapsed", elapsed),
	)
}
