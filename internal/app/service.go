// Package service wires the analysis stages into one batch run: load,
// normalize, select leaders, compute every partition and write the report.
package service

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/JX3BOX/analysis-dungeon-rank/internal/adapters/sink"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/adapters/source"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/aggregate"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/leader"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/model"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/normalize"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/ranking"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/report"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/taxonomy"
	"github.com/JX3BOX/analysis-dungeon-rank/pkg/logger"
	"github.com/JX3BOX/analysis-dungeon-rank/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Stage names used for duration metrics.
const (
	StageLoad      = "load"
	StageNormalize = "normalize"
	StageLeaders   = "leaders"
	StageCompute   = "compute"
	StageAssemble  = "assemble"
	StageWrite     = "write"
)

// Service runs the analysis pipeline.
type Service struct {
	tax         *taxonomy.Taxonomy
	bosses      []int
	workerCount int
	logger      logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount bounds how many partitions are computed at once.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithBosses sets the achieve ids that get their own partition.
func WithBosses(ids []int) Option {
	return func(s *Service) {
		s.bosses = append([]int(nil), ids...)
	}
}

// WithTaxonomy sets the class taxonomy. New loads the embedded default
// otherwise.
func WithTaxonomy(tax *taxonomy.Taxonomy) Option {
	return func(s *Service) {
		if tax != nil {
			s.tax = tax
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration. The Service is
// read-only afterwards, so concurrent runs may share it.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		workerCount: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tax == nil {
		tax, err := taxonomy.Default()
		if err != nil {
			return nil, fmt.Errorf("load default taxonomy: %w", err)
		}
		s.tax = tax
	}
	if s.logger == nil {
		s.logger = logger.Named("pipeline")
	}
	return s, nil
}

// Result describes a finished run.
type Result struct {
	RunID      string
	Report     *report.Report
	Summary    normalize.Summary
	Leaders    int
	Duplicates int
	Partitions int
	Duration   time.Duration
}

// Catalogue returns every report metric in output order.
func Catalogue() []string {
	return append(aggregate.Catalogue(), ranking.Catalogue()...)
}

// RunFile reads input, runs the pipeline and writes the report to output.
// Nothing is written unless every stage succeeded.
func (s *Service) RunFile(ctx context.Context, input, output string) (*Result, error) {
	res, err := s.runFile(ctx, input, output)
	if err != nil {
		metrics.RecordRunFailure()
		return nil, err
	}
	metrics.MarkSuccess(time.Now())
	return res, nil
}

func (s *Service) runFile(ctx context.Context, input, output string) (*Result, error) {
	log := s.logger.With(logger.String("input", input))

	start := time.Now()
	rows, err := source.Read(ctx, input, normalize.RequiredColumns)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	metrics.RecordStageDuration(StageLoad, time.Since(start))
	log.Info(ctx, "source loaded", logger.Int("rows", len(rows)))

	res, err := s.Run(ctx, rows)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	if err := sink.WriteJSON(ctx, output, res.Report); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	metrics.RecordStageDuration(StageWrite, time.Since(start))
	log.Info(ctx, "report written",
		logger.String("run_id", res.RunID),
		logger.String("output", output))
	return res, nil
}

// Run computes the report for already loaded rows.
func (s *Service) Run(ctx context.Context, rows []normalize.Row) (*Result, error) {
	begin := time.Now()
	runID := uuid.NewString()
	log := s.logger.With(logger.String("run_id", runID))

	start := time.Now()
	records, summary, err := normalize.New(s.tax, normalize.WithLogger(log)).Normalize(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	metrics.RecordStageDuration(StageNormalize, time.Since(start))
	recordSummary(summary)
	metrics.UpdateWorkingSetSize(len(records))
	log.Info(ctx, "working set built",
		logger.Int("read", summary.Read),
		logger.Int("admitted", summary.Admitted),
		logger.Int("filtered", summary.Filtered),
		logger.Int("parse_errors", summary.ParseErrors),
		logger.Int("coercion_errors", summary.CoercionErrors))

	start = time.Now()
	board := leader.Select(ctx, records, leader.WithLogger(log))
	metrics.RecordStageDuration(StageLeaders, time.Since(start))
	metrics.UpdateLeaderCount(board.Len())
	metrics.RecordDuplicateLeaders(board.Duplicates())

	partitions := s.partitions(board, records)
	metrics.UpdatePartitionCount(len(partitions))

	start = time.Now()
	partials, err := s.compute(ctx, partitions)
	if err != nil {
		return nil, fmt.Errorf("compute: %w", err)
	}
	metrics.RecordStageDuration(StageCompute, time.Since(start))

	start = time.Now()
	keys := make([]string, len(partitions))
	for i, p := range partitions {
		keys[i] = p.Key
	}
	rep, err := report.Assemble(Catalogue(), keys, partials...)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	metrics.RecordStageDuration(StageAssemble, time.Since(start))
	for _, p := range partials {
		for _, sec := range p.Sections {
			metrics.RecordReportEntry(sec.Metric)
		}
	}
	recordSystemMetrics()

	res := &Result{
		RunID:      runID,
		Report:     rep,
		Summary:    summary,
		Leaders:    board.Len(),
		Duplicates: board.Duplicates(),
		Partitions: len(partitions),
		Duration:   time.Since(begin),
	}
	log.Info(ctx, "report assembled",
		logger.Int("leaders", res.Leaders),
		logger.Int("duplicate_leaders", res.Duplicates),
		logger.Int("partitions", res.Partitions),
		logger.String("duration", res.Duration.String()))
	return res, nil
}

// partitions returns "all" followed by one partition per configured boss.
func (s *Service) partitions(board *leader.Board, records []*model.Record) []model.Partition {
	out := make([]model.Partition, 0, len(s.bosses)+1)
	out = append(out, model.Partition{Key: report.PartitionAll, Leaders: board.Rows(), Records: records})
	for _, id := range s.bosses {
		var recs []*model.Record
		for _, r := range records {
			if r.AchieveID == id {
				recs = append(recs, r)
			}
		}
		out = append(out, model.Partition{
			Key:     report.PartitionKey(id),
			Leaders: board.Boss(id).Rows(),
			Records: recs,
		})
	}
	return out
}

// compute evaluates every partition on a bounded group. Each goroutine
// writes only its own slot.
func (s *Service) compute(ctx context.Context, partitions []model.Partition) ([]report.Partial, error) {
	engine := aggregate.New(s.tax)
	ranker := ranking.New(s.tax, ranking.WithRuleObserver(func(_ string, _ int, rule ranking.Rule) {
		metrics.RecordRankingRule(string(rule))
	}))

	partials := make([]report.Partial, len(partitions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerCount)
	for i, p := range partitions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sections := engine.Compute(p)
			sections = append(sections, ranker.Compute(p)...)
			partials[i] = report.Partial{Partition: p.Key, Sections: sections}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return partials, nil
}

func recordSummary(sum normalize.Summary) {
	metrics.RecordRowsRead(sum.Read)
	metrics.RecordRowsAdmitted(sum.Admitted)
	metrics.RecordRowsFiltered(sum.Filtered)
	metrics.RecordRowsDropped("parse", sum.ParseErrors)
	metrics.RecordRowsDropped("coercion", sum.CoercionErrors)
}

func recordSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
