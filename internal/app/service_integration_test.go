package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	service "github.com/JX3BOX/analysis-dungeon-rank/internal/app"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/adapters/source"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/taxonomy"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/synth"
	"github.com/JX3BOX/analysis-dungeon-rank/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func counter(name string) float64 {
	families, err := metrics.Snapshot()
	So(err, ShouldBeNil)
	return metrics.Sum(families[name])
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a synthetic input file", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tax, err := taxonomy.Default()
		So(err, ShouldBeNil)
		dir := t.TempDir()
		input := filepath.Join(dir, "input.csv")
		output := filepath.Join(dir, "result.json")

		cfg := synth.DefaultConfig()
		cfg.Teams = 60
		cfg.Seed = 42
		cfg.MalformedRate = 0
		stats, err := synth.GenerateFile(ctx, cfg, tax, input)
		So(err, ShouldBeNil)

		svc, err := service.New(
			service.WithTaxonomy(tax),
			service.WithBosses(cfg.Bosses),
			service.WithWorkerCount(2),
		)
		So(err, ShouldBeNil)

		Convey("When running the whole pipeline", func() {
			readBefore := counter("dungeon_rank_rows_read_total")
			res, err := svc.RunFile(ctx, input, output)
			So(err, ShouldBeNil)

			Convey("Then the report is written with every metric and partition", func() {
				data, err := os.ReadFile(output)
				So(err, ShouldBeNil)

				var doc map[string]map[string]struct {
					Item  []any     `json:"item"`
					Value []float64 `json:"value"`
				}
				So(json.Unmarshal(data, &doc), ShouldBeNil)
				So(len(doc), ShouldEqual, len(service.Catalogue()))
				for _, metric := range service.Catalogue() {
					So(doc, ShouldContainKey, metric)
					So(doc[metric], ShouldContainKey, "all")
				}
				So(len(doc["server_rank_team_count"]), ShouldEqual, 1+len(cfg.Bosses))
			})

			Convey("And the row counts reach the metrics registry", func() {
				So(res.Summary.Read, ShouldEqual, stats.Rows)
				So(counter("dungeon_rank_rows_read_total")-readBefore, ShouldEqual, float64(stats.Rows))
				So(counter("dungeon_rank_last_success_unix"), ShouldBeGreaterThan, 0)
			})

			Convey("And leaders exclude rejected teams", func() {
				So(res.Leaders, ShouldEqual, stats.Teams-stats.Rejected)
			})
		})

		Convey("When the input does not exist", func() {
			failuresBefore := counter("dungeon_rank_run_failures_total")
			_, err := svc.RunFile(ctx, filepath.Join(dir, "missing.csv"), output)

			Convey("Then the run fails without writing a report", func() {
				So(errors.Is(err, source.ErrUnreadable), ShouldBeTrue)
				_, statErr := os.Stat(output)
				So(os.IsNotExist(statErr), ShouldBeTrue)
				So(counter("dungeon_rank_run_failures_total")-failuresBefore, ShouldEqual, 1)
			})
		})
	})
}

