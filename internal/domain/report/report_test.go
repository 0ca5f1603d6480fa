package report_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/report"
	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntry(t *testing.T) {
	Convey("Given an entry with ties", t, func() {
		e := report.NewEntry()
		e.Append("A", 1)
		e.Append("B", 3)
		e.Append("C", 1)
		e.Append("D", 3)

		Convey("When sorting descending", func() {
			e.SortDesc()

			Convey("Then ties keep their first seen order", func() {
				want := report.Entry{Item: []any{"B", "D", "A", "C"}, Value: []float64{3, 3, 1, 1}}
				So(cmp.Diff(want, e), ShouldBeEmpty)
				So(e.Total(), ShouldEqual, 8)
			})
		})

		Convey("When the entry is empty", func() {
			data, err := json.Marshal(report.NewEntry())

			Convey("Then arrays marshal as empty lists", func() {
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, `{"item":[],"value":[]}`)
			})
		})
	})
}

func TestAssemble(t *testing.T) {
	Convey("Given partials produced in arbitrary order", t, func() {
		catalogue := []string{"zeta", "alpha"}
		partitions := []string{report.PartitionAll, report.PartitionKey(100)}

		boss := report.Partial{Partition: "100", Sections: []report.Section{
			{Metric: "alpha", Entry: report.Entry{Item: []any{"x"}, Value: []float64{1}}},
		}}
		all := report.Partial{Partition: report.PartitionAll, Sections: []report.Section{
			{Metric: "alpha", Entry: report.Entry{Item: []any{10145, "y"}, Value: []float64{2.5, 1}}},
			{Metric: "zeta", Entry: report.Entry{}},
		}}

		Convey("When assembling", func() {
			r1, err1 := report.Assemble(catalogue, partitions, boss, all)
			r2, err2 := report.Assemble(catalogue, partitions, all, boss)
			So(err1, ShouldBeNil)
			So(err2, ShouldBeNil)

			Convey("Then the JSON follows catalogue and partition order", func() {
				data, err := json.Marshal(r1)
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual,
					`{"zeta":{"all":{"item":[],"value":[]}},"alpha":{"all":{"item":[10145,"y"],"value":[2.5,1]},"100":{"item":["x"],"value":[1]}}}`)
			})

			Convey("And the output does not depend on partial order", func() {
				a, _ := json.Marshal(r1)
				b, _ := json.Marshal(r2)
				So(string(a), ShouldEqual, string(b))
			})

			Convey("And entries are retrievable", func() {
				e, ok := r1.Get("alpha", "100")
				So(ok, ShouldBeTrue)
				So(e.Len(), ShouldEqual, 1)
				_, ok = r1.Get("zeta", "100")
				So(ok, ShouldBeFalse)
				So(r1.Metrics(), ShouldResemble, catalogue)
			})
		})

		Convey("When a partial names an unknown metric", func() {
			_, err := report.Assemble(catalogue, partitions, report.Partial{
				Partition: report.PartitionAll,
				Sections:  []report.Section{{Metric: "nope"}},
			})

			Convey("Then an unknown metric error is returned", func() {
				So(errors.Is(err, report.ErrUnknownMetric), ShouldBeTrue)
			})
		})

		Convey("When a partial names an unknown partition", func() {
			_, err := report.Assemble(catalogue, partitions, report.Partial{
				Partition: "999",
				Sections:  []report.Section{{Metric: "alpha"}},
			})

			Convey("Then an unknown partition error is returned", func() {
				So(errors.Is(err, report.ErrUnknownPartition), ShouldBeTrue)
			})
		})
	})
}
