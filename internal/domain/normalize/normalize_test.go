package normalize_test

import (
	"context"
	"errors"
	"testing"

	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/normalize"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/taxonomy"
	. "github.com/smartystreets/goconvey/convey"
)

func validRow(line int) normalize.Fields {
	return normalize.Fields{
		LineNo: line,
		Values: map[string]string{
			"team_id":     "t1",
			"achieve_id":  "100",
			"server":      "A",
			"finish_time": "1700000000",
			"start_time":  "1699999000",
			"fight_time":  "1000.5",
			"is_leader":   "1",
			"mount":       "10144",
			"damage":      "5000",
			"dps":         "50",
			"therapy":     "0",
			"hps":         "0",
			"status":      "1",
			"verified":    "1",
			"teammate":    "a,10448,g1,r1;b,10144,g2,r2;c,99999,g3,r3;",
			"guid":        "guid-1",
		},
	}
}

func with(row normalize.Fields, col, val string) normalize.Fields {
	values := make(map[string]string, len(row.Values))
	for k, v := range row.Values {
		values[k] = v
	}
	if val == "<missing>" {
		delete(values, col)
	} else {
		values[col] = val
	}
	return normalize.Fields{Values: values, LineNo: row.LineNo}
}

func TestDecodeTeammates(t *testing.T) {
	Convey("Given an embedded teammate field", t, func() {
		Convey("When it is well formed with a trailing separator", func() {
			tms, err := normalize.DecodeTeammates("a,10002,g1,r1;b,10144,g2,r2;")

			Convey("Then every tuple is decoded and legacy ids are rewritten", func() {
				So(err, ShouldBeNil)
				So(len(tms), ShouldEqual, 2)
				So(tms[0].Name, ShouldEqual, "a")
				So(tms[0].ClassID, ShouldEqual, 10002)
				So(tms[0].GlobalRoleID, ShouldEqual, "g1")
				So(tms[1].ClassID, ShouldEqual, 10145)
				So(tms[1].RoleID, ShouldEqual, "r2")
			})
		})

		cases := map[string]string{
			"an empty field":       "",
			"too few fields":       "a,10002,g1",
			"too many fields":      "a,10002,g1,r1,x",
			"a non numeric class":  "a,x,g1,r1",
			"only separators":      ";;",
			"one bad tuple of two": "a,10002,g1,r1;b,10002",
		}
		for name, field := range cases {
			Convey("When it has "+name, func() {
				_, err := normalize.DecodeTeammates(field)

				Convey("Then a parse error is returned", func() {
					So(errors.Is(err, normalize.ErrParse), ShouldBeTrue)
				})
			})
		}
	})
}

func TestNormalizerRecord(t *testing.T) {
	Convey("Given a normalizer with the default taxonomy", t, func() {
		tax, err := taxonomy.Default()
		So(err, ShouldBeNil)
		n := normalize.New(tax)

		Convey("When a valid row is normalized", func() {
			rec, err := n.Record(validRow(2))

			Convey("Then all columns are coerced", func() {
				So(err, ShouldBeNil)
				So(rec.Line, ShouldEqual, 2)
				So(rec.TeamID, ShouldEqual, "t1")
				So(rec.AchieveID, ShouldEqual, 100)
				So(rec.FinishTime, ShouldEqual, int64(1700000000))
				So(rec.FightTime, ShouldEqual, 1000.5)
				So(rec.IsLeader, ShouldBeTrue)
				So(rec.DPS, ShouldEqual, 50)
				So(rec.GUID, ShouldEqual, "guid-1")
				So(rec.UID, ShouldEqual, "")
			})

			Convey("And the legacy class id is rewritten", func() {
				So(rec.ClassID, ShouldEqual, 10145)
				So(rec.Teammates[1].ClassID, ShouldEqual, 10145)
			})

			Convey("And the composition skips unresolved classes in role sums", func() {
				So(rec.Composition.Classes.Total(), ShouldEqual, 3)
				So(rec.Composition.Roles.Total(), ShouldEqual, 2)
				So(rec.Composition.Roles.Get(taxonomy.Heal), ShouldEqual, 1)
				So(rec.Composition.Forces.Get(8), ShouldEqual, 1)
			})
		})

		Convey("When status or verified is not 1", func() {
			_, errStatus := n.Record(with(validRow(3), "status", "0"))
			_, errVerified := n.Record(with(validRow(4), "verified", "2"))

			Convey("Then the row is rejected, not failed", func() {
				So(errors.Is(errStatus, normalize.ErrRejected), ShouldBeTrue)
				So(errors.Is(errVerified, normalize.ErrRejected), ShouldBeTrue)
				So(errors.Is(errStatus, normalize.ErrCoercion), ShouldBeFalse)
			})
		})

		coercion := []struct {
			name, col, val string
		}{
			{"a missing dps", "dps", "<missing>"},
			{"an empty hps", "hps", ""},
			{"a non numeric fight time", "fight_time", "fast"},
			{"a NaN damage", "damage", "NaN"},
			{"an infinite therapy", "therapy", "+Inf"},
			{"a fractional achieve id", "achieve_id", "100.5"},
			{"a non numeric status", "status", "yes"},
		}
		for _, tc := range coercion {
			Convey("When the row has "+tc.name, func() {
				_, err := n.Record(with(validRow(5), tc.col, tc.val))

				Convey("Then a coercion error carrying the line is returned", func() {
					So(errors.Is(err, normalize.ErrCoercion), ShouldBeTrue)
					var rowErr *normalize.RowError
					So(errors.As(err, &rowErr), ShouldBeTrue)
					So(rowErr.Line, ShouldEqual, 5)
				})
			})
		}

		Convey("When an integral value is written as a float", func() {
			rec, err := n.Record(with(validRow(6), "achieve_id", "100.0"))

			Convey("Then it is accepted", func() {
				So(err, ShouldBeNil)
				So(rec.AchieveID, ShouldEqual, 100)
			})
		})

		Convey("When the teammate field is malformed", func() {
			_, err := n.Record(with(validRow(7), "teammate", "a,b"))

			Convey("Then a parse error is returned", func() {
				So(errors.Is(err, normalize.ErrParse), ShouldBeTrue)
			})
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given a mix of rows", t, func() {
		tax, err := taxonomy.Default()
		So(err, ShouldBeNil)
		n := normalize.New(tax)

		rows := []normalize.Row{
			validRow(2),
			with(validRow(3), "status", "0"),
			with(validRow(4), "teammate", ""),
			with(validRow(5), "dps", "x"),
			with(validRow(6), "team_id", "t2"),
		}

		Convey("When normalizing the batch", func() {
			records, sum, err := n.Normalize(context.Background(), rows)

			Convey("Then only valid admitted rows are kept with sequential positions", func() {
				So(err, ShouldBeNil)
				So(len(records), ShouldEqual, 2)
				So(records[0].Seq, ShouldEqual, 0)
				So(records[1].Seq, ShouldEqual, 1)
				So(records[1].TeamID, ShouldEqual, "t2")
			})

			Convey("And the summary counts every outcome", func() {
				So(sum, ShouldResemble, normalize.Summary{
					Read: 5, Admitted: 2, Filtered: 1, ParseErrors: 1, CoercionErrors: 1,
				})
				So(sum.Dropped(), ShouldEqual, 2)
			})
		})

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, _, err := n.Normalize(ctx, rows)

			Convey("Then the cancellation is returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}
