package model_test

import (
	"testing"

	model "github.com/JX3BOX/analysis-dungeon-rank/internal/domain/model"
	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/taxonomy"
	"github.com/smartystreets/goconvey/convey"
)

func TestTally(t *testing.T) {
	convey.Convey("Given an empty tally", t, func() {
		var tally model.Tally[string]

		convey.Convey("Then it reports nothing", func() {
			convey.So(tally.Len(), convey.ShouldEqual, 0)
			convey.So(tally.Total(), convey.ShouldEqual, 0)
			convey.So(tally.Get("a"), convey.ShouldEqual, 0)
		})

		convey.Convey("When keys are added repeatedly", func() {
			tally.Add("b", 1)
			tally.Add("a", 2)
			tally.Add("b", 3)

			convey.Convey("Then counts accumulate and first-added order is kept", func() {
				convey.So(tally.Keys(), convey.ShouldResemble, []string{"b", "a"})
				convey.So(tally.Get("b"), convey.ShouldEqual, 4)
				convey.So(tally.Total(), convey.ShouldEqual, 6)
			})
		})
	})
}

func TestComposition(t *testing.T) {
	convey.Convey("Given a team with an unknown class", t, func() {
		tax, err := taxonomy.Default()
		convey.So(err, convey.ShouldBeNil)

		teammates := []model.Teammate{
			{Name: "a", ClassID: 10448}, // heal, force 22
			{Name: "b", ClassID: 10002}, // tank, force 1
			{Name: "c", ClassID: 10448},
			{Name: "d", ClassID: 77777},
		}

		convey.Convey("When deriving the composition", func() {
			c := model.NewComposition(tax, teammates)

			convey.Convey("Then the raw class count includes every slot", func() {
				convey.So(c.Classes.Total(), convey.ShouldEqual, 4)
				convey.So(c.Classes.Get(77777), convey.ShouldEqual, 1)
				convey.So(c.Classes.Keys(), convey.ShouldResemble, []int{10448, 10002, 77777})
			})

			convey.Convey("And role and force sums skip the unknown class", func() {
				convey.So(c.Roles.Total(), convey.ShouldEqual, 3)
				convey.So(c.Roles.Get(taxonomy.Heal), convey.ShouldEqual, 2)
				convey.So(c.Roles.Get(taxonomy.Tank), convey.ShouldEqual, 1)
				convey.So(c.Forces.Total(), convey.ShouldEqual, 3)
				convey.So(c.Forces.Get(22), convey.ShouldEqual, 2)
			})
		})
	})
}

func TestRecordValue(t *testing.T) {
	convey.Convey("Given a record with metric values", t, func() {
		r := &model.Record{Damage: 1, DPS: 2, Therapy: 3, HPS: 4}

		convey.Convey("Then Value selects the matching column", func() {
			convey.So(r.Value(model.Damage), convey.ShouldEqual, 1)
			convey.So(r.Value(model.DPS), convey.ShouldEqual, 2)
			convey.So(r.Value(model.Therapy), convey.ShouldEqual, 3)
			convey.So(r.Value(model.HPS), convey.ShouldEqual, 4)
			convey.So(r.Value(model.Metric("unknown")), convey.ShouldEqual, 0)
		})
	})
}
