package taxonomy_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/taxonomy"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaultTaxonomy(t *testing.T) {
	Convey("Given the embedded catalogs", t, func() {
		tax, err := taxonomy.Default()
		So(err, ShouldBeNil)

		Convey("Then classes resolve to forces", func() {
			f, ok := tax.Force(10002)
			So(ok, ShouldBeTrue)
			So(f, ShouldEqual, 1)

			f, ok = tax.Force(10627)
			So(ok, ShouldBeTrue)
			So(f, ShouldEqual, 212)
		})

		Convey("And classes resolve to role groups", func() {
			g, ok := tax.Role(10448)
			So(ok, ShouldBeTrue)
			So(g, ShouldEqual, taxonomy.Heal)
			So(tax.InGroup(10389, taxonomy.Tank), ShouldBeTrue)
			So(tax.InGroup(10026, taxonomy.DPS...), ShouldBeTrue)
			So(tax.InGroup(10026, taxonomy.Heal), ShouldBeFalse)
		})

		Convey("And the legacy id is folded into its canonical class", func() {
			So(taxonomy.Canonical(10144), ShouldEqual, 10145)
			So(taxonomy.Canonical(10145), ShouldEqual, 10145)
			So(tax.Classes(taxonomy.ExternalDPS), ShouldContain, 10145)
			So(tax.Classes(taxonomy.ExternalDPS), ShouldNotContain, 10144)
		})

		Convey("And unknown classes stay unresolved", func() {
			_, ok := tax.Force(99999)
			So(ok, ShouldBeFalse)
			_, ok = tax.Role(99999)
			So(ok, ShouldBeFalse)
			So(tax.InGroup(99999, taxonomy.RoleGroups...), ShouldBeFalse)
		})

		Convey("And every group is populated", func() {
			So(len(tax.Classes(taxonomy.Heal)), ShouldEqual, 5)
			So(len(tax.Classes(taxonomy.Tank)), ShouldEqual, 4)
			So(len(tax.Classes(taxonomy.InternalDPS)), ShouldEqual, 10)
			So(len(tax.Classes(taxonomy.ExternalDPS)), ShouldEqual, 11)
			So(tax.Len(), ShouldEqual, 30)
		})
	})
}

func TestParseUpstreamJSON(t *testing.T) {
	Convey("Given catalogs in the upstream JSON layout", t, func() {
		school := []byte(`{"shaolin": {"force_id": 1, "name": "少林", "mounts": [10002, 10003]}}`)
		groups := []byte(`{"mount_group": {"坦克": [10002], "内攻": [10003]}}`)

		Convey("When parsing", func() {
			tax, err := taxonomy.Parse(school, groups)

			Convey("Then unknown keys are ignored and labels map to role groups", func() {
				So(err, ShouldBeNil)
				g, _ := tax.Role(10003)
				So(g, ShouldEqual, taxonomy.InternalDPS)
				f, _ := tax.Force(10002)
				So(f, ShouldEqual, 1)
			})
		})
	})
}

func TestParseErrors(t *testing.T) {
	Convey("Given broken catalogs", t, func() {
		school := []byte(`{a: {force_id: 1, mounts: [1]}}`)
		groups := []byte(`{mount_group: {heal: [1]}}`)

		cases := []struct {
			name   string
			school []byte
			groups []byte
		}{
			{"unparseable school", []byte(`{a: [`), groups},
			{"empty school", []byte(`{}`), groups},
			{"class in two forces", []byte(`{a: {force_id: 1, mounts: [1]}, b: {force_id: 2, mounts: [1]}}`), groups},
			{"unparseable groups", school, []byte(`mount_group: [`)},
			{"no groups", school, []byte(`{other: 1}`)},
			{"unknown group", school, []byte(`{mount_group: {support: [1]}}`)},
			{"class in two groups", school, []byte(`{mount_group: {heal: [1], tank: [1]}}`)},
		}

		for _, tc := range cases {
			Convey("When the catalog has "+tc.name, func() {
				_, err := taxonomy.Parse(tc.school, tc.groups)

				Convey("Then a config error is returned", func() {
					So(errors.Is(err, taxonomy.ErrConfig), ShouldBeTrue)
				})
			})
		}

		Convey("When a class sits in several groups", func() {
			conflict := []byte(`{mount_group: {tank: [1], heal: [1], internal-dps: [1]}}`)
			_, first := taxonomy.Parse(school, conflict)

			Convey("Then every parse reports the same pair", func() {
				So(first, ShouldNotBeNil)
				So(first.Error(), ShouldContainSubstring, "class 1 is in heal and internal-dps")
				for i := 0; i < 20; i++ {
					_, err := taxonomy.Parse(school, conflict)
					So(err.Error(), ShouldEqual, first.Error())
				}
			})
		})
	})
}

func TestLoadFiles(t *testing.T) {
	Convey("Given catalog files on disk", t, func() {
		dir := t.TempDir()
		schoolPath := filepath.Join(dir, "school.json")
		groupPath := filepath.Join(dir, "mount_group.json")
		So(os.WriteFile(schoolPath, []byte(`{"x": {"force_id": 7, "mounts": [10224]}}`), 0o600), ShouldBeNil)
		So(os.WriteFile(groupPath, []byte(`{"mount_group": {"外攻": [10224]}}`), 0o600), ShouldBeNil)

		Convey("When loading both", func() {
			tax, err := taxonomy.Load(context.Background(), schoolPath, groupPath)

			Convey("Then the files replace the defaults", func() {
				So(err, ShouldBeNil)
				So(tax.Len(), ShouldEqual, 1)
			})
		})

		Convey("When a file is missing", func() {
			_, err := taxonomy.Load(context.Background(), filepath.Join(dir, "nope.json"), groupPath)

			Convey("Then a config error is returned", func() {
				So(errors.Is(err, taxonomy.ErrConfig), ShouldBeTrue)
			})
		})
	})
}
