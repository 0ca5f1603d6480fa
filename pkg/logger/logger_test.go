package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given an initialized logger", t, func() {
		So(Init(WithOutput(&bytes.Buffer{})), ShouldBeNil)

		Convey("Then Get returns it", func() {
			So(Get(), ShouldNotBeNil)
		})

		Convey("And Named returns a child logger", func() {
			So(Named("test"), ShouldNotBeNil)
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf), WithJSON(true)), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().With(String("run_id", "r-1")).Named("pipeline").Info(ctx, "stage done", Int("rows", 3))

			Convey("Then the entry carries every field and the caller", func() {
				var entry map[string]any
				So(json.Unmarshal(buf.Bytes(), &entry), ShouldBeNil)
				So(entry["msg"], ShouldEqual, "stage done")
				So(entry["run_id"], ShouldEqual, "r-1")
				So(entry["component"], ShouldEqual, "pipeline")
				So(entry["rows"], ShouldEqual, float64(3))
				So(entry["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			defer func() { _ = SetLevelString("info") }()
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")

			Convey("Then only the warning is written", func() {
				So(strings.Contains(buf.String(), "hidden"), ShouldBeFalse)
				So(strings.Contains(buf.String(), "shown"), ShouldBeTrue)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level names", t, func() {
		So(Init(WithOutput(&bytes.Buffer{})), ShouldBeNil)

		Convey("Then known names are accepted", func() {
			for _, lvl := range []string{"debug", "INFO", " warn ", "warning", "error", ""} {
				So(SetLevelString(lvl), ShouldBeNil)
			}
		})

		Convey("And unknown names are rejected", func() {
			So(SetLevelString("verbose"), ShouldNotBeNil)
		})
	})
}
