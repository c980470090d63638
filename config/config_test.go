package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConfig(contents string) string {
	path := filepath.Join(os.TempDir(), "pathgrid-config-test.yaml")
	So(os.WriteFile(path, []byte(contents), 0o644), ShouldBeNil)
	return path
}

func TestFromYaml(t *testing.T) {
	Convey("A missing file yields the defaults", t, func() {
		cfg, err := FromYaml(filepath.Join(os.TempDir(), "pathgrid-no-such-config.yaml"))
		So(err, ShouldBeNil)
		So(cfg, ShouldResemble, Default())
		So(cfg.Grid.Columns, ShouldEqual, 20)
		So(cfg.Grid.Rows, ShouldEqual, 20)
		So(cfg.Addr(), ShouldEqual, ":8080")
	})

	Convey("The repository config loads", t, func() {
		cfg, err := FromYaml("../config.yaml")
		So(err, ShouldBeNil)
		So(cfg.Server.Codec, ShouldEqual, "json")
		So(cfg.Server.PublishResolution, ShouldEqual, 20*time.Millisecond)
		So(cfg.Server.ClientBuffer, ShouldEqual, 256)
	})

	Convey("Values in the file override the defaults it names", t, func() {
		path := writeConfig(`
kind: pathgrid
def:
  grid:
    columns: 40
    rows: 12
  server:
    port: "9090"
    publishResolution: 50ms
`)
		defer os.Remove(path)

		cfg, err := FromYaml(path)
		So(err, ShouldBeNil)
		So(cfg.Grid, ShouldResemble, GridConfig{Columns: 40, Rows: 12})
		So(cfg.Server.Port, ShouldEqual, "9090")
		So(cfg.Server.PublishResolution, ShouldEqual, 50*time.Millisecond)
		So(cfg.Server.ClientBuffer, ShouldEqual, Default().Server.ClientBuffer)
		So(cfg.Log.Level, ShouldEqual, "info")
	})

	Convey("A file of another kind is rejected", t, func() {
		path := writeConfig("kind: training\ndef:\n  grid:\n    columns: 3\n")
		defer os.Remove(path)

		_, err := FromYaml(path)
		So(errors.Is(err, ErrWrongKind), ShouldBeTrue)
	})

	Convey("Invalid values are rejected", t, func() {
		path := writeConfig("kind: pathgrid\ndef:\n  grid:\n    columns: 0\n")
		defer os.Remove(path)

		_, err := FromYaml(path)
		So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)

		oversized := Default()
		oversized.Grid.Rows = 5000
		So(errors.Is(oversized.Validate(), ErrInvalidConfig), ShouldBeTrue)
	})
}
