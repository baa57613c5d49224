package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/routinerec/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Store.Path, convey.ShouldEqual, "routines.db")
			convey.So(cfg.MaxWindowDays, convey.ShouldEqual, 90)
			convey.So(cfg.Roster, convey.ShouldBeEmpty)
		})

		convey.Convey("Then it validates once a roster is attached", func() {
			cfg.Roster = config.DefaultRoster()
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When the roster repeats an id", func() {
			cfg.Roster = []config.RosterEntry{{ID: "u1"}, {ID: "u1"}}
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(errors.Is(err, config.ErrInvalidRoster), convey.ShouldBeTrue)
		})

		convey.Convey("When a roster id is empty", func() {
			cfg.Roster = []config.RosterEntry{{Name: "nobody"}}
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidRoster), convey.ShouldBeTrue)
		})

		convey.Convey("When a file-backed driver has no path", func() {
			cfg.Store = config.StoreConfig{Driver: config.DriverSQLite}
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the memory driver has no path", func() {
			cfg.Store = config.StoreConfig{Driver: config.DriverMemory}
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When refresh workers is zero", func() {
			cfg.Cache.RefreshWorkers = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
