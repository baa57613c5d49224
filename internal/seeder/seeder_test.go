package seeder_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"

	"github.com/okian/routinerec/internal/adapters/http/api"
	"github.com/okian/routinerec/internal/adapters/repository"
	service "github.com/okian/routinerec/internal/app"
	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/internal/seeder"
	"github.com/okian/routinerec/pkg/logger"
)

func newService(t *testing.T, hash string) *httptest.Server {
	t.Helper()
	roster := []model.User{{ID: "a", DisplayName: "A"}, {ID: "b", DisplayName: "B"}, {ID: "c", DisplayName: "C"}}
	svc, err := service.New(repository.NewMemoryStore(), roster, service.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	srv := api.NewServer(svc, api.WithLogger(logger.Nop()), api.WithPasswordHash(hash))
	mux := http.NewServeMux()
	srv.Register(context.Background(), mux)
	ts := httptest.NewServer(srv.Handler(mux))
	t.Cleanup(ts.Close)
	return ts
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded config", t, func() {
		cfg := seeder.DefaultConfig()
		cfg.Sessions = 15
		users := []string{"u1", "u2"}

		Convey("Equal seeds produce equal routines and requests", func() {
			a := seeder.Generate(cfg, users)
			b := seeder.Generate(cfg, users)
			So(cmp.Diff(a.Routines, b.Routines), ShouldBeEmpty)
			ignoreKeys := cmpopts.IgnoreFields(seeder.Session{}, "IdempotencyKey")
			So(cmp.Diff(a.Sessions, b.Sessions, ignoreKeys), ShouldBeEmpty)
		})

		Convey("Every session fits its routine", func() {
			p := seeder.Generate(cfg, users)
			So(p.Sessions, ShouldHaveLength, 30)
			So(p.Replays, ShouldHaveLength, cfg.Replays)
			for _, s := range p.Sessions {
				r := p.Routines[s.UserID][s.Request.Event]
				required := s.Request.Event.RequiredCount()
				So(len(r), ShouldBeGreaterThan, required)
				So(s.Request.Deductions, ShouldHaveLength, required)
				for _, sw := range s.Request.Swaps {
					So(sw.Slot, ShouldBeLessThan, required)
					So(sw.Alternate, ShouldBeLessThan, len(r)-required)
				}
				So(s.Request.StuckDismount == nil, ShouldEqual, s.Request.Event.IsVault())
				So(s.IdempotencyKey, ShouldNotBeEmpty)
			}
		})
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("Given the default config", t, func() {
		cfg := seeder.DefaultConfig()
		So(cfg.Validate(), ShouldBeNil)

		Convey("Bad values are rejected", func() {
			bad := cfg
			bad.Workers = 0
			So(errors.Is(bad.Validate(), seeder.ErrInvalidConfig), ShouldBeTrue)

			bad = cfg
			bad.Events = []model.Event{"XX"}
			So(bad.Validate(), ShouldNotBeNil)

			bad = cfg
			bad.BaseURL = ""
			So(bad.Validate(), ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running service behind a password", t, func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("chalk"), bcrypt.MinCost)
		So(err, ShouldBeNil)
		ts := newService(t, string(hash))

		cfg := seeder.DefaultConfig()
		cfg.BaseURL = ts.URL
		cfg.Password = "chalk"
		cfg.Users = 2
		cfg.Sessions = 10
		cfg.Replays = 3
		cfg.Timeout = 5 * time.Second

		Convey("When the run completes", func() {
			r, err := seeder.NewRunner(cfg, ts.Client(), logger.Nop())
			So(err, ShouldBeNil)
			stats, err := r.Run(context.Background())
			So(err, ShouldBeNil)

			Convey("Then every session was recorded and every replay refused", func() {
				So(stats.Users, ShouldEqual, 2)
				So(stats.RoutinesStored, ShouldEqual, 2*len(model.Events()))
				So(stats.SessionsRecorded, ShouldEqual, 20)
				So(stats.SessionsDuplicate, ShouldEqual, 3)
				So(stats.SessionsFailed, ShouldEqual, 0)
				So(stats.BreakdownsVerified, ShouldEqual, 2)
			})
		})

		Convey("When the password is wrong the run fails", func() {
			cfg.Password = "nope"
			r, err := seeder.NewRunner(cfg, ts.Client(), logger.Nop())
			So(err, ShouldBeNil)
			_, err = r.Run(context.Background())
			So(err, ShouldNotBeNil)
		})
	})
}
