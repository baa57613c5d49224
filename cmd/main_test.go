package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/routinerec/internal/adapters/http/api"
	"github.com/okian/routinerec/internal/adapters/http/site"
	"github.com/okian/routinerec/internal/adapters/http/swagger"
	"github.com/okian/routinerec/internal/adapters/repository"
	service "github.com/okian/routinerec/internal/app"
	"github.com/okian/routinerec/internal/config"
	"github.com/okian/routinerec/pkg/logger"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			t.Setenv("ROUTINE_ADDR", ":8080")
			t.Setenv("ROUTINE_STORE__DRIVER", "memory")
			t.Setenv("ROUTINE_CACHE__REFRESH_WORKERS", "2")

			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.Store.Driver, convey.ShouldEqual, "memory")
			convey.So(cfg.Cache.RefreshWorkers, convey.ShouldEqual, 2)

			convey.Convey("Then the default roster becomes users", func() {
				users := roster(cfg.Roster)
				convey.So(users, convey.ShouldHaveLength, 18)
				convey.So(users[0].ID, convey.ShouldEqual, "user1")
				convey.So(users[17].DisplayName, convey.ShouldEqual, "Gymnast 18")
			})
		})

		convey.Convey("When the address is empty", func() {
			t.Setenv("ROUTINE_ADDR", "")

			_, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given every component wired over a memory store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		store, err := repository.Open(repository.DriverMemory, "")
		convey.So(err, convey.ShouldBeNil)
		defer store.Close()

		svc, err := service.New(store, roster(config.DefaultRoster()), service.WithLogger(logger.Nop()))
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		srv := api.NewServer(svc, api.WithLogger(logger.Nop()))
		srv.Register(ctx, mux)
		swagger.Register(ctx, mux)
		site.Register(ctx, mux)
		h := srv.Handler(mux)

		convey.Convey("Then each surface answers", func() {
			for _, path := range []string{"/", "/api-docs", "/openapi.yaml", "/healthz", "/status", "/users"} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loop returns once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("updater did not stop")
			}
		})
	})
}
