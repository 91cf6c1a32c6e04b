package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/lernado/sage/internal/adapters/http/api"
	app "github.com/lernado/sage/internal/app"
	"github.com/lernado/sage/internal/config"
	"github.com/lernado/sage/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/lernado/sage/pkg/metrics"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("SAGE_ADDR", ":8080")
			_ = os.Setenv("SAGE_QUEUE_SIZE", "1000")
			_ = os.Setenv("SAGE_CONSUMER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("SAGE_ADDR")
				_ = os.Unsetenv("SAGE_QUEUE_SIZE")
				_ = os.Unsetenv("SAGE_CONSUMER_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.ConsumerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				svc := app.New()
				convey.So(svc, convey.ShouldNotBeNil)
			})

			convey.Convey("And service should be creatable with custom options", func() {
				svc := app.New(
					app.WithConsumerCount(8),
					app.WithQueueSize(2000),
					app.WithDedupeSize(1000),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				registry := prometheus.NewRegistry()
				manager := metrics.NewManager(metrics.WithRegistry(registry))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given main application integration", t, func() {
		convey.Convey("When wiring all components together", func() {
			_ = os.Setenv("SAGE_ADDR", ":8080")
			_ = os.Setenv("SAGE_CONSUMER_COUNT", "2")
			defer func() {
				_ = os.Unsetenv("SAGE_ADDR")
				_ = os.Unsetenv("SAGE_CONSUMER_COUNT")
			}()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldBeNil)

			svc := app.New(
				app.WithConsumerCount(cfg.ConsumerCount),
				app.WithQueueSize(cfg.QueueSize),
			)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			mux := http.NewServeMux()
			api.NewServer(svc, svc, api.WithAPIKey(cfg.InternalAPIKey)).Register(mux)

			convey.Convey("Then the stats updater runs until canceled", func() {
				updaterCtx, updaterCancel := context.WithTimeout(ctx, 100*time.Millisecond)
				defer updaterCancel()

				convey.So(func() {
					startStatsUpdater(updaterCtx, svc)
				}, convey.ShouldNotPanic)
			})
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When the queue backend is invalid", func() {
			_ = os.Setenv("SAGE_QUEUE_BACKEND", "carrier-pigeon")
			defer func() { _ = os.Unsetenv("SAGE_QUEUE_BACKEND") }()

			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When service options are out of range", func() {
			svc := app.New(
				app.WithConsumerCount(0),
				app.WithQueueSize(0),
				app.WithDedupeSize(0),
			)
			convey.So(svc, convey.ShouldNotBeNil)
			convey.So(svc.GetStats(), convey.ShouldNotBeNil)
		})
	})
}
