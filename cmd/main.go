package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/bugsnag/panicwrap"
	"github.com/tabia/api/internal/access"
	"github.com/tabia/api/internal/configure"
	"github.com/tabia/api/internal/global"
	"github.com/tabia/api/internal/health"
	"github.com/tabia/api/internal/monitoring"
	"github.com/tabia/api/internal/mutate"
	"github.com/tabia/api/internal/realtime"
	"github.com/tabia/api/internal/rest"
	"github.com/tabia/api/internal/svc/auth"
	"github.com/tabia/api/internal/svc/events"
	"github.com/tabia/api/internal/svc/mongo"
	"github.com/tabia/api/internal/svc/prometheus"
	"go.uber.org/zap"
)

var (
	Version = "development"
	Unix    = ""
	Time    = "unknown"
	User    = "unknown"
)

func init() {
	debug.SetGCPercent(2000)
	if i, err := strconv.Atoi(Unix); err == nil {
		Time = time.Unix(int64(i), 0).Format(time.RFC3339)
	}
}

func main() {
	config := configure.New()

	exitStatus, err := panicwrap.BasicWrap(func(s string) {
		zap.S().Errorw("panic detected",
			"panic", s,
		)
	})
	if err != nil {
		zap.S().Errorw("failed to setup panic handler",
			"error", err,
		)
		os.Exit(2)
	}

	if exitStatus >= 0 {
		os.Exit(exitStatus)
	}

	if !config.NoHeader {
		zap.S().Info("Tabia API")
		zap.S().Infof("Version: %s", Version)
		zap.S().Infof("build.Time: %s", Time)
		zap.S().Infof("build.User: %s", User)
	}

	zap.S().Debugf("MaxProcs: %d", runtime.GOMAXPROCS(0))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	gCtx, cancel := global.WithCancel(global.New(context.Background(), config))

	{
		gCtx.Inst().Mongo, err = mongo.New(gCtx, mongo.Options{
			URI:      config.Mongo.URI,
			Username: config.Mongo.Username,
			Password: config.Mongo.Password,
			DB:       config.Mongo.DB,
			Direct:   config.Mongo.Direct,
		})
		if err != nil {
			zap.S().Fatalw("failed to setup mongo handler",
				"error", err,
			)
		}
	}

	{
		gCtx.Inst().Auth = auth.New(auth.Options{
			JWTSecret: config.Credentials.JWTSecret,
			Issuer:    "tabia-api",
		})
	}

	if config.Nats.Enabled {
		gCtx.Inst().Events, err = events.New(events.Options{
			URL:  config.Nats.URL,
			Name: "tabia-api",
		})
		if err != nil {
			zap.S().Fatalw("failed to setup events handler",
				"error", err,
			)
		}
	}

	{
		gCtx.Inst().Prometheus = prometheus.New(prometheus.Options{
			Labels: config.Monitoring.Labels.ToPrometheus(),
		})
	}

	accessResolver := access.New(access.Options{
		Mongo:    gCtx.Inst().Mongo,
		CacheTTL: config.Limits.RoleCacheTTL,
	})
	mutator := mutate.New(gCtx.Inst().Mongo)

	rt := realtime.New(gCtx, realtime.Options{
		Access: accessResolver,
		Mutate: mutator,
	})

	wg := sync.WaitGroup{}

	if gCtx.Config().Health.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-health.New(gCtx)
		}()
	}
	if gCtx.Config().Monitoring.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-monitoring.New(gCtx)
		}()
	}

	done := make(chan struct{})
	go func() {
		<-sig
		cancel()
		go func() {
			select {
			case <-time.After(time.Minute):
			case <-sig:
			}
			zap.S().Fatal("force shutdown")
		}()

		zap.S().Info("shutting down")

		wg.Wait()

		if gCtx.Inst().Events != nil {
			gCtx.Inst().Events.Close()
		}

		close(done)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := rest.New(gCtx, rest.Options{
			Realtime: rt,
			Access:   accessResolver,
			Mutate:   mutator,
		}); err != nil {
			zap.S().Fatalw("rest failed",
				"error", err,
			)
		}
	}()

	zap.S().Info("running")

	<-done

	zap.S().Info("shutdown")
	os.Exit(0)
}
