package health

import (
	"time"

	"github.com/tabia/api/internal/global"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

func New(gCtx global.Context) <-chan struct{} {
	done := make(chan struct{})

	srv := fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			defer func() {
				if err := recover(); err != nil {
					zap.S().Errorw("panic in health",
						"panic", err,
					)
				}
			}()

			var (
				mongoDown bool
				natsDown  bool
			)

			if gCtx.Inst().Mongo != nil {
				lCtx, cancel := global.WithTimeout(gCtx, time.Second*5)
				if err := gCtx.Inst().Mongo.Ping(lCtx); err != nil {
					mongoDown = true
					zap.S().Warnw("mongo is not responding",
						"error", err,
					)
				}
				cancel()
			}

			if gCtx.Inst().Events != nil && !gCtx.Inst().Events.Connected() {
				natsDown = true
				zap.S().Warnw("nats is not connected")
			}

			if mongoDown || natsDown {
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			}
		},
	}

	go func() {
		defer close(done)
		zap.S().Infow("Health enabled",
			"bind", gCtx.Config().Health.Bind,
		)

		if err := srv.ListenAndServe(gCtx.Config().Health.Bind); err != nil {
			zap.S().Fatalw("failed to start health bind",
				"error", err,
			)
		}
	}()

	go func() {
		<-gCtx.Done()

		_ = srv.Shutdown()
	}()

	return done
}
