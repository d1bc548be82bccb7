package rest

import (
	"fmt"
	"net"
	"time"

	"github.com/fasthttp/router"
	"github.com/tabia/api/internal/global"
	"github.com/tabia/api/internal/realtime"
	v1 "github.com/tabia/api/internal/rest/v1"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type HttpServer struct {
	listener net.Listener
	router   *router.Router
}

type Options struct {
	Realtime *realtime.Server
	Access   v1.AccessController
	Mutate   v1.Mutator
}

func New(gCtx global.Context, opt Options) error {
	var err error

	port := gCtx.Config().Http.Port
	if port == 0 {
		port = 80
	}

	addrType := gCtx.Config().Http.Type
	if addrType == "" {
		addrType = "tcp"
	}

	s := HttpServer{}

	s.listener, err = net.Listen(addrType, fmt.Sprintf("%s:%d", gCtx.Config().Http.Addr, port))
	if err != nil {
		return err
	}

	s.router = router.New()
	s.router.NotFound = v1.ErrorHandler(fasthttp.StatusNotFound)

	v1.API(gCtx, s.router, v1.Options{
		Realtime: opt.Realtime,
		Access:   opt.Access,
		Mutate:   opt.Mutate,
	})

	s.router.GET("/v1/realtime", opt.Realtime.Handler())

	srv := &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			defer func() {
				if err := recover(); err != nil {
					zap.S().Errorw("panic in rest request handler",
						"panic", err,
						"status", ctx.Response.StatusCode(),
						"duration", time.Since(start)/time.Millisecond,
						"method", string(ctx.Method()),
						"path", string(ctx.Path()),
					)
				} else {
					zap.S().Infow("rest request",
						"status", ctx.Response.StatusCode(),
						"duration", time.Since(start)/time.Millisecond,
						"method", string(ctx.Method()),
						"path", string(ctx.Path()),
					)
				}
			}()

			ctx.Response.Header.Set("Access-Control-Allow-Credentials", "true")
			ctx.Response.Header.Set("Access-Control-Allow-Headers", "*")
			ctx.Response.Header.Set("Access-Control-Allow-Methods", "*")
			ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")

			ctx.Response.Header.Set("X-Node-Name", gCtx.Config().K8S.NodeName)
			ctx.Response.Header.Set("X-Pod-Name", gCtx.Config().K8S.PodName)
			if ctx.IsOptions() {
				return
			}

			s.router.Handler(ctx)
		},
		ReadTimeout:       time.Second * 600,
		IdleTimeout:       time.Second * 10,
		LogAllErrors:      true,
		CloseOnShutdown:   true,
		StreamRequestBody: true,
	}

	go func() {
		<-gCtx.Done()
		_ = srv.Shutdown()
	}()

	return srv.Serve(s.listener)
}
