package realtime

import (
	"time"

	"github.com/fasthttp/websocket"
	"github.com/tabia/api/data/events"
	"github.com/tabia/api/data/model"
	"github.com/tabia/api/internal/errors"
	"github.com/tabia/api/internal/global"
	"github.com/tabia/api/internal/realtime/presence"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Server ties the realtime pieces together: gatekeeper at the door,
// hub for fan-out, router for commands, listener for presence.
type Server struct {
	gctx global.Context

	gate     *Gatekeeper
	hub      *Hub
	router   *Router
	listener *Listener
	registry *presence.Registry

	upgrader websocket.FastHTTPUpgrader
}

type Options struct {
	Access AccessResolver
	Mutate MutationService
}

func New(gctx global.Context, opt Options) *Server {
	registry := presence.NewRegistry()

	hub := NewHub(HubOptions{
		Bridge:       gctx.Inst().Events,
		BridgePrefix: gctx.Config().Nats.Subject,
		Prometheus:   gctx.Inst().Prometheus,
	})

	s := &Server{
		gctx:     gctx,
		gate:     NewGatekeeper(gctx.Inst().Auth),
		hub:      hub,
		registry: registry,
		router: NewRouter(RouterOptions{
			Access:     opt.Access,
			Mutate:     opt.Mutate,
			Registry:   registry,
			Prometheus: gctx.Inst().Prometheus,
		}),
		listener: NewListener(ListenerOptions{
			Hub:        hub,
			Registry:   registry,
			Access:     opt.Access,
			Prometheus: gctx.Inst().Prometheus,
		}),
		upgrader: websocket.FastHTTPUpgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(ctx *fasthttp.RequestCtx) bool { return true },
		},
	}

	return s
}

// Broadcast publishes an update produced outside the command router,
// e.g. by a REST mutation, to the update's session topic.
func (s *Server) Broadcast(u events.Update) error {
	return s.hub.Publish(u)
}

// Handler upgrades an HTTP request into a realtime connection.
//
// A failed credential does not close the connection unless
// websocket.require_auth is set: the original behavior is to log and
// let the connection continue without an identity, which leaves it
// unable to register presence or issue commands.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var identity *model.Identity

		header := string(ctx.Request.Header.Peek("Authorization"))

		id, apiErr := s.gate.Authenticate(header)
		if apiErr != nil {
			if s.gctx.Config().Websocket.RequireAuth {
				ctx.SetStatusCode(apiErr.ExpectedHTTPStatus())
				ctx.SetContentType("application/json")
				ctx.SetBody(encodeError("", apiErr))

				return
			}

			zap.S().Warnw("websocket connection without valid credential",
				"error", apiErr.Message(),
				"ip", ctx.RemoteIP().String(),
			)
		} else {
			identity = &id
		}

		err := s.upgrader.Upgrade(ctx, func(ws *websocket.Conn) {
			s.serve(ws, identity)
		})
		if err != nil {
			zap.S().Errorw("websocket upgrade failed",
				"error", err,
			)
		}
	}
}

func (s *Server) serve(ws *websocket.Conn, identity *model.Identity) {
	cfg := s.gctx.Config()

	writeTimeout := cfg.Websocket.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = time.Second * 10
	}

	c := newConn(ws, identity, cfg.Websocket.SendBuffer)

	if prom := s.gctx.Inst().Prometheus; prom != nil {
		prom.ConnectionsOpen().Inc()
		defer prom.ConnectionsOpen().Dec()
	}

	s.listener.Connected(c)

	go c.writePump(writeTimeout)

	s.readPump(c)

	// A disconnecting connection is gone from every subscriber set
	// before its departure is announced.
	s.hub.UnsubscribeAll(c)
	s.listener.Disconnected(c)
	c.close()
}

func (s *Server) readPump(c *Conn) {
	cfg := s.gctx.Config()

	if cfg.Websocket.MaxMessageBytes > 0 {
		c.ws.SetReadLimit(cfg.Websocket.MaxMessageBytes)
	}

	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.S().Debugw("websocket read failed",
					"connection_id", c.ID(),
					"error", err,
				)
			}

			return
		}

		s.handleMessage(c, raw)
	}
}

// handleMessage runs one inbound frame to completion on the
// connection's goroutine; nothing yields mid-command.
func (s *Server) handleMessage(c *Conn, raw []byte) {
	msg := ClientMessage{}
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.Deliver(encodeError("", errors.ErrBadRequest().SetDetail(err.Error())))

		return
	}

	cmd, apiErr := ParseAddress(msg.Address, msg.Body)
	if apiErr != nil {
		c.Deliver(encodeError(msg.Address, apiErr))

		return
	}

	switch cmd.Kind {
	case CommandSubscribe:
		s.hub.Subscribe(c,
			events.Topic(cmd.SessionID, events.CategoryUpdates),
			events.Topic(cmd.SessionID, events.CategoryTabs),
			events.Topic(cmd.SessionID, events.CategoryPresence),
		)
		// Presence is applied and the join announced before this frame
		// completes, so the joiner's first command cannot be observed
		// ahead of their USER_JOINED.
		s.listener.Subscribed(s.gctx, c, cmd.SessionID)
	case CommandJoin:
		s.listener.Joined(s.gctx, c, cmd.SessionID)
	case CommandLeave:
		s.listener.Left(c, cmd.SessionID)
	default:
		identity, ok := c.Identity()
		if !ok {
			c.Deliver(encodeError(msg.Address, errors.ErrUnauthorized().SetDetail("no identity attached to connection")))

			return
		}

		update, apiErr := s.router.Handle(s.gctx, cmd, identity)
		if apiErr != nil {
			// Failed commands are surfaced to the issuing connection
			// only; other subscribers observe nothing.
			c.Deliver(encodeError(msg.Address, apiErr))

			return
		}

		if err := s.hub.Publish(update); err != nil {
			zap.S().Errorw("failed to publish update",
				"topic", update.Topic(),
				"error", err,
			)
		}
	}
}
