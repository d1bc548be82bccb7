package realtime

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/tabia/api/data/events"
	"github.com/tabia/api/internal/instance"
	"github.com/tabia/api/internal/realtime/presence"
	"go.uber.org/zap"
)

// Listener reacts to connection lifecycle transitions. Handlers run on
// the connection's own goroutine: the join broadcast for a subscribe is
// published before the next frame from that connection is read, so
// subscribers always observe a user's USER_JOINED before any update
// that user causes.
type Listener struct {
	hub      *Hub
	registry *presence.Registry
	access   AccessResolver
	prom     instance.Prometheus
}

type ListenerOptions struct {
	Hub        *Hub
	Registry   *presence.Registry
	Access     AccessResolver
	Prometheus instance.Prometheus
}

func NewListener(opt ListenerOptions) *Listener {
	return &Listener{
		hub:      opt.Hub,
		registry: opt.Registry,
		access:   opt.Access,
		prom:     opt.Prometheus,
	}
}

func (l *Listener) Connected(c *Conn) {
	if id, ok := c.Identity(); ok {
		zap.S().Debugw("websocket connected",
			"connection_id", c.ID(),
			"user_id", id.UserID,
		)
	} else {
		zap.S().Debugw("websocket connected unauthenticated",
			"connection_id", c.ID(),
		)
	}
}

// Subscribed registers presence for a fresh subscription and sends the
// current roster to the subscriber before announcing the join.
func (l *Listener) Subscribed(ctx context.Context, c *Conn, sessionID string) {
	l.join(ctx, c, sessionID, true)
}

// Joined registers presence for an explicit join command. No snapshot;
// the connection already holds one from subscribe time.
func (l *Listener) Joined(ctx context.Context, c *Conn, sessionID string) {
	l.join(ctx, c, sessionID, false)
}

// join registers presence for a subscribing or joining connection.
// Access is re-checked here because it may have been revoked since the
// connection was established; on failure the subscription itself is
// left alone and presence is simply not registered.
func (l *Listener) join(ctx context.Context, c *Conn, sessionID string, withSnapshot bool) {
	id, ok := c.Identity()
	if !ok {
		zap.S().Debugw("unauthenticated subscriber, presence skipped",
			"connection_id", c.ID(),
			"session_id", sessionID,
		)

		return
	}

	role, err := l.access.ResolveRole(ctx, id.UserID, sessionID)
	if err != nil {
		zap.S().Errorw("access check failed during subscribe",
			"session_id", sessionID,
			"user_id", id.UserID,
			"error", err,
		)

		return
	}

	if !role.Granted() {
		zap.S().Warnw("subscribe to session without access",
			"session_id", sessionID,
			"user_id", id.UserID,
		)

		return
	}

	entries := l.registry.Join(sessionID, id)
	l.observePresence()

	if withSnapshot {
		snapshot := events.NewPresenceUpdate(events.PresenceTypeSnapshot, sessionID, id, toActiveUsers(entries))
		if frame, err := encodeBroadcast(snapshot); err == nil {
			c.Deliver(frame)
		}
	}

	joined := events.NewPresenceUpdate(events.PresenceTypeUserJoined, sessionID, id, toActiveUsers(entries))
	if err = l.hub.Publish(joined); err != nil {
		zap.S().Errorw("failed to publish presence join",
			"session_id", sessionID,
			"error", err,
		)
	}
}

func (l *Listener) Left(c *Conn, sessionID string) {
	id, ok := c.Identity()
	if !ok {
		return
	}

	entries, removed := l.registry.Leave(sessionID, id.UserID)
	if !removed {
		// Leaving a session one was never in is a normal path.
		return
	}

	l.observePresence()

	left := events.NewPresenceUpdate(events.PresenceTypeUserLeft, sessionID, id, toActiveUsers(entries))
	if err := l.hub.Publish(left); err != nil {
		zap.S().Errorw("failed to publish presence leave",
			"session_id", sessionID,
			"error", err,
		)
	}
}

// Disconnected runs after the transport already removed the connection
// from every topic subscriber set. It clears the user's presence in
// all sessions and announces one departure per affected session.
func (l *Listener) Disconnected(c *Conn) {
	id, ok := c.Identity()
	if !ok {
		return
	}

	departures := l.registry.RemoveEverywhere(id.UserID)
	l.observePresence()

	var errs error

	for _, dep := range departures {
		left := events.NewPresenceUpdate(events.PresenceTypeUserLeft, dep.SessionID, id, toActiveUsers(dep.Remaining))
		if err := l.hub.Publish(left); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if errs != nil {
		zap.S().Errorw("failed to publish departures on disconnect",
			"user_id", id.UserID,
			"error", errs,
		)
	}

	zap.S().Debugw("websocket disconnected",
		"connection_id", c.ID(),
		"user_id", id.UserID,
		"sessions_left", len(departures),
	)
}

func (l *Listener) observePresence() {
	if l.prom != nil {
		l.prom.PresenceEntries().Set(float64(l.registry.Count()))
	}
}

func toActiveUsers(entries []presence.Entry) []events.ActiveUser {
	users := make([]events.ActiveUser, len(entries))
	for i, e := range entries {
		users[i] = events.ActiveUser{
			UserID:    e.Identity.UserID,
			UserName:  e.Identity.DisplayName,
			UserEmail: e.Identity.Email,
			JoinedAt:  e.JoinedAt,
		}
	}

	return users
}
