package v1

import (
	"github.com/tabia/api/data/events"
	"github.com/tabia/api/data/model"
	"github.com/tabia/api/internal/errors"
	"github.com/tabia/api/internal/instance"
	"github.com/valyala/fasthttp"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func (a *api) listSessions(ctx *fasthttp.RequestCtx) {
	actor, apiErr := a.actor(ctx)
	if apiErr != nil {
		writeError(ctx, apiErr)

		return
	}

	mi := a.gctx.Inst().Mongo

	sharedIDs := []string{}

	cur, err := mi.Collection(instance.CollectionNameCollaborators).Find(ctx, bson.M{"user_id": actor.UserID})
	if err == nil {
		collabs := []model.Collaborator{}
		if err = cur.All(ctx, &collabs); err == nil {
			for _, c := range collabs {
				sharedIDs = append(sharedIDs, c.SessionID)
			}
		}
	}

	cur, err = mi.Collection(instance.CollectionNameSessions).Find(ctx, bson.M{"$or": bson.A{
		bson.M{"owner_id": actor.UserID},
		bson.M{"_id": bson.M{"$in": sharedIDs}},
	}})
	if err != nil {
		writeError(ctx, errors.ErrInternalServerError().SetDetail(err.Error()))

		return
	}

	sessions := []model.Session{}
	if err = cur.All(ctx, &sessions); err != nil {
		writeError(ctx, errors.ErrInternalServerError().SetDetail(err.Error()))

		return
	}

	writeJSON(ctx, fasthttp.StatusOK, sessions)
}

func (a *api) createSession(ctx *fasthttp.RequestCtx) {
	actor, apiErr := a.actor(ctx)
	if apiErr != nil {
		writeError(ctx, apiErr)

		return
	}

	req := model.CreateSessionRequest{}
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, errors.ErrBadRequest().SetDetail(err.Error()))

		return
	}

	if req.Name == "" {
		writeError(ctx, errors.ErrBadRequest().SetDetail("session name is required"))

		return
	}

	session, err := a.opt.Mutate.CreateSession(ctx, actor.UserID, req)
	if err != nil {
		writeError(ctx, errors.From(err))

		return
	}

	writeJSON(ctx, fasthttp.StatusCreated, session)
}

func (a *api) getSession(ctx *fasthttp.RequestCtx) {
	actor, apiErr := a.actor(ctx)
	if apiErr != nil {
		writeError(ctx, apiErr)

		return
	}

	sessionID := sessionParam(ctx)

	role, err := a.opt.Access.ResolveRole(ctx, actor.UserID, sessionID)
	if err != nil {
		writeError(ctx, errors.From(err))

		return
	}

	if !role.Granted() {
		writeError(ctx, errors.ErrInsufficientPrivilege())

		return
	}

	session := model.Session{}

	err = a.gctx.Inst().Mongo.Collection(instance.CollectionNameSessions).
		FindOne(ctx, bson.M{"_id": sessionID}).
		Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			writeError(ctx, errors.ErrUnknownSession())
		} else {
			writeError(ctx, errors.ErrInternalServerError().SetDetail(err.Error()))
		}

		return
	}

	writeJSON(ctx, fasthttp.StatusOK, session)
}

func (a *api) updateSession(ctx *fasthttp.RequestCtx) {
	actor, apiErr := a.actor(ctx)
	if apiErr != nil {
		writeError(ctx, apiErr)

		return
	}

	sessionID := sessionParam(ctx)

	role, err := a.opt.Access.ResolveRole(ctx, actor.UserID, sessionID)
	if err != nil {
		writeError(ctx, errors.From(err))

		return
	}

	if !role.CanEdit() {
		writeError(ctx, errors.ErrInsufficientPrivilege())

		return
	}

	req := model.UpdateSessionRequest{}
	if err = json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, errors.ErrBadRequest().SetDetail(err.Error()))

		return
	}

	session, err := a.opt.Mutate.UpdateSession(ctx, sessionID, req)
	if err != nil {
		writeError(ctx, errors.From(err))

		return
	}

	a.broadcastSessionChange(session, req, actor)

	writeJSON(ctx, fasthttp.StatusOK, session)
}

func (a *api) deleteSession(ctx *fasthttp.RequestCtx) {
	actor, apiErr := a.actor(ctx)
	if apiErr != nil {
		writeError(ctx, apiErr)

		return
	}

	sessionID := sessionParam(ctx)

	existing := model.Session{}

	err := a.gctx.Inst().Mongo.Collection(instance.CollectionNameSessions).
		FindOne(ctx, bson.M{"_id": sessionID}).
		Decode(&existing)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			writeError(ctx, errors.ErrUnknownSession())
		} else {
			writeError(ctx, errors.ErrInternalServerError().SetDetail(err.Error()))
		}

		return
	}

	// Only the owner may delete; editors can change, not destroy.
	if existing.OwnerID != actor.UserID {
		writeError(ctx, errors.ErrInsufficientPrivilege())

		return
	}

	session, err := a.opt.Mutate.DeleteSession(ctx, sessionID)
	if err != nil {
		writeError(ctx, errors.From(err))

		return
	}

	update := events.NewSessionUpdate(events.SessionUpdateTypeDeleted, session.ID, session.Name, actor)
	if err = a.opt.Realtime.Broadcast(update); err != nil {
		zap.S().Errorw("failed to broadcast session delete",
			"session_id", session.ID,
			"error", err,
		)
	}

	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (a *api) broadcastSessionChange(session model.Session, req model.UpdateSessionRequest, actor model.Identity) {
	var t events.SessionUpdateType

	switch {
	case req.Name != nil:
		t = events.SessionUpdateTypeRenamed
	case req.Starred != nil && *req.Starred:
		t = events.SessionUpdateTypeStarred
	case req.Starred != nil:
		t = events.SessionUpdateTypeUnstarred
	default:
		return
	}

	update := events.NewSessionUpdate(t, session.ID, session.Name, actor)
	if err := a.opt.Realtime.Broadcast(update); err != nil {
		zap.S().Errorw("failed to broadcast session update",
			"session_id", session.ID,
			"error", err,
		)
	}
}
