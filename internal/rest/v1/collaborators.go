package v1

import (
	"github.com/tabia/api/data/events"
	"github.com/tabia/api/data/model"
	"github.com/tabia/api/internal/errors"
	"github.com/tabia/api/internal/instance"
	"github.com/valyala/fasthttp"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func (a *api) listCollaborators(ctx *fasthttp.RequestCtx) {
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

	cur, err := a.gctx.Inst().Mongo.Collection(instance.CollectionNameCollaborators).
		Find(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		writeError(ctx, errors.ErrInternalServerError().SetDetail(err.Error()))

		return
	}

	collabs := []model.Collaborator{}
	if err = cur.All(ctx, &collabs); err != nil {
		writeError(ctx, errors.ErrInternalServerError().SetDetail(err.Error()))

		return
	}

	writeJSON(ctx, fasthttp.StatusOK, collabs)
}

func (a *api) addCollaborator(ctx *fasthttp.RequestCtx) {
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

	req := model.AddCollaboratorRequest{}
	if err = json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, errors.ErrBadRequest().SetDetail(err.Error()))

		return
	}

	if req.UserID == "" {
		writeError(ctx, errors.ErrBadRequest().SetDetail("collaborator user id is required"))

		return
	}

	if req.Role != model.RoleViewer && req.Role != model.RoleEditor {
		writeError(ctx, errors.ErrBadRequest().SetDetail("role must be %s or %s", model.RoleViewer, model.RoleEditor))

		return
	}

	collab, err := a.opt.Mutate.AddCollaborator(ctx, sessionID, req)
	if err != nil {
		writeError(ctx, errors.From(err))

		return
	}

	// The subject may hold a stale cached role from before the grant.
	a.opt.Access.Invalidate(req.UserID, sessionID)

	a.broadcastCollaboratorChange(events.SessionUpdateTypeUserJoined, sessionID, req.UserID)

	writeJSON(ctx, fasthttp.StatusCreated, collab)
}

func (a *api) removeCollaborator(ctx *fasthttp.RequestCtx) {
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

	userID, _ := ctx.UserValue("user").(string)

	if _, err = a.opt.Mutate.RemoveCollaborator(ctx, sessionID, userID); err != nil {
		writeError(ctx, errors.From(err))

		return
	}

	a.opt.Access.Invalidate(userID, sessionID)

	a.broadcastCollaboratorChange(events.SessionUpdateTypeUserLeft, sessionID, userID)

	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (a *api) broadcastCollaboratorChange(t events.SessionUpdateType, sessionID string, userID string) {
	update := events.NewSessionUpdate(t, sessionID, "", model.Identity{UserID: userID})
	if err := a.opt.Realtime.Broadcast(update); err != nil {
		zap.S().Errorw("failed to broadcast collaborator change",
			"session_id", sessionID,
			"user_id", userID,
			"error", err,
		)
	}
}
