package v1

import (
	"github.com/tabia/api/data/model"
	"github.com/tabia/api/internal/errors"
	"github.com/tabia/api/internal/instance"
	"github.com/valyala/fasthttp"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (a *api) listTabs(ctx *fasthttp.RequestCtx) {
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

	cur, err := a.gctx.Inst().Mongo.Collection(instance.CollectionNameTabs).
		Find(ctx, bson.M{"session_id": sessionID}, options.Find().SetSort(bson.D{{Key: "tab_index", Value: 1}}))
	if err != nil {
		writeError(ctx, errors.ErrInternalServerError().SetDetail(err.Error()))

		return
	}

	tabs := []model.Tab{}
	if err = cur.All(ctx, &tabs); err != nil {
		writeError(ctx, errors.ErrInternalServerError().SetDetail(err.Error()))

		return
	}

	writeJSON(ctx, fasthttp.StatusOK, tabs)
}
