package v1

import (
	"context"

	"github.com/fasthttp/router"
	jsoniter "github.com/json-iterator/go"
	"github.com/tabia/api/data/events"
	"github.com/tabia/api/data/model"
	"github.com/tabia/api/internal/errors"
	"github.com/tabia/api/internal/global"
	"github.com/tabia/api/internal/realtime"
	"github.com/valyala/fasthttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Mutator is the slice of the mutation service the REST surface needs
// beyond what the realtime command router already covers.
type Mutator interface {
	CreateSession(ctx context.Context, ownerID string, req model.CreateSessionRequest) (model.Session, error)
	UpdateSession(ctx context.Context, sessionID string, req model.UpdateSessionRequest) (model.Session, error)
	DeleteSession(ctx context.Context, sessionID string) (model.Session, error)
	AddCollaborator(ctx context.Context, sessionID string, req model.AddCollaboratorRequest) (model.Collaborator, error)
	RemoveCollaborator(ctx context.Context, sessionID string, userID string) (model.Collaborator, error)
}

// Broadcaster pushes an update produced by a REST mutation to the
// connected subscribers of its session.
type Broadcaster interface {
	Broadcast(u events.Update) error
}

// AccessController resolves roles and drops cached ones when a
// collaborator record changes, so revocation is seen promptly.
type AccessController interface {
	realtime.AccessResolver
	Invalidate(userID string, sessionID string)
}

type Options struct {
	Realtime Broadcaster
	Access   AccessController
	Mutate   Mutator
}

type api struct {
	gctx global.Context
	opt  Options
	gate *realtime.Gatekeeper
}

func API(gctx global.Context, r *router.Router, opt Options) {
	a := &api{
		gctx: gctx,
		opt:  opt,
		gate: realtime.NewGatekeeper(gctx.Inst().Auth),
	}

	r.GET("/v1/sessions", a.listSessions)
	r.POST("/v1/sessions", a.createSession)
	r.GET("/v1/sessions/{session}", a.getSession)
	r.PATCH("/v1/sessions/{session}", a.updateSession)
	r.DELETE("/v1/sessions/{session}", a.deleteSession)
	r.GET("/v1/sessions/{session}/tabs", a.listTabs)
	r.GET("/v1/sessions/{session}/collaborators", a.listCollaborators)
	r.POST("/v1/sessions/{session}/collaborators", a.addCollaborator)
	r.DELETE("/v1/sessions/{session}/collaborators/{user}", a.removeCollaborator)
}

// actor authenticates the request. Unlike the websocket path, REST
// rejects bad credentials visibly.
func (a *api) actor(ctx *fasthttp.RequestCtx) (model.Identity, errors.APIError) {
	return a.gate.Authenticate(string(ctx.Request.Header.Peek("Authorization")))
}

type apiErrorResponse struct {
	Status    int           `json:"status"`
	Error     string        `json:"error"`
	ErrorCode int           `json:"errorCode"`
	Details   errors.Fields `json:"details,omitempty"`
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		writeError(ctx, errors.ErrInternalServerError().SetDetail(err.Error()))

		return
	}

	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(b)
}

func writeError(ctx *fasthttp.RequestCtx, apiErr errors.APIError) {
	b, _ := json.Marshal(apiErrorResponse{
		Status:    apiErr.ExpectedHTTPStatus(),
		Error:     apiErr.Message(),
		ErrorCode: apiErr.Code(),
		Details:   apiErr.GetFields(),
	})

	ctx.SetStatusCode(apiErr.ExpectedHTTPStatus())
	ctx.SetContentType("application/json")
	ctx.SetBody(b)
}

// ErrorHandler serves a bare error response, used for unmatched
// routes.
func ErrorHandler(status int) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		writeError(ctx, errors.ErrUnknownRoute().SetFields(errors.Fields{
			"path": string(ctx.Path()),
		}))

		ctx.SetStatusCode(status)
	}
}

func sessionParam(ctx *fasthttp.RequestCtx) string {
	v, _ := ctx.UserValue("session").(string)

	return v
}
