package realtime

import (
	"context"
	"strings"

	"github.com/tabia/api/data/events"
	"github.com/tabia/api/data/model"
	"github.com/tabia/api/internal/errors"
	"github.com/tabia/api/internal/instance"
	"github.com/tabia/api/internal/realtime/presence"
)

// AccessResolver answers role lookups for (user, session). Access may
// be revoked while a connection lives, so callers re-resolve instead
// of caching on the connection.
type AccessResolver interface {
	ResolveRole(ctx context.Context, userID string, sessionID string) (model.Role, error)
}

// MutationService performs the state change behind an authorized
// command and returns the resulting entity.
type MutationService interface {
	AddTab(ctx context.Context, sessionID string, req model.AddTabRequest) (model.Tab, error)
	RemoveTab(ctx context.Context, sessionID string, tabID string) (model.Tab, error)
	UpdateTab(ctx context.Context, sessionID string, tabID string, req model.UpdateTabRequest) (model.Tab, error)
	ReorderTab(ctx context.Context, sessionID string, tabID string, tabIndex int) (model.Tab, error)
}

type CommandKind string

const (
	CommandSubscribe  CommandKind = "subscribe"
	CommandJoin       CommandKind = "join"
	CommandLeave      CommandKind = "leave"
	CommandAddTab     CommandKind = "add-tab"
	CommandRemoveTab  CommandKind = "remove-tab"
	CommandUpdateTab  CommandKind = "update-tab"
	CommandReorderTab CommandKind = "reorder-tab"
)

// Command is a parsed inbound address plus its payload.
type Command struct {
	Kind      CommandKind
	SessionID string
	TabID     string
	Body      []byte
}

// ParseAddress maps an inbound address onto a command:
//
//	session/{id}                      subscribe
//	session/{id}/join                 join presence
//	session/{id}/leave                leave presence
//	session/{id}/add-tab              add a tab
//	session/{id}/remove-tab/{tabId}   remove a tab
//	session/{id}/update-tab/{tabId}   update a tab
//	session/{id}/reorder-tab/{tabId}  move a tab
func ParseAddress(address string, body []byte) (Command, errors.APIError) {
	parts := strings.Split(address, "/")
	if len(parts) < 2 || parts[0] != "session" || parts[1] == "" {
		return Command{}, errors.ErrBadRequest().SetDetail("unroutable address").SetFields(errors.Fields{"address": address})
	}

	cmd := Command{SessionID: parts[1], Body: body}

	switch len(parts) {
	case 2:
		cmd.Kind = CommandSubscribe

		return cmd, nil
	case 3:
		switch parts[2] {
		case "join":
			cmd.Kind = CommandJoin
		case "leave":
			cmd.Kind = CommandLeave
		case "add-tab":
			cmd.Kind = CommandAddTab
		default:
			return Command{}, errors.ErrBadRequest().SetDetail("unroutable address").SetFields(errors.Fields{"address": address})
		}

		return cmd, nil
	case 4:
		if parts[3] == "" {
			return Command{}, errors.ErrBadRequest().SetDetail("missing tab id").SetFields(errors.Fields{"address": address})
		}

		switch parts[2] {
		case "remove-tab":
			cmd.Kind = CommandRemoveTab
		case "update-tab":
			cmd.Kind = CommandUpdateTab
		case "reorder-tab":
			cmd.Kind = CommandReorderTab
		default:
			return Command{}, errors.ErrBadRequest().SetDetail("unroutable address").SetFields(errors.Fields{"address": address})
		}

		cmd.TabID = parts[3]

		return cmd, nil
	}

	return Command{}, errors.ErrBadRequest().SetDetail("unroutable address").SetFields(errors.Fields{"address": address})
}

// Router authorizes and executes tab commands. It keeps no state
// between commands; nothing is buffered, reordered or retried.
type Router struct {
	access   AccessResolver
	mutate   MutationService
	registry *presence.Registry
	prom     instance.Prometheus
}

type RouterOptions struct {
	Access     AccessResolver
	Mutate     MutationService
	Registry   *presence.Registry
	Prometheus instance.Prometheus
}

func NewRouter(opt RouterOptions) *Router {
	return &Router{
		access:   opt.Access,
		mutate:   opt.Mutate,
		registry: opt.Registry,
		prom:     opt.Prometheus,
	}
}

// Handle runs one tab command to completion: resolve role, authorize,
// mutate, refresh presence activity, and build the broadcastable
// update. Errors are returned to the caller for delivery to the
// issuing connection only.
func (r *Router) Handle(ctx context.Context, cmd Command, actor model.Identity) (events.Update, errors.APIError) {
	role, err := r.access.ResolveRole(ctx, actor.UserID, cmd.SessionID)
	if err != nil {
		return nil, r.reject(errors.From(err))
	}

	if !role.CanEdit() {
		return nil, r.reject(errors.ErrInsufficientPrivilege().SetFields(errors.Fields{
			"sessionId": cmd.SessionID,
			"required":  string(model.RoleEditor),
		}))
	}

	tab, updateType, apiErr := r.dispatch(ctx, cmd)
	if apiErr != nil {
		return nil, r.reject(apiErr)
	}

	r.registry.Touch(cmd.SessionID, actor.UserID)

	if r.prom != nil {
		r.prom.CommandsHandled().Inc()
	}

	return events.NewTabUpdate(updateType, tab, actor), nil
}

func (r *Router) dispatch(ctx context.Context, cmd Command) (model.Tab, events.TabUpdateType, errors.APIError) {
	switch cmd.Kind {
	case CommandAddTab:
		req := model.AddTabRequest{}
		if err := json.Unmarshal(cmd.Body, &req); err != nil {
			return model.Tab{}, "", errors.ErrBadRequest().SetDetail(err.Error())
		}

		tab, err := r.mutate.AddTab(ctx, cmd.SessionID, req)

		return tab, events.TabUpdateTypeAdded, wrapMutation(err)
	case CommandRemoveTab:
		tab, err := r.mutate.RemoveTab(ctx, cmd.SessionID, cmd.TabID)

		return tab, events.TabUpdateTypeRemoved, wrapMutation(err)
	case CommandUpdateTab:
		req := model.UpdateTabRequest{}
		if err := json.Unmarshal(cmd.Body, &req); err != nil {
			return model.Tab{}, "", errors.ErrBadRequest().SetDetail(err.Error())
		}

		tab, err := r.mutate.UpdateTab(ctx, cmd.SessionID, cmd.TabID, req)

		return tab, events.TabUpdateTypeUpdated, wrapMutation(err)
	case CommandReorderTab:
		req := model.ReorderTabRequest{}
		if err := json.Unmarshal(cmd.Body, &req); err != nil {
			return model.Tab{}, "", errors.ErrBadRequest().SetDetail(err.Error())
		}

		tab, err := r.mutate.ReorderTab(ctx, cmd.SessionID, cmd.TabID, req.TabIndex)

		return tab, events.TabUpdateTypeReordered, wrapMutation(err)
	}

	return model.Tab{}, "", errors.ErrBadRequest().SetDetail("not a tab command")
}

func (r *Router) reject(apiErr errors.APIError) errors.APIError {
	if r.prom != nil {
		r.prom.CommandsRejected().Inc()
	}

	return apiErr
}

func wrapMutation(err error) errors.APIError {
	if err == nil {
		return nil
	}

	return errors.From(err)
}
