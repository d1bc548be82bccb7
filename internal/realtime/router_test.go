package realtime

import (
	"context"
	"testing"

	"github.com/tabia/api/data/events"
	"github.com/tabia/api/data/model"
	"github.com/tabia/api/internal/errors"
	"github.com/tabia/api/internal/realtime/presence"
	"github.com/tabia/api/internal/testutil"
)

type fakeAccess struct {
	roles map[string]model.Role
	err   error
}

func (f *fakeAccess) ResolveRole(_ context.Context, userID string, sessionID string) (model.Role, error) {
	if f.err != nil {
		return model.RoleNone, f.err
	}

	return f.roles[userID+"/"+sessionID], nil
}

type fakeMutation struct {
	calls int
	err   error
}

func (f *fakeMutation) AddTab(_ context.Context, sessionID string, req model.AddTabRequest) (model.Tab, error) {
	f.calls++

	return model.Tab{ID: "tab-1", SessionID: sessionID, Title: req.Title, URL: req.URL}, f.err
}

func (f *fakeMutation) RemoveTab(_ context.Context, sessionID string, tabID string) (model.Tab, error) {
	f.calls++

	return model.Tab{ID: tabID, SessionID: sessionID}, f.err
}

func (f *fakeMutation) UpdateTab(_ context.Context, sessionID string, tabID string, _ model.UpdateTabRequest) (model.Tab, error) {
	f.calls++

	return model.Tab{ID: tabID, SessionID: sessionID}, f.err
}

func (f *fakeMutation) ReorderTab(_ context.Context, sessionID string, tabID string, tabIndex int) (model.Tab, error) {
	f.calls++

	return model.Tab{ID: tabID, SessionID: sessionID, TabIndex: tabIndex}, f.err
}

func TestParseAddress(t *testing.T) {
	t.Parallel()

	cases := []struct {
		address string
		kind    CommandKind
		session string
		tab     string
		errCode int
	}{
		{address: "session/abc", kind: CommandSubscribe, session: "abc"},
		{address: "session/abc/join", kind: CommandJoin, session: "abc"},
		{address: "session/abc/leave", kind: CommandLeave, session: "abc"},
		{address: "session/abc/add-tab", kind: CommandAddTab, session: "abc"},
		{address: "session/abc/remove-tab/t1", kind: CommandRemoveTab, session: "abc", tab: "t1"},
		{address: "session/abc/update-tab/t1", kind: CommandUpdateTab, session: "abc", tab: "t1"},
		{address: "session/abc/reorder-tab/t1", kind: CommandReorderTab, session: "abc", tab: "t1"},
		{address: "", errCode: 73400},
		{address: "session", errCode: 73400},
		{address: "session/", errCode: 73400},
		{address: "topic/abc", errCode: 73400},
		{address: "session/abc/rename", errCode: 73400},
		{address: "session/abc/remove-tab/", errCode: 73400},
		{address: "session/abc/drop-tab/t1", errCode: 73400},
		{address: "session/abc/update-tab/t1/extra", errCode: 73400},
	}

	for _, c := range cases {
		cmd, apiErr := ParseAddress(c.address, nil)
		if c.errCode != 0 {
			testutil.IsNotNil(t, apiErr, c.address)
			testutil.Assert(t, c.errCode, apiErr.Code(), c.address)

			continue
		}

		testutil.IsNil(t, apiErr, c.address)
		testutil.Assert(t, c.kind, cmd.Kind, c.address)
		testutil.Assert(t, c.session, cmd.SessionID, c.address)
		testutil.Assert(t, c.tab, cmd.TabID, c.address)
	}
}

func TestRouterRejectsViewers(t *testing.T) {
	t.Parallel()

	mutation := &fakeMutation{}
	router := NewRouter(RouterOptions{
		Access:   &fakeAccess{roles: map[string]model.Role{"viewer/s1": model.RoleViewer}},
		Mutate:   mutation,
		Registry: presence.NewRegistry(),
	})

	cmd := Command{Kind: CommandAddTab, SessionID: "s1", Body: []byte(`{"title":"Docs"}`)}

	update, apiErr := router.Handle(context.Background(), cmd, model.Identity{UserID: "viewer"})
	testutil.IsNotNil(t, apiErr, "viewer command rejected")
	testutil.Assert(t, 71403, apiErr.Code(), "insufficient privilege code")
	testutil.Assert(t, 0, mutation.calls, "mutation never runs for a viewer")

	if update != nil {
		t.Fatal("no update for a rejected command")
	}

	update, apiErr = router.Handle(context.Background(), cmd, model.Identity{UserID: "stranger"})
	testutil.IsNotNil(t, apiErr, "stranger command rejected")
	testutil.Assert(t, 71403, apiErr.Code(), "no role is treated as insufficient")
	testutil.Assert(t, 0, mutation.calls, "mutation never runs without a role")

	if update != nil {
		t.Fatal("no update for a rejected command")
	}
}

func TestRouterDispatch(t *testing.T) {
	t.Parallel()

	registry := presence.NewRegistry()
	registry.Join("s1", model.Identity{UserID: "editor"})

	mutation := &fakeMutation{}
	router := NewRouter(RouterOptions{
		Access:   &fakeAccess{roles: map[string]model.Role{"editor/s1": model.RoleEditor}},
		Mutate:   mutation,
		Registry: registry,
	})

	actor := model.Identity{UserID: "editor", DisplayName: "Editor"}

	cases := []struct {
		cmd        Command
		updateType events.TabUpdateType
	}{
		{Command{Kind: CommandAddTab, SessionID: "s1", Body: []byte(`{"title":"Docs","url":"https://example.com"}`)}, events.TabUpdateTypeAdded},
		{Command{Kind: CommandRemoveTab, SessionID: "s1", TabID: "t1"}, events.TabUpdateTypeRemoved},
		{Command{Kind: CommandUpdateTab, SessionID: "s1", TabID: "t1", Body: []byte(`{"title":"Changed"}`)}, events.TabUpdateTypeUpdated},
		{Command{Kind: CommandReorderTab, SessionID: "s1", TabID: "t1", Body: []byte(`{"tabIndex":3}`)}, events.TabUpdateTypeReordered},
	}

	for _, c := range cases {
		update, apiErr := router.Handle(context.Background(), c.cmd, actor)
		testutil.IsNil(t, apiErr, string(c.cmd.Kind))

		msg, ok := update.(events.TabUpdateMessage)
		testutil.Assert(t, true, ok, "tab update message")
		testutil.Assert(t, c.updateType, msg.Type, string(c.cmd.Kind))
		testutil.Assert(t, "session/s1/tabs", update.Topic(), "tab topic")
		testutil.Assert(t, "editor", msg.UserID, "actor attribution")
	}

	testutil.Assert(t, len(cases), mutation.calls, "every command mutated")
}

func TestRouterSurfacesMutationFailure(t *testing.T) {
	t.Parallel()

	mutation := &fakeMutation{err: errors.ErrUnknownTab()}
	router := NewRouter(RouterOptions{
		Access:   &fakeAccess{roles: map[string]model.Role{"editor/s1": model.RoleEditor}},
		Mutate:   mutation,
		Registry: presence.NewRegistry(),
	})

	cmd := Command{Kind: CommandRemoveTab, SessionID: "s1", TabID: "missing"}

	update, apiErr := router.Handle(context.Background(), cmd, model.Identity{UserID: "editor"})
	testutil.IsNotNil(t, apiErr, "mutation failure surfaces")
	testutil.Assert(t, 72405, apiErr.Code(), "unknown tab code passes through")

	if update != nil {
		t.Fatal("no update when the mutation fails")
	}
}

func TestRouterRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	mutation := &fakeMutation{}
	router := NewRouter(RouterOptions{
		Access:   &fakeAccess{roles: map[string]model.Role{"editor/s1": model.RoleEditor}},
		Mutate:   mutation,
		Registry: presence.NewRegistry(),
	})

	cmd := Command{Kind: CommandAddTab, SessionID: "s1", Body: []byte(`{"title":`)}

	_, apiErr := router.Handle(context.Background(), cmd, model.Identity{UserID: "editor"})
	testutil.IsNotNil(t, apiErr, "malformed body rejected")
	testutil.Assert(t, 73400, apiErr.Code(), "bad request code")
	testutil.Assert(t, 0, mutation.calls, "mutation never runs on a malformed body")
}
