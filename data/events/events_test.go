package events

import (
	"strings"
	"testing"
	"time"

	"github.com/tabia/api/data/model"
	"github.com/tabia/api/internal/testutil"
)

func TestTopics(t *testing.T) {
	t.Parallel()

	testutil.Assert(t, "session/s1/updates", Topic("s1", CategoryUpdates), "updates topic")
	testutil.Assert(t, "session/s1/tabs", Topic("s1", CategoryTabs), "tabs topic")
	testutil.Assert(t, "session/s1/presence", Topic("s1", CategoryPresence), "presence topic")
	testutil.Assert(t, "tabia.session.s1.tabs", BridgeSubject("tabia", "s1", CategoryTabs), "bridge subject")
}

func TestPresenceRosterNeverNull(t *testing.T) {
	t.Parallel()

	msg := NewPresenceUpdate(PresenceTypeUserLeft, "s1", model.Identity{UserID: "u1"}, nil)
	testutil.Assert(t, 0, len(msg.ActiveUsers), "roster defaults to empty")

	b, err := Marshal(msg)
	testutil.IsNil(t, err, "marshal")
	testutil.Assert(t, true, strings.Contains(string(b), `"activeUsers":[]`), "roster serializes as an empty array")
}

func TestUpdateShape(t *testing.T) {
	t.Parallel()

	actor := model.Identity{UserID: "u1", DisplayName: "User One", Email: "one@example.com"}

	tab := NewTabUpdate(TabUpdateTypeAdded, model.Tab{ID: "t1", SessionID: "s1", Title: "Docs"}, actor)
	testutil.Assert(t, "session/s1/tabs", tab.Topic(), "tab update topic")
	testutil.Assert(t, "s1", tab.Session(), "tab update session")
	testutil.Assert(t, false, tab.Timestamp.IsZero(), "tab update is stamped")

	b, err := Marshal(tab)
	testutil.IsNil(t, err, "marshal tab update")

	for _, key := range []string{`"type":"TAB_ADDED"`, `"sessionId":"s1"`, `"userId":"u1"`, `"tab":`} {
		testutil.Assert(t, true, strings.Contains(string(b), key), key)
	}

	session := NewSessionUpdate(SessionUpdateTypeRenamed, "s1", "New Name", actor)
	testutil.Assert(t, "session/s1/updates", session.Topic(), "session update topic")

	b, err = Marshal(session)
	testutil.IsNil(t, err, "marshal session update")
	testutil.Assert(t, true, strings.Contains(string(b), `"sessionName":"New Name"`), "session name serialized")

	presence := NewPresenceUpdate(PresenceTypeUserJoined, "s1", actor, []ActiveUser{{
		UserID:   "u1",
		UserName: "User One",
		JoinedAt: time.Now(),
	}})
	testutil.Assert(t, "session/s1/presence", presence.Topic(), "presence topic")
	testutil.Assert(t, "u1", presence.UserID, "presence subject")
}
