package realtime

import (
	"testing"

	"github.com/tabia/api/data/events"
	"github.com/tabia/api/data/model"
	"github.com/tabia/api/internal/testutil"
)

type fakeSubscriber struct {
	id     string
	frames [][]byte
	full   bool
}

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) Deliver(b []byte) bool {
	if f.full {
		return false
	}

	f.frames = append(f.frames, b)

	return true
}

func TestHubFanOut(t *testing.T) {
	t.Parallel()

	hub := NewHub(HubOptions{})

	a := &fakeSubscriber{id: "a"}
	b := &fakeSubscriber{id: "b"}
	c := &fakeSubscriber{id: "c"}

	topic := events.Topic("s1", events.CategoryTabs)

	hub.Subscribe(a, topic)
	hub.Subscribe(b, topic)
	hub.Subscribe(c, events.Topic("s2", events.CategoryTabs))

	testutil.Assert(t, 2, hub.SubscriberCount(topic), "two subscribers on the topic")

	update := events.NewTabUpdate(events.TabUpdateTypeAdded, model.Tab{ID: "t1", SessionID: "s1"}, model.Identity{UserID: "u1"})
	testutil.IsNil(t, hub.Publish(update), "publish")

	testutil.Assert(t, 1, len(a.frames), "subscriber a received the frame")
	testutil.Assert(t, 1, len(b.frames), "subscriber b received the frame")
	testutil.Assert(t, 0, len(c.frames), "other session receives nothing")

	msg := ServerMessage{}
	testutil.IsNil(t, json.Unmarshal(a.frames[0], &msg), "frame decodes")
	testutil.Assert(t, topic, msg.Topic, "frame carries the topic")
}

func TestHubUnsubscribe(t *testing.T) {
	t.Parallel()

	hub := NewHub(HubOptions{})

	sub := &fakeSubscriber{id: "a"}

	tabs := events.Topic("s1", events.CategoryTabs)
	presenceTopic := events.Topic("s1", events.CategoryPresence)

	hub.Subscribe(sub, tabs, presenceTopic)
	hub.Unsubscribe(sub, tabs)

	testutil.Assert(t, 0, hub.SubscriberCount(tabs), "dropped from tabs")
	testutil.Assert(t, 1, hub.SubscriberCount(presenceTopic), "still on presence")

	hub.UnsubscribeAll(sub)
	testutil.Assert(t, 0, hub.SubscriberCount(presenceTopic), "dropped from everything")

	update := events.NewTabUpdate(events.TabUpdateTypeAdded, model.Tab{ID: "t1", SessionID: "s1"}, model.Identity{UserID: "u1"})
	testutil.IsNil(t, hub.Publish(update), "publish to empty topic")
	testutil.Assert(t, 0, len(sub.frames), "unsubscribed connection receives nothing")
}

func TestHubSkipsSlowSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub(HubOptions{})

	slow := &fakeSubscriber{id: "slow", full: true}
	fast := &fakeSubscriber{id: "fast"}

	topic := events.Topic("s1", events.CategoryTabs)
	hub.Subscribe(slow, topic)
	hub.Subscribe(fast, topic)

	update := events.NewTabUpdate(events.TabUpdateTypeUpdated, model.Tab{ID: "t1", SessionID: "s1"}, model.Identity{UserID: "u1"})
	testutil.IsNil(t, hub.Publish(update), "a full subscriber does not fail the publish")
	testutil.Assert(t, 1, len(fast.frames), "fast subscriber still served")
}
