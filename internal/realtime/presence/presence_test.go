package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/tabia/api/data/model"
	"github.com/tabia/api/internal/testutil"
)

func ident(n int) model.Identity {
	return model.Identity{
		UserID:      fmt.Sprintf("user-%d", n),
		DisplayName: fmt.Sprintf("User %d", n),
		Email:       fmt.Sprintf("user-%d@example.com", n),
	}
}

func TestJoinLeave(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	const users = 8

	for i := 0; i < users; i++ {
		entries := r.Join("session-a", ident(i))
		testutil.Assert(t, i+1, len(entries), "snapshot size after join")
	}

	testutil.Assert(t, users, r.Count(), "total entries")

	for i := 0; i < users; i++ {
		entries, removed := r.Leave("session-a", ident(i).UserID)
		testutil.Assert(t, true, removed, "leave removed the entry")
		testutil.Assert(t, users-i-1, len(entries), "snapshot size after leave")
	}

	testutil.Assert(t, 0, r.Count(), "registry empty")
	testutil.Assert(t, 0, len(r.Snapshot("session-a")), "session snapshot empty")
}

func TestRejoinDoesNotDuplicate(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	first := r.Join("session-a", ident(1))
	second := r.Join("session-a", ident(1))

	testutil.Assert(t, 1, len(first), "first join snapshot")
	testutil.Assert(t, 1, len(second), "rejoin snapshot")
	testutil.Assert(t, 1, r.Count(), "single entry after rejoin")
	testutil.Assert(t, false, second[0].JoinedAt.Before(first[0].JoinedAt), "rejoin refreshes the join time")
}

func TestLeaveAbsentIsNoOp(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	_, removed := r.Leave("session-a", "user-1")
	testutil.Assert(t, false, removed, "leave of unknown session")

	r.Join("session-a", ident(1))

	_, removed = r.Leave("session-a", "user-2")
	testutil.Assert(t, false, removed, "leave of absent user")

	_, removed = r.Leave("session-a", "user-1")
	testutil.Assert(t, true, removed, "first leave")

	_, removed = r.Leave("session-a", "user-1")
	testutil.Assert(t, false, removed, "second leave")
}

func TestTouch(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	testutil.Assert(t, false, r.Touch("session-a", "user-1"), "touch never creates an entry")

	entries := r.Join("session-a", ident(1))
	joined := entries[0].LastActivityAt

	testutil.Assert(t, true, r.Touch("session-a", "user-1"), "touch present user")

	entries = r.Snapshot("session-a")
	testutil.Assert(t, false, entries[0].LastActivityAt.Before(joined), "activity refreshed")
}

func TestRemoveEverywhere(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	r.Join("session-a", ident(1))
	r.Join("session-b", ident(1))
	r.Join("session-b", ident(2))

	departures := r.RemoveEverywhere("user-1")
	testutil.Assert(t, 2, len(departures), "one departure per session")

	for _, dep := range departures {
		switch dep.SessionID {
		case "session-a":
			testutil.Assert(t, 0, len(dep.Remaining), "session-a emptied")
		case "session-b":
			testutil.Assert(t, 1, len(dep.Remaining), "session-b keeps the other user")
			testutil.Assert(t, "user-2", dep.Remaining[0].Identity.UserID, "remaining user")
		default:
			t.Fatalf("unexpected departure for %s", dep.SessionID)
		}
	}

	testutil.Assert(t, false, r.IsPresent("session-a", "user-1"), "user-1 gone from session-a")
	testutil.Assert(t, false, r.IsPresent("session-b", "user-1"), "user-1 gone from session-b")
	testutil.Assert(t, true, r.IsPresent("session-b", "user-2"), "user-2 untouched")
	testutil.Assert(t, 0, len(r.RemoveEverywhere("user-1")), "second removal finds nothing")
}

// Hammers one session from many goroutines. Each worker only mutates
// its own entry, so the final roster is exact: no entry may be lost or
// duplicated however the operations interleave.
func TestConcurrentSessionMutation(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	const (
		workers    = 16
		iterations = 200
	)

	wg := sync.WaitGroup{}

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			id := ident(n)

			for j := 0; j < iterations; j++ {
				r.Join("session-a", id)
				r.Touch("session-a", id.UserID)

				switch j % 3 {
				case 0:
					r.Leave("session-a", id.UserID)
				case 1:
					r.Join("session-b", id)
					r.RemoveEverywhere(id.UserID)
				default:
					r.Snapshot("session-a")
					r.IsPresent("session-a", id.UserID)
				}
			}

			r.RemoveEverywhere(id.UserID)
			r.Join("session-a", id)
		}(i)
	}

	wg.Wait()

	testutil.Assert(t, workers, r.Count(), "exactly one entry per worker survives")
	testutil.Assert(t, workers, len(r.Snapshot("session-a")), "every worker present in the session")
	testutil.Assert(t, 0, len(r.Snapshot("session-b")), "scratch session emptied")
}
