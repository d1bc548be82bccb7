package presence

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/tabia/api/data/model"
)

const shardCount = 32

// Registry tracks which identities are currently inside which session.
// Sessions are sharded by id so that operations on unrelated sessions
// never contend on a common lock; within a shard, operations are
// serialized, which makes join/leave/touch for any single session
// appear totally ordered.
type Registry struct {
	shards [shardCount]shard
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]map[string]*Entry
}

// Entry is one user's presence inside one session. A user appears at
// most once per session.
type Entry struct {
	Identity       model.Identity
	JoinedAt       time.Time
	LastActivityAt time.Time
}

// Departure is the result of removing a user from one session, as
// produced by RemoveEverywhere.
type Departure struct {
	SessionID string
	Remaining []Entry
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].sessions = map[string]map[string]*Entry{}
	}

	return r
}

func (r *Registry) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))

	return &r.shards[h.Sum32()%shardCount]
}

// Join inserts or refreshes the entry for (sessionID, identity) and
// returns the resulting snapshot. Re-joining never duplicates; it
// resets JoinedAt and LastActivityAt.
func (r *Registry) Join(sessionID string, identity model.Identity) []Entry {
	s := r.shardFor(sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.sessions[sessionID]
	if users == nil {
		users = map[string]*Entry{}
		s.sessions[sessionID] = users
	}

	now := time.Now()
	users[identity.UserID] = &Entry{
		Identity:       identity,
		JoinedAt:       now,
		LastActivityAt: now,
	}

	return snapshotLocked(users)
}

// Leave removes the entry for (sessionID, userID). The second return
// is false when the user was not present; callers treat that as a
// normal no-op, not an error.
func (r *Registry) Leave(sessionID string, userID string) ([]Entry, bool) {
	s := r.shardFor(sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.sessions[sessionID]
	if users == nil {
		return nil, false
	}

	if _, ok := users[userID]; !ok {
		return nil, false
	}

	delete(users, userID)

	if len(users) == 0 {
		delete(s.sessions, sessionID)
	}

	return snapshotLocked(users), true
}

// Touch refreshes LastActivityAt if the user is present. It never
// creates an entry.
func (r *Registry) Touch(sessionID string, userID string) bool {
	s := r.shardFor(sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.sessions[sessionID]
	if users == nil {
		return false
	}

	e, ok := users[userID]
	if !ok {
		return false
	}

	e.LastActivityAt = time.Now()

	return true
}

// Snapshot returns the current entries for a session, in no particular
// order.
func (r *Registry) Snapshot(sessionID string) []Entry {
	s := r.shardFor(sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()

	return snapshotLocked(s.sessions[sessionID])
}

// IsPresent reports whether the user currently has an entry in the
// session.
func (r *Registry) IsPresent(sessionID string, userID string) bool {
	s := r.shardFor(sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.sessions[sessionID]
	if users == nil {
		return false
	}

	_, ok := users[userID]

	return ok
}

// Count returns the total number of (session, user) entries.
func (r *Registry) Count() int {
	n := 0

	for i := range r.shards {
		s := &r.shards[i]

		s.mu.Lock()
		for _, users := range s.sessions {
			n += len(users)
		}
		s.mu.Unlock()
	}

	return n
}

// RemoveEverywhere removes the user from every session they are in and
// returns one departure per affected session, in arbitrary order.
// Used on disconnect.
func (r *Registry) RemoveEverywhere(userID string) []Departure {
	var departures []Departure

	for i := range r.shards {
		s := &r.shards[i]

		s.mu.Lock()

		for sessionID, users := range s.sessions {
			if _, ok := users[userID]; !ok {
				continue
			}

			delete(users, userID)

			if len(users) == 0 {
				delete(s.sessions, sessionID)
			}

			departures = append(departures, Departure{
				SessionID: sessionID,
				Remaining: snapshotLocked(users),
			})
		}

		s.mu.Unlock()
	}

	return departures
}

func snapshotLocked(users map[string]*Entry) []Entry {
	result := make([]Entry, 0, len(users))
	for _, e := range users {
		result = append(result, *e)
	}

	return result
}
