package events

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/tabia/api/data/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Category partitions a session's broadcast streams so that
// subscribers only receive the kinds of updates they asked for.
type Category string

const (
	CategoryUpdates  Category = "updates"
	CategoryTabs     Category = "tabs"
	CategoryPresence Category = "presence"
)

// Topic returns the broadcast topic for a session and category, e.g.
// "session/<id>/tabs".
func Topic(sessionID string, cat Category) string {
	return fmt.Sprintf("session/%s/%s", sessionID, cat)
}

// BridgeSubject returns the broker subject a published update is
// mirrored to for out-of-process consumers.
func BridgeSubject(prefix string, sessionID string, cat Category) string {
	return fmt.Sprintf("%s.session.%s.%s", prefix, sessionID, cat)
}

type SessionUpdateType string

const (
	SessionUpdateTypeRenamed    SessionUpdateType = "SESSION_RENAMED"
	SessionUpdateTypeStarred    SessionUpdateType = "SESSION_STARRED"
	SessionUpdateTypeUnstarred  SessionUpdateType = "SESSION_UNSTARRED"
	SessionUpdateTypeDeleted    SessionUpdateType = "SESSION_DELETED"
	SessionUpdateTypeUserJoined SessionUpdateType = "USER_JOINED_SESSION"
	SessionUpdateTypeUserLeft   SessionUpdateType = "USER_LEFT_SESSION"
)

type TabUpdateType string

const (
	TabUpdateTypeAdded     TabUpdateType = "TAB_ADDED"
	TabUpdateTypeRemoved   TabUpdateType = "TAB_REMOVED"
	TabUpdateTypeUpdated   TabUpdateType = "TAB_UPDATED"
	TabUpdateTypeReordered TabUpdateType = "TAB_REORDERED"
)

type PresenceType string

const (
	PresenceTypeUserJoined PresenceType = "USER_JOINED"
	PresenceTypeUserLeft   PresenceType = "USER_LEFT"
	PresenceTypeSnapshot   PresenceType = "PRESENCE_UPDATE"
)

// Update is the sum of the three message variants broadcast over a
// session's topics. Values are constructed once and never mutated
// after dispatch.
type Update interface {
	Topic() string
	Category() Category
	Session() string

	isUpdate()
}

type SessionUpdateMessage struct {
	Type        SessionUpdateType `json:"type"`
	SessionID   string            `json:"sessionId"`
	SessionName string            `json:"sessionName,omitempty"`
	UserID      string            `json:"userId"`
	UserName    string            `json:"userName"`
	UserEmail   string            `json:"userEmail"`
	Timestamp   time.Time         `json:"timestamp"`
}

func (m SessionUpdateMessage) Topic() string      { return Topic(m.SessionID, CategoryUpdates) }
func (m SessionUpdateMessage) Category() Category { return CategoryUpdates }
func (m SessionUpdateMessage) Session() string    { return m.SessionID }
func (m SessionUpdateMessage) isUpdate()          {}

type TabUpdateMessage struct {
	Type      TabUpdateType `json:"type"`
	SessionID string        `json:"sessionId"`
	Tab       model.Tab     `json:"tab"`
	UserID    string        `json:"userId"`
	UserName  string        `json:"userName"`
	Timestamp time.Time     `json:"timestamp"`
}

func (m TabUpdateMessage) Topic() string      { return Topic(m.SessionID, CategoryTabs) }
func (m TabUpdateMessage) Category() Category { return CategoryTabs }
func (m TabUpdateMessage) Session() string    { return m.SessionID }
func (m TabUpdateMessage) isUpdate()          {}

// ActiveUser is one entry of a presence snapshot. Ordering within
// ActiveUsers carries no meaning.
type ActiveUser struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	UserEmail string    `json:"userEmail"`
	JoinedAt  time.Time `json:"joinedAt"`
}

type UserPresenceMessage struct {
	Type        PresenceType `json:"type"`
	SessionID   string       `json:"sessionId"`
	UserID      string       `json:"userId"`
	UserName    string       `json:"userName"`
	UserEmail   string       `json:"userEmail"`
	ActiveUsers []ActiveUser `json:"activeUsers"`
	Timestamp   time.Time    `json:"timestamp"`
}

func (m UserPresenceMessage) Topic() string      { return Topic(m.SessionID, CategoryPresence) }
func (m UserPresenceMessage) Category() Category { return CategoryPresence }
func (m UserPresenceMessage) Session() string    { return m.SessionID }
func (m UserPresenceMessage) isUpdate()          {}

func NewSessionUpdate(t SessionUpdateType, sessionID string, sessionName string, actor model.Identity) SessionUpdateMessage {
	return SessionUpdateMessage{
		Type:        t,
		SessionID:   sessionID,
		SessionName: sessionName,
		UserID:      actor.UserID,
		UserName:    actor.DisplayName,
		UserEmail:   actor.Email,
		Timestamp:   time.Now(),
	}
}

func NewTabUpdate(t TabUpdateType, tab model.Tab, actor model.Identity) TabUpdateMessage {
	return TabUpdateMessage{
		Type:      t,
		SessionID: tab.SessionID,
		Tab:       tab,
		UserID:    actor.UserID,
		UserName:  actor.DisplayName,
		Timestamp: time.Now(),
	}
}

func NewPresenceUpdate(t PresenceType, sessionID string, subject model.Identity, active []ActiveUser) UserPresenceMessage {
	if active == nil {
		active = []ActiveUser{}
	}

	return UserPresenceMessage{
		Type:        t,
		SessionID:   sessionID,
		UserID:      subject.UserID,
		UserName:    subject.DisplayName,
		UserEmail:   subject.Email,
		ActiveUsers: active,
		Timestamp:   time.Now(),
	}
}

// Marshal encodes an update once for fan-out to every subscriber of
// its topic.
func Marshal(u Update) ([]byte, error) {
	return json.Marshal(u)
}
