package model

import (
	"time"
)

// Identity is the verified claim set attached to a connection at
// authentication time. It is a snapshot; it is not refreshed while the
// connection lives.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

type Role string

const (
	RoleNone   Role = ""
	RoleViewer Role = "VIEWER"
	RoleEditor Role = "EDITOR"
)

// CanEdit reports whether the role permits tab and session mutations.
// Owners resolve to RoleEditor, so there is no separate owner case.
func (r Role) CanEdit() bool {
	return r == RoleEditor
}

// Granted reports whether the role permits viewing a session at all.
func (r Role) Granted() bool {
	return r != RoleNone
}

type Session struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	OwnerID   string    `json:"ownerId" bson:"owner_id"`
	Starred   bool      `json:"starred" bson:"starred"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

type Tab struct {
	ID          string    `json:"id" bson:"_id"`
	SessionID   string    `json:"sessionId" bson:"session_id"`
	Title       string    `json:"title" bson:"title"`
	URL         string    `json:"url" bson:"url"`
	TabIndex    int       `json:"tabIndex" bson:"tab_index"`
	WindowIndex int       `json:"windowIndex" bson:"window_index"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
}

type Collaborator struct {
	SessionID string    `json:"sessionId" bson:"session_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	Role      Role      `json:"role" bson:"role"`
	AddedAt   time.Time `json:"addedAt" bson:"added_at"`
}
