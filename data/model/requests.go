package model

// Request bodies shared by the REST surface and the realtime command
// router. Field names are fixed by the extension's wire format.

type CreateSessionRequest struct {
	Name string `json:"name"`
}

type UpdateSessionRequest struct {
	Name    *string `json:"name,omitempty"`
	Starred *bool   `json:"starred,omitempty"`
}

type AddTabRequest struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	TabIndex    int    `json:"tabIndex"`
	WindowIndex int    `json:"windowIndex"`
}

type UpdateTabRequest struct {
	Title    *string `json:"title,omitempty"`
	URL      *string `json:"url,omitempty"`
	TabIndex *int    `json:"tabIndex,omitempty"`
}

type ReorderTabRequest struct {
	TabIndex int `json:"tabIndex"`
}

type AddCollaboratorRequest struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}
