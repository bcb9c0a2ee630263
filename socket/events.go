package socket

import (
	"encoding/json"
	"time"

	"noteflow/internal/collab"
)

// Client → server events.
const (
	EventJoinDocument       = "join-document"
	EventLeaveDocument      = "leave-document"
	EventContentChange      = "content-change"
	EventTitleChange        = "title-change"
	EventCursorPosition     = "cursor-position"
	EventAddComment         = "add-comment"
	EventResolveComment     = "resolve-comment"
	EventInviteCollaborator = "invite-collaborator"
	EventRemoveCollaborator = "remove-collaborator"
)

// Server → client events.
const (
	EventParticipantJoined   = "participant-joined"
	EventParticipantLeft     = "participant-left"
	EventActiveParticipants  = "active-participants"
	EventContentChanged      = "content-changed"
	EventTitleChanged        = "title-changed"
	EventCursorMoved         = "cursor-moved"
	EventCommentAdded        = "comment-added"
	EventCommentResolved     = "comment-resolved"
	EventCollaboratorAdded   = "collaborator-added"
	EventCollaboratorUpdated = "collaborator-updated"
	EventCollaboratorJoined  = "collaborator-joined"
	EventCollaboratorRemoved = "collaborator-removed"
	EventError               = "error"
)

// Message is the wire envelope in both directions. UserID and UserName
// are server-authoritative: inbound values are discarded and replaced
// with the sender's resolved identity before anything is relayed.
type Message struct {
	Event      string          `json:"event"`
	DocumentID string          `json:"documentId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	UserName   string          `json:"userName,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type Participant struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type AddCommentPayload struct {
	Text     string          `json:"text"`
	Position collab.Position `json:"position"`
}

type ResolveCommentPayload struct {
	CommentID string `json:"commentId"`
}

type CommentResolvedPayload struct {
	CommentID  string    `json:"commentId"`
	ResolvedBy string    `json:"resolvedBy"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

type InviteCollaboratorPayload struct {
	Email           string `json:"email"`
	PermissionLevel string `json:"permissionLevel"`
}

type CollaboratorPayload struct {
	UserID          string            `json:"userId"`
	UserName        string            `json:"userName"`
	Email           string            `json:"email,omitempty"`
	PermissionLevel collab.Permission `json:"permissionLevel"`
}

type RemoveCollaboratorPayload struct {
	UserID string `json:"userId"`
}

func mustMarshal(v interface{}) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
