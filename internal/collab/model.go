package collab

import "time"

// User is the identity resolved once from a credential at connect time.
// It is never re-derived from client-supplied fields afterward.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Position is a character-offset range into the note's plain-text
// projection. Offsets are anchored to the content at authoring time and
// are not re-anchored on later edits.
type Position struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Comment struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	UserName   string     `json:"userName"`
	Text       string     `json:"text"`
	Position   Position   `json:"position"`
	CreatedAt  time.Time  `json:"timestamp"`
	Resolved   bool       `json:"resolved"`
	ResolvedBy string     `json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// CollaboratorGrant is a per-note, per-user permission record. The note
// owner is never represented as a grant; ownership is a separate relation.
type CollaboratorGrant struct {
	UserID     string     `json:"userId"`
	Permission Permission `json:"permissionLevel"`
	AddedBy    string     `json:"addedBy"`
	AddedAt    time.Time  `json:"addedAt"`
}

type Note struct {
	ID            string
	Title         string
	Content       string
	OwnerID       string
	Comments      []Comment
	Collaborators []CollaboratorGrant
}

// GrantFor returns the grant held by userID, if any. At most one grant
// exists per (note, user) pair.
func (n *Note) GrantFor(userID string) (*CollaboratorGrant, bool) {
	for i := range n.Collaborators {
		if n.Collaborators[i].UserID == userID {
			return &n.Collaborators[i], true
		}
	}
	return nil, false
}

// CanAccess reports whether userID may join the note's channel: the
// owner or any grantee, regardless of level.
func (n *Note) CanAccess(userID string) bool {
	if n.OwnerID == userID {
		return true
	}
	_, ok := n.GrantFor(userID)
	return ok
}

// PermissionFor returns the effective permission of userID on the note.
// The owner always has edit capability.
func (n *Note) PermissionFor(userID string) (Permission, bool) {
	if n.OwnerID == userID {
		return PermissionEdit, true
	}
	if g, ok := n.GrantFor(userID); ok {
		return g.Permission, true
	}
	return PermissionView, false
}

// CommentUpdate carries the fields set when a comment is resolved.
type CommentUpdate struct {
	Resolved   bool
	ResolvedBy string
	ResolvedAt time.Time
}

// NoteStore is the boundary with the persistent data store. Each call is
// request/response; implementations map "no such row" to a NotFound error
// and driver failures to a Transport error.
type NoteStore interface {
	FindNoteByID(id string) (*Note, error)
	AppendComment(noteID string, c *Comment) error
	// UpdateComment applies fields to an existing, unresolved comment.
	// It fails NotFound when the (note, comment) pair does not match an
	// unresolved comment.
	UpdateComment(noteID, commentID string, fields CommentUpdate) error
	// UpsertCollaborator creates the grant or, when one already exists
	// for (noteID, grant.UserID), replaces its level in place.
	UpsertCollaborator(noteID string, g *CollaboratorGrant) error
	RemoveCollaborator(noteID, userID string) error
}

// UserStore is the boundary with the identity store.
type UserStore interface {
	FindUserByID(id string) (*User, error)
	FindUserByEmail(email string) (*User, error)
}
