package socket

import (
	"time"

	"noteflow/internal/collab"
	"noteflow/pkg/logger"

	"github.com/google/uuid"
)

// Synchronizer applies the durable side-effects of collaboration:
// comments and collaborator grants. Every mutation is validated against
// stored note state and persisted before anything is broadcast; a failed
// store call is reported to the requester only and broadcasts nothing.
type Synchronizer struct {
	hub   *Hub
	notes collab.NoteStore
	users collab.UserStore
}

func NewSynchronizer(hub *Hub, notes collab.NoteStore, users collab.UserStore) *Synchronizer {
	return &Synchronizer{hub: hub, notes: notes, users: users}
}

// AddComment appends a comment with a server-assigned id and timestamp,
// then broadcasts it to every channel member, sender included.
func (s *Synchronizer) AddComment(c *Client, docID string, p AddCommentPayload) error {
	if _, err := s.notes.FindNoteByID(docID); err != nil {
		return err
	}

	comment := &collab.Comment{
		ID:        uuid.NewString(),
		UserID:    c.user.ID,
		UserName:  c.user.Name,
		Text:      p.Text,
		Position:  p.Position,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.notes.AppendComment(docID, comment); err != nil {
		return err
	}

	s.hub.BroadcastToChannel(docID, Message{
		Event:      EventCommentAdded,
		DocumentID: docID,
		UserID:     c.user.ID,
		UserName:   c.user.Name,
		Payload:    mustMarshal(comment),
	})
	return nil
}

// ResolveComment marks an unresolved comment resolved by the requester.
// A comment that is already resolved, or a (document, comment) pair that
// does not match, fails not-found without mutating or broadcasting.
func (s *Synchronizer) ResolveComment(c *Client, docID, commentID string) error {
	resolvedAt := time.Now().UTC()
	err := s.notes.UpdateComment(docID, commentID, collab.CommentUpdate{
		Resolved:   true,
		ResolvedBy: c.user.ID,
		ResolvedAt: resolvedAt,
	})
	if err != nil {
		return err
	}

	s.hub.BroadcastToChannel(docID, Message{
		Event:      EventCommentResolved,
		DocumentID: docID,
		Payload: mustMarshal(CommentResolvedPayload{
			CommentID:  commentID,
			ResolvedBy: c.user.Name,
			ResolvedAt: resolvedAt,
		}),
	})
	return nil
}

// InviteCollaborator grants, or re-grants at a new level, access to the
// user behind email. A fresh grant notifies the inviter and the invited
// user's own connections in the channel; a level change notifies the
// inviter only.
func (s *Synchronizer) InviteCollaborator(c *Client, docID, email, level string) error {
	perm, err := collab.ParsePermission(level)
	if err != nil {
		return collab.ErrConflict("unknown permission level")
	}

	note, err := s.notes.FindNoteByID(docID)
	if err != nil {
		return err
	}

	invitee, err := s.users.FindUserByEmail(email)
	if err != nil {
		if collab.IsNotFound(err) {
			return collab.ErrNotFound("user not found")
		}
		return err
	}

	if invitee.ID == note.OwnerID {
		return collab.ErrConflict("owner cannot be a collaborator")
	}

	grant := &collab.CollaboratorGrant{
		UserID:     invitee.ID,
		Permission: perm,
		AddedBy:    c.user.ID,
		AddedAt:    time.Now().UTC(),
	}

	if existing, ok := note.GrantFor(invitee.ID); ok {
		if existing.Permission == perm {
			return collab.ErrConflict("already a collaborator at this level")
		}
		if err := s.notes.UpsertCollaborator(docID, grant); err != nil {
			return err
		}
		s.hub.SetMemberPermission(docID, invitee.ID, perm)
		c.trySend(Message{
			Event:      EventCollaboratorUpdated,
			DocumentID: docID,
			Payload: mustMarshal(CollaboratorPayload{
				UserID:          invitee.ID,
				UserName:        invitee.Name,
				Email:           invitee.Email,
				PermissionLevel: perm,
			}),
		})
		logger.Sugar.Infof("Collaborator %s on %s updated to %s", invitee.ID, docID, perm)
		return nil
	}

	if err := s.notes.UpsertCollaborator(docID, grant); err != nil {
		return err
	}

	c.trySend(Message{
		Event:      EventCollaboratorAdded,
		DocumentID: docID,
		Payload: mustMarshal(CollaboratorPayload{
			UserID:          invitee.ID,
			UserName:        invitee.Name,
			Email:           invitee.Email,
			PermissionLevel: perm,
		}),
	})
	s.hub.SendToUser(docID, invitee.ID, Message{
		Event:      EventCollaboratorJoined,
		DocumentID: docID,
		Payload: mustMarshal(CollaboratorPayload{
			UserID:          invitee.ID,
			UserName:        invitee.Name,
			PermissionLevel: perm,
		}),
	})
	s.hub.SetMemberPermission(docID, invitee.ID, perm)
	return nil
}

// RemoveCollaborator deletes a grant. Owner-only; the removal broadcast
// reaches the whole channel including the removed user's connection so
// that client can demote its local permission state.
func (s *Synchronizer) RemoveCollaborator(c *Client, docID, userID string) error {
	note, err := s.notes.FindNoteByID(docID)
	if err != nil {
		return err
	}

	if note.OwnerID != c.user.ID {
		return collab.ErrAuthorization("only the owner can remove collaborators")
	}

	if _, ok := note.GrantFor(userID); !ok {
		return collab.ErrNotFound("collaborator not found")
	}

	if err := s.notes.RemoveCollaborator(docID, userID); err != nil {
		return err
	}

	// The removed user keeps channel membership until they leave, but
	// any cached edit capability is revoked immediately.
	s.hub.SetMemberPermission(docID, userID, collab.PermissionView)
	s.hub.BroadcastToChannel(docID, Message{
		Event:      EventCollaboratorRemoved,
		DocumentID: docID,
		Payload:    mustMarshal(RemoveCollaboratorPayload{UserID: userID}),
	})
	return nil
}
