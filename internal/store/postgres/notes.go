package postgres

import (
	"database/sql"

	"noteflow/internal/collab"
	"noteflow/pkg/logger"
)

// NoteStore is the Postgres implementation of the data-store boundary.
type NoteStore struct {
	DB *sql.DB
}

func NewNoteStore(db *sql.DB) *NoteStore {
	return &NoteStore{DB: db}
}

func (s *NoteStore) FindNoteByID(id string) (*collab.Note, error) {
	var n collab.Note
	err := s.DB.QueryRow(
		"SELECT id, title, content, owner_id FROM notes WHERE id = $1", id,
	).Scan(&n.ID, &n.Title, &n.Content, &n.OwnerID)
	if err == sql.ErrNoRows {
		return nil, collab.ErrNotFound("note not found")
	} else if err != nil {
		logger.Sugar.Errorf("Failed to load note %s: %v", id, err)
		return nil, collab.ErrTransport("failed to load note", err)
	}

	if n.Comments, err = s.loadComments(id); err != nil {
		return nil, err
	}
	if n.Collaborators, err = s.loadCollaborators(id); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *NoteStore) loadComments(noteID string) ([]collab.Comment, error) {
	rows, err := s.DB.Query(`
		SELECT id, user_id, user_name, body, start_pos, end_pos, created_at, resolved, resolved_by, resolved_at
		FROM comments WHERE note_id = $1 ORDER BY created_at ASC`, noteID)
	if err != nil {
		logger.Sugar.Errorf("Failed to load comments for note %s: %v", noteID, err)
		return nil, collab.ErrTransport("failed to load comments", err)
	}
	defer rows.Close()

	var comments []collab.Comment
	for rows.Next() {
		var c collab.Comment
		var resolvedBy sql.NullString
		var resolvedAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.UserID, &c.UserName, &c.Text,
			&c.Position.Start, &c.Position.End, &c.CreatedAt,
			&c.Resolved, &resolvedBy, &resolvedAt); err != nil {
			return nil, collab.ErrTransport("failed to scan comment", err)
		}
		c.ResolvedBy = resolvedBy.String
		if resolvedAt.Valid {
			t := resolvedAt.Time
			c.ResolvedAt = &t
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *NoteStore) loadCollaborators(noteID string) ([]collab.CollaboratorGrant, error) {
	rows, err := s.DB.Query(`
		SELECT user_id, permission, added_by, added_at
		FROM collaborators WHERE note_id = $1`, noteID)
	if err != nil {
		logger.Sugar.Errorf("Failed to load collaborators for note %s: %v", noteID, err)
		return nil, collab.ErrTransport("failed to load collaborators", err)
	}
	defer rows.Close()

	var grants []collab.CollaboratorGrant
	for rows.Next() {
		var g collab.CollaboratorGrant
		var perm string
		if err := rows.Scan(&g.UserID, &perm, &g.AddedBy, &g.AddedAt); err != nil {
			return nil, collab.ErrTransport("failed to scan collaborator", err)
		}
		if g.Permission, err = collab.ParsePermission(perm); err != nil {
			return nil, collab.ErrTransport("bad permission value in store", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (s *NoteStore) AppendComment(noteID string, c *collab.Comment) error {
	_, err := s.DB.Exec(`
		INSERT INTO comments (id, note_id, user_id, user_name, body, start_pos, end_pos, created_at, resolved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)`,
		c.ID, noteID, c.UserID, c.UserName, c.Text, c.Position.Start, c.Position.End, c.CreatedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to append comment to note %s: %v", noteID, err)
		return collab.ErrTransport("failed to append comment", err)
	}
	return nil
}

// UpdateComment resolves a comment. The resolved = FALSE guard makes a
// second resolution, or a mismatched (note, comment) pair, a not-found.
func (s *NoteStore) UpdateComment(noteID, commentID string, fields collab.CommentUpdate) error {
	result, err := s.DB.Exec(`
		UPDATE comments SET resolved = $1, resolved_by = $2, resolved_at = $3
		WHERE id = $4 AND note_id = $5 AND resolved = FALSE`,
		fields.Resolved, fields.ResolvedBy, fields.ResolvedAt, commentID, noteID)
	if err != nil {
		logger.Sugar.Errorf("Failed to update comment %s: %v", commentID, err)
		return collab.ErrTransport("failed to update comment", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return collab.ErrTransport("failed to update comment", err)
	}
	if affected == 0 {
		return collab.ErrNotFound("note or comment not found")
	}
	return nil
}

func (s *NoteStore) UpsertCollaborator(noteID string, g *collab.CollaboratorGrant) error {
	_, err := s.DB.Exec(`
		INSERT INTO collaborators (note_id, user_id, permission, added_by, added_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (note_id, user_id) DO UPDATE SET permission = $3`,
		noteID, g.UserID, g.Permission.String(), g.AddedBy, g.AddedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to upsert collaborator %s on note %s: %v", g.UserID, noteID, err)
		return collab.ErrTransport("failed to save collaborator", err)
	}
	return nil
}

func (s *NoteStore) RemoveCollaborator(noteID, userID string) error {
	result, err := s.DB.Exec(
		"DELETE FROM collaborators WHERE note_id = $1 AND user_id = $2", noteID, userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to remove collaborator %s from note %s: %v", userID, noteID, err)
		return collab.ErrTransport("failed to remove collaborator", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return collab.ErrTransport("failed to remove collaborator", err)
	}
	if affected == 0 {
		return collab.ErrNotFound("collaborator not found")
	}
	return nil
}
