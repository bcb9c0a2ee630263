package postgres

import (
	"testing"
	"time"

	"noteflow/internal/collab"
	"noteflow/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

func TestFindNoteByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	addedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, title, content, owner_id FROM notes WHERE id = \\$1").
		WithArgs("n1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "content", "owner_id"}).
			AddRow("n1", "Meeting notes", "<p>agenda</p>", "owner-1"))
	mock.ExpectQuery("SELECT id, user_id, user_name, body, start_pos, end_pos, created_at, resolved, resolved_by, resolved_at\\s+FROM comments WHERE note_id = \\$1").
		WithArgs("n1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "user_name", "body", "start_pos", "end_pos", "created_at", "resolved", "resolved_by", "resolved_at"}).
			AddRow("c1", "u2", "Bob", "typo here", 4, 9, createdAt, false, nil, nil))
	mock.ExpectQuery("SELECT user_id, permission, added_by, added_at\\s+FROM collaborators WHERE note_id = \\$1").
		WithArgs("n1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "permission", "added_by", "added_at"}).
			AddRow("u2", "comment", "owner-1", addedAt))

	store := NewNoteStore(db)
	note, err := store.FindNoteByID("n1")
	require.NoError(t, err)

	assert.Equal(t, "owner-1", note.OwnerID)
	require.Len(t, note.Comments, 1)
	assert.Equal(t, collab.Position{Start: 4, End: 9}, note.Comments[0].Position)
	assert.False(t, note.Comments[0].Resolved)
	require.Len(t, note.Collaborators, 1)
	assert.Equal(t, collab.PermissionComment, note.Collaborators[0].Permission)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindNoteByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, title, content, owner_id FROM notes WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "content", "owner_id"}))

	store := NewNoteStore(db)
	_, err = store.FindNoteByID("missing")
	require.Error(t, err)
	assert.True(t, collab.IsNotFound(err))
}

func TestAppendComment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := &collab.Comment{
		ID:        "c1",
		UserID:    "u1",
		UserName:  "Alice",
		Text:      "looks good",
		Position:  collab.Position{Start: 0, End: 10},
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO comments").
		WithArgs("c1", "n1", "u1", "Alice", "looks good", 0, 10, c.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewNoteStore(db)
	require.NoError(t, store.AppendComment("n1", c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCommentAlreadyResolved(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// The resolved = FALSE guard matches no row.
	mock.ExpectExec("UPDATE comments SET resolved").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewNoteStore(db)
	err = store.UpdateComment("n1", "c1", collab.CommentUpdate{
		Resolved:   true,
		ResolvedBy: "u1",
		ResolvedAt: time.Now().UTC(),
	})
	require.Error(t, err)
	assert.True(t, collab.IsNotFound(err))
}

func TestUpdateComment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	resolvedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE comments SET resolved").
		WithArgs(true, "u1", resolvedAt, "c1", "n1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewNoteStore(db)
	require.NoError(t, store.UpdateComment("n1", "c1", collab.CommentUpdate{
		Resolved:   true,
		ResolvedBy: "u1",
		ResolvedAt: resolvedAt,
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCollaborator(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	g := &collab.CollaboratorGrant{
		UserID:     "u2",
		Permission: collab.PermissionEdit,
		AddedBy:    "owner-1",
		AddedAt:    time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO collaborators").
		WithArgs("n1", "u2", "edit", "owner-1", g.AddedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewNoteStore(db)
	require.NoError(t, store.UpsertCollaborator("n1", g))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveCollaboratorAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM collaborators").
		WithArgs("n1", "u9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewNoteStore(db)
	err = store.RemoveCollaborator("n1", "u9")
	require.Error(t, err)
	assert.True(t, collab.IsNotFound(err))
}

func TestUserStoreLookups(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, email FROM users WHERE id = \\$1").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).
			AddRow("u1", "Alice", "alice@example.com"))
	mock.ExpectQuery("SELECT id, name, email FROM users WHERE email = \\$1").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}))

	store := NewUserStore(db)

	u, err := store.FindUserByID("u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)

	_, err = store.FindUserByEmail("nobody@example.com")
	require.Error(t, err)
	assert.True(t, collab.IsNotFound(err))
}
