package client

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"noteflow/internal/auth"
	"noteflow/internal/collab"
	"noteflow/pkg/logger"
	"noteflow/router"
	"noteflow/socket"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "client-test-secret"

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

type memNoteStore struct {
	notes map[string]*collab.Note
}

func (s *memNoteStore) FindNoteByID(id string) (*collab.Note, error) {
	if n, ok := s.notes[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, collab.ErrNotFound("note not found")
}

func (s *memNoteStore) AppendComment(noteID string, c *collab.Comment) error {
	n, ok := s.notes[noteID]
	if !ok {
		return collab.ErrNotFound("note not found")
	}
	n.Comments = append(n.Comments, *c)
	return nil
}

func (s *memNoteStore) UpdateComment(string, string, collab.CommentUpdate) error {
	return collab.ErrNotFound("note or comment not found")
}

func (s *memNoteStore) UpsertCollaborator(string, *collab.CollaboratorGrant) error { return nil }
func (s *memNoteStore) RemoveCollaborator(string, string) error                    { return nil }

type memUserStore struct {
	users map[string]*collab.User
}

func (s *memUserStore) FindUserByID(id string) (*collab.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, collab.ErrNotFound("user not found")
}

func (s *memUserStore) FindUserByEmail(email string) (*collab.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, collab.ErrNotFound("user not found")
}

func mintToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// newStack runs the full server: auth middleware, router, hub.
func newStack(t *testing.T) string {
	t.Helper()
	notes := &memNoteStore{notes: map[string]*collab.Note{
		"doc1": {
			ID:      "doc1",
			OwnerID: "owner",
			Collaborators: []collab.CollaboratorGrant{
				{UserID: "alice", Permission: collab.PermissionEdit},
			},
		},
	}}
	users := &memUserStore{users: map[string]*collab.User{
		"owner": {ID: "owner", Name: "Owner", Email: "owner@example.com"},
		"alice": {ID: "alice", Name: "Alice", Email: "alice@example.com"},
	}}

	hub := socket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	synchronizer := socket.NewSynchronizer(hub, notes, users)

	server := httptest.NewServer(router.Setup(hub, synchronizer, auth.NewVerifier(testSecret), users))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func waitFor(t *testing.T, ch <-chan socket.Message) socket.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return socket.Message{}
	}
}

func TestDialRejectsBadCredential(t *testing.T) {
	wsURL := newStack(t)

	_, err := Dial(wsURL, "garbage")
	assert.Error(t, err, "handshake must fail before any event is accepted")

	_, err = Dial(wsURL, "")
	assert.Error(t, err)
}

func TestCollaborationSession(t *testing.T) {
	wsURL := newStack(t)

	owner, err := Dial(wsURL, mintToken(t, "owner"))
	require.NoError(t, err)
	defer owner.Close()

	ownerEvents := make(chan socket.Message, 16)
	for _, event := range []string{
		socket.EventActiveParticipants,
		socket.EventParticipantJoined,
		socket.EventContentChanged,
		socket.EventCommentAdded,
		socket.EventParticipantLeft,
	} {
		ev := event
		owner.On(ev, func(msg socket.Message) { ownerEvents <- msg })
	}

	require.NoError(t, owner.JoinDocument("doc1"))
	first := waitFor(t, ownerEvents)
	assert.Equal(t, socket.EventActiveParticipants, first.Event)

	alice, err := Dial(wsURL, mintToken(t, "alice"))
	require.NoError(t, err)
	defer alice.Close()
	aliceEvents := make(chan socket.Message, 16)
	alice.On(socket.EventActiveParticipants, func(msg socket.Message) { aliceEvents <- msg })
	alice.On(socket.EventCommentAdded, func(msg socket.Message) { aliceEvents <- msg })

	require.NoError(t, alice.JoinDocument("doc1"))
	msg := waitFor(t, aliceEvents)
	var participants []socket.Participant
	require.NoError(t, json.Unmarshal(msg.Payload, &participants))
	require.Len(t, participants, 1)
	assert.Equal(t, "owner", participants[0].UserID)

	joined := waitFor(t, ownerEvents)
	assert.Equal(t, socket.EventParticipantJoined, joined.Event)
	assert.Equal(t, "alice", joined.UserID)

	// Alice edits; the relay reaches the owner with her identity attached.
	require.NoError(t, alice.SendContentChange("doc1", map[string]string{"content": "<p>hi</p>"}))
	changed := waitFor(t, ownerEvents)
	assert.Equal(t, socket.EventContentChanged, changed.Event)
	assert.Equal(t, "alice", changed.UserID)
	assert.JSONEq(t, `{"content":"<p>hi</p>"}`, string(changed.Payload))

	// Relayed content feeds the guard, which preserves the local cursor.
	surface := &fakeSurface{content: "<p>old</p>", selStart: 4, selEnd: 4}
	guard := NewGuard(surface, 0)
	guard.RecordEdit()
	guard.RecordSelection()
	var relayed struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(changed.Payload, &relayed))
	guard.ApplyRemoteContent(relayed.Content)
	assert.Equal(t, "<p>hi</p>", surface.Content())
	start, _ := surface.Selection()
	assert.Equal(t, 4, start)

	// Comments come back to every member, author included.
	require.NoError(t, alice.AddComment("doc1", "first!", collab.Position{Start: 0, End: 5}))
	ownerComment := waitFor(t, ownerEvents)
	assert.Equal(t, socket.EventCommentAdded, ownerComment.Event)
	aliceComment := waitFor(t, aliceEvents)
	assert.Equal(t, socket.EventCommentAdded, aliceComment.Event)

	require.NoError(t, alice.LeaveDocument("doc1"))
	left := waitFor(t, ownerEvents)
	assert.Equal(t, socket.EventParticipantLeft, left.Event)
	assert.Equal(t, "alice", left.UserID)
}
