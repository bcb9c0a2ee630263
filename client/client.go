// Package client is the Go client for the collaboration event protocol:
// a persistent websocket session plus the editing-surface guard that
// protects local content against lost updates and cursor drift.
package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"noteflow/internal/collab"
	"noteflow/socket"

	"github.com/gorilla/websocket"
)

// Handler receives one decoded server event.
type Handler func(msg socket.Message)

// Client is one persistent connection for one application session. Join
// each document you open; all subsequent events carry the document id.
type Client struct {
	conn *websocket.Conn

	mu       sync.Mutex
	handlers map[string]Handler
	writeMu  sync.Mutex
	done     chan struct{}
}

// Dial connects and authenticates in one step: the credential travels in
// the handshake query string and the server resolves it before any event
// is accepted. A rejected credential surfaces here as a failed dial.
func Dial(rawURL, token string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("bad server url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connect failed: %w", err)
	}

	c := &Client{
		conn:     conn,
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// On registers the handler for one server event, replacing any previous
// one. Register handlers before joining documents to avoid missing the
// initial participant list.
func (c *Client) On(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = h
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg socket.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		c.mu.Lock()
		h := c.handlers[msg.Event]
		c.mu.Unlock()
		if h != nil {
			h(msg)
		}
	}
}

// Done is closed when the server closes the connection or Close is
// called.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

func (c *Client) emit(event, documentID string, payload interface{}) error {
	msg := socket.Message{Event: event, DocumentID: documentID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		msg.Payload = raw
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *Client) JoinDocument(documentID string) error {
	return c.emit(socket.EventJoinDocument, documentID, nil)
}

func (c *Client) LeaveDocument(documentID string) error {
	return c.emit(socket.EventLeaveDocument, documentID, nil)
}

// SendContentChange relays an ephemeral content update. Nothing is
// persisted server-side; durable saves go through the REST save path.
func (c *Client) SendContentChange(documentID string, payload interface{}) error {
	return c.emit(socket.EventContentChange, documentID, payload)
}

func (c *Client) SendTitleChange(documentID string, payload interface{}) error {
	return c.emit(socket.EventTitleChange, documentID, payload)
}

func (c *Client) SendCursorPosition(documentID string, payload interface{}) error {
	return c.emit(socket.EventCursorPosition, documentID, payload)
}

func (c *Client) AddComment(documentID, text string, pos collab.Position) error {
	return c.emit(socket.EventAddComment, documentID, socket.AddCommentPayload{Text: text, Position: pos})
}

func (c *Client) ResolveComment(documentID, commentID string) error {
	return c.emit(socket.EventResolveComment, documentID, socket.ResolveCommentPayload{CommentID: commentID})
}

func (c *Client) InviteCollaborator(documentID, email string, level collab.Permission) error {
	return c.emit(socket.EventInviteCollaborator, documentID, socket.InviteCollaboratorPayload{
		Email:           email,
		PermissionLevel: level.String(),
	})
}

func (c *Client) RemoveCollaborator(documentID, userID string) error {
	return c.emit(socket.EventRemoveCollaborator, documentID, socket.RemoveCollaboratorPayload{UserID: userID})
}
