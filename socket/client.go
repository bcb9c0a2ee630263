package socket

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"noteflow/internal/collab"
	"noteflow/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dev frontend runs on another origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one persistent connection for one authenticated session. A
// client may be a member of many document channels at once.
type Client struct {
	id   string
	hub  *Hub
	sync *Synchronizer
	conn *websocket.Conn
	user collab.User
	send chan []byte

	// docs and closed are guarded by hub.mu.
	docs   map[string]bool
	closed bool
}

// ServeWs upgrades an authenticated request to a websocket connection.
// The identity was resolved during the handshake by the auth middleware;
// no event from this connection is processed before that succeeded.
func ServeWs(hub *Hub, sync *Synchronizer, w http.ResponseWriter, r *http.Request, user collab.User) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Errorf("Upgrade failed: %v", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  hub,
		sync: sync,
		conn: conn,
		user: user,
		send: make(chan []byte, 256),
		docs: make(map[string]bool),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("Read error for %s: %v", c.user.ID, err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Sugar.Errorf("Malformed message from %s: %v", c.user.ID, err)
			continue
		}

		c.dispatch(msg)
	}
}

// dispatch runs in the read goroutine, so a blocking store call inside a
// state-sync handler stalls only this connection's event stream.
func (c *Client) dispatch(msg Message) {
	var err error

	switch msg.Event {
	case EventJoinDocument:
		err = c.joinDocument(msg.DocumentID)

	case EventLeaveDocument:
		c.hub.leaves <- membership{client: c, documentID: msg.DocumentID}

	case EventContentChange:
		err = c.hub.Relay(c, msg.DocumentID, EventContentChanged, collab.PermissionEdit, msg.Payload)

	case EventTitleChange:
		err = c.hub.Relay(c, msg.DocumentID, EventTitleChanged, collab.PermissionEdit, msg.Payload)

	case EventCursorPosition:
		err = c.hub.Relay(c, msg.DocumentID, EventCursorMoved, collab.PermissionView, msg.Payload)

	case EventAddComment:
		var p AddCommentPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = c.sync.AddComment(c, msg.DocumentID, p)
		}

	case EventResolveComment:
		var p ResolveCommentPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = c.sync.ResolveComment(c, msg.DocumentID, p.CommentID)
		}

	case EventInviteCollaborator:
		var p InviteCollaboratorPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = c.sync.InviteCollaborator(c, msg.DocumentID, p.Email, p.PermissionLevel)
		}

	case EventRemoveCollaborator:
		var p RemoveCollaboratorPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			err = c.sync.RemoveCollaborator(c, msg.DocumentID, p.UserID)
		}

	default:
		logger.Sugar.Warnf("Unknown event %q from %s", msg.Event, c.user.ID)
		return
	}

	if err != nil {
		c.sendError(err)
	}
}

// joinDocument checks access against the stored note before the request
// reaches the hub loop. Denials go only to the requester.
func (c *Client) joinDocument(docID string) error {
	note, err := c.sync.notes.FindNoteByID(docID)
	if err != nil {
		if collab.IsNotFound(err) {
			return collab.ErrAuthorization("access denied to this document")
		}
		return err
	}

	perm, ok := note.PermissionFor(c.user.ID)
	if !ok {
		return collab.ErrAuthorization("access denied to this document")
	}

	c.hub.joins <- membership{client: c, documentID: docID, permission: perm}
	return nil
}

// sendError reports a failed operation to this connection only. The
// connection itself stays up; only authentication failures are terminal,
// and those never get this far.
func (c *Client) sendError(opErr error) {
	msg := "internal error"
	var ce *collab.Error
	if errors.As(opErr, &ce) {
		msg = ce.Message
	} else {
		logger.Sugar.Errorf("Unclassified error for %s: %v", c.user.ID, opErr)
	}
	c.trySend(Message{
		Event:   EventError,
		Payload: mustMarshal(ErrorPayload{Message: msg}),
	})
}

// trySend queues msg without blocking. A full buffer means the client is
// lagging badly; the message is dropped and the ping/pong cycle will
// reap the connection if it is actually dead.
func (c *Client) trySend(msg Message) {
	raw, err := json.Marshal(msg)
	if err != nil {
		logger.Sugar.Errorf("Marshal failed for event %s: %v", msg.Event, err)
		return
	}

	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- raw:
	default:
		logger.Sugar.Warnf("Send buffer full for %s, dropping %s", c.user.ID, msg.Event)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
