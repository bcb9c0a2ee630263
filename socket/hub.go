package socket

import (
	"encoding/json"
	"sync"

	"noteflow/internal/collab"
	"noteflow/pkg/logger"
)

type membership struct {
	client     *Client
	documentID string
	permission collab.Permission
}

// Hub is the session channel registry: it maps a document id to the set
// of connections currently editing it and routes broadcasts between
// them. One Hub per process, constructed in main and injected; channel
// membership is mutated only inside Run.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	joins      chan membership
	leaves     chan membership
	done       chan struct{}

	mu       sync.Mutex
	channels map[string]map[*Client]collab.Permission
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		joins:      make(chan membership),
		leaves:     make(chan membership),
		done:       make(chan struct{}),
		channels:   make(map[string]map[*Client]collab.Permission),
	}
}

// Run is the hub event loop. Membership handlers are short and never
// touch the store; access checks happen in the connection's read
// goroutine before a join reaches this loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			logger.Sugar.Infof("User connected: %s (%s)", client.user.Name, client.user.ID)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case m := <-h.joins:
			h.handleJoin(m)

		case m := <-h.leaves:
			h.handleLeave(m)
		}
	}
}

// Stop tears the registry down at process shutdown.
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) handleJoin(m membership) {
	c, docID := m.client, m.documentID

	h.mu.Lock()
	room := h.channels[docID]
	if room == nil {
		room = make(map[*Client]collab.Permission)
		h.channels[docID] = room
	}
	_, already := room[c]
	room[c] = m.permission
	c.docs[docID] = true

	others := make([]*Client, 0, len(room))
	participants := make([]Participant, 0, len(room))
	for member := range room {
		if member == c {
			continue
		}
		others = append(others, member)
		participants = append(participants, Participant{UserID: member.user.ID, UserName: member.user.Name})
	}
	h.mu.Unlock()

	c.trySend(Message{
		Event:      EventActiveParticipants,
		DocumentID: docID,
		Payload:    mustMarshal(participants),
	})

	// A repeated join refreshes the member list but never re-announces.
	if already {
		return
	}

	joined := Message{
		Event:      EventParticipantJoined,
		DocumentID: docID,
		UserID:     c.user.ID,
		UserName:   c.user.Name,
	}
	for _, member := range others {
		member.trySend(joined)
	}
	logger.Sugar.Infof("%s joined document %s (%d participants)", c.user.Name, docID, len(others)+1)
}

func (h *Hub) handleLeave(m membership) {
	h.removeMember(m.client, m.documentID)
}

// handleUnregister runs the full leave cascade for a closed connection:
// every channel the connection belonged to is left exactly as if the
// client had sent an explicit leave.
func (h *Hub) handleUnregister(c *Client) {
	h.mu.Lock()
	docs := make([]string, 0, len(c.docs))
	for docID := range c.docs {
		docs = append(docs, docID)
	}
	h.mu.Unlock()

	for _, docID := range docs {
		h.removeMember(c, docID)
	}

	h.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	h.mu.Unlock()
	logger.Sugar.Infof("User disconnected: %s (%s)", c.user.Name, c.user.ID)
}

func (h *Hub) removeMember(c *Client, docID string) {
	h.mu.Lock()
	room := h.channels[docID]
	if _, ok := room[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(room, c)
	delete(c.docs, docID)
	if len(room) == 0 {
		delete(h.channels, docID)
		h.mu.Unlock()
		return
	}
	remaining := make([]*Client, 0, len(room))
	for member := range room {
		remaining = append(remaining, member)
	}
	h.mu.Unlock()

	left := Message{
		Event:      EventParticipantLeft,
		DocumentID: docID,
		UserID:     c.user.ID,
		UserName:   c.user.Name,
	}
	for _, member := range remaining {
		member.trySend(left)
	}
}

// Relay re-emits an ephemeral editing signal to every other member of
// the document's channel, annotated with the sender's identity. The
// sender must be a member holding at least min capability; nothing is
// validated or persisted beyond that.
func (h *Hub) Relay(sender *Client, docID, event string, min collab.Permission, payload json.RawMessage) error {
	h.mu.Lock()
	perm, member := h.channels[docID][sender]
	var recipients []*Client
	if member {
		room := h.channels[docID]
		recipients = make([]*Client, 0, len(room))
		for c := range room {
			if c != sender {
				recipients = append(recipients, c)
			}
		}
	}
	h.mu.Unlock()

	if !member {
		return collab.ErrAuthorization("not a participant in this document")
	}
	if !perm.AtLeast(min) {
		return collab.ErrAuthorization("permission denied")
	}

	msg := Message{
		Event:      event,
		DocumentID: docID,
		UserID:     sender.user.ID,
		UserName:   sender.user.Name,
		Payload:    payload,
	}
	for _, c := range recipients {
		c.trySend(msg)
	}
	return nil
}

// BroadcastToChannel delivers msg to every member, sender included.
func (h *Hub) BroadcastToChannel(docID string, msg Message) {
	for _, c := range h.membersOf(docID) {
		c.trySend(msg)
	}
}

// SendToUser delivers msg to the connections of one identity inside the
// channel, if that user is currently connected to the document.
func (h *Hub) SendToUser(docID, userID string, msg Message) {
	for _, c := range h.membersOf(docID) {
		if c.user.ID == userID {
			c.trySend(msg)
		}
	}
}

// SetMemberPermission refreshes the cached capability of userID's
// connections in the channel after a grant changed underneath them.
func (h *Hub) SetMemberPermission(docID, userID string, perm collab.Permission) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.channels[docID] {
		if c.user.ID == userID {
			h.channels[docID][c] = perm
		}
	}
}

// Participants enumerates the channel's current members. Connections
// that dropped without an explicit leave have already been pruned by the
// unregister cascade, so the listing only ever reflects live ones.
func (h *Hub) Participants(docID string) []Participant {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Participant, 0, len(h.channels[docID]))
	for c := range h.channels[docID] {
		out = append(out, Participant{UserID: c.user.ID, UserName: c.user.Name})
	}
	return out
}

func (h *Hub) membersOf(docID string) []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.channels[docID]
	out := make([]*Client, 0, len(room))
	for c := range room {
		out = append(out, c)
	}
	return out
}
