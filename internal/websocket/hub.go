package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"synergy-backend/internal/apperrors"
	"synergy-backend/internal/metrics"
	"synergy-backend/internal/middleware"
	"synergy-backend/internal/models"
	"synergy-backend/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBufferSize = 256
)

const (
	EventJoin    = "join"
	EventLeave   = "leave"
	EventMessage = "message"
	EventStatus  = "status"
	EventError   = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Sockets are authenticated by token, not by cookie.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Inbound is an event sent by a client. The sender is always the socket's
// authenticated user; any sender field in the payload is ignored.
type Inbound struct {
	Event      string `json:"event"`
	Room       string `json:"room"`
	ReceiverID uint   `json:"receiver_id"`
	Message    string `json:"message"`
}

type Outbound struct {
	Event      string     `json:"event"`
	Room       string     `json:"room,omitempty"`
	SenderID   uint       `json:"sender_id,omitempty"`
	ReceiverID uint       `json:"receiver_id,omitempty"`
	Message    string     `json:"message"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

type MessageStore interface {
	Save(ctx context.Context, senderID, receiverID uint, text string) (*models.ChatMessage, error)
}

type MatchChecker interface {
	AreMatched(ctx context.Context, a, b uint) (bool, error)
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
	rooms  map[string]bool
	ctx    context.Context
}

type subscription struct {
	client *Client
	room   string
	join   bool
}

type roomEvent struct {
	room    string
	payload []byte
}

type directEvent struct {
	client  *Client
	payload []byte
}

// Hub owns the room table. Rooms exist while they have at least one
// subscriber; every change to them happens on the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	broadcast  chan roomEvent
	direct     chan directEvent
	done       chan struct{}
	mu         sync.RWMutex

	store        MessageStore
	matches      MatchChecker
	notifier     *notify.Notifier
	metrics      *metrics.Metrics
	requireMatch bool
	log          *logrus.Logger
}

func NewHub(store MessageStore, matches MatchChecker, notifier *notify.Notifier, m *metrics.Metrics, requireMatch bool, log *logrus.Logger) *Hub {
	return &Hub{
		clients:      make(map[*Client]bool),
		rooms:        make(map[string]map[*Client]bool),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		subscribe:    make(chan subscription),
		broadcast:    make(chan roomEvent, 256),
		direct:       make(chan directEvent, 256),
		done:         make(chan struct{}),
		store:        store,
		matches:      matches,
		notifier:     notifier,
		metrics:      m,
		requireMatch: requireMatch,
		log:          log,
	}
}

// Run processes hub events until ctx is cancelled, then closes every
// client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.ConnectionOpened()
			h.log.WithField("user_id", client.userID).Info("Client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client, true)
			h.mu.Unlock()

		case sub := <-h.subscribe:
			h.mu.Lock()
			if sub.join {
				h.join(sub.client, sub.room)
			} else {
				h.leave(sub.client, sub.room)
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.mu.Lock()
			h.fanOut(ev.room, ev.payload)
			h.mu.Unlock()

		case ev := <-h.direct:
			h.mu.Lock()
			h.deliver(ev.client, ev.payload)
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.remove(client, false)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) join(c *Client, room string) {
	if !h.clients[c] {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[c] = true
	c.rooms[room] = true
	h.fanOut(room, encode(Outbound{Event: EventStatus, Room: room, Message: fmt.Sprintf("User %d joined room: %s", c.userID, room)}))
}

func (h *Hub) leave(c *Client, room string) {
	if !c.rooms[room] {
		h.deliver(c, encode(Outbound{Event: EventError, Room: room, Message: "You are not in this room"}))
		return
	}
	h.detach(c, room)
	h.fanOut(room, encode(Outbound{Event: EventStatus, Room: room, Message: fmt.Sprintf("User %d has left the room.", c.userID)}))
}

// detach removes c from one room and drops the room once it is empty.
func (h *Hub) detach(c *Client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// remove disconnects c from the hub, optionally telling its rooms.
func (h *Hub) remove(c *Client, announce bool) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.ConnectionClosed()

	for room := range c.rooms {
		h.detach(c, room)
		if announce {
			h.fanOut(room, encode(Outbound{Event: EventStatus, Room: room, Message: fmt.Sprintf("User %d has left the room.", c.userID)}))
		}
	}
	h.log.WithField("user_id", c.userID).Info("Client disconnected")
}

// fanOut is best effort: a subscriber whose buffer is full is dropped
// rather than allowed to stall the room.
func (h *Hub) fanOut(room string, payload []byte) {
	for client := range h.rooms[room] {
		h.deliver(client, payload)
	}
}

func (h *Hub) deliver(c *Client, payload []byte) {
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- payload:
	default:
		h.log.WithField("user_id", c.userID).Warn("Dropping slow websocket client")
		h.remove(c, false)
	}
}

func (h *Hub) registerClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) subscribeClient(c *Client, room string, join bool) {
	select {
	case h.subscribe <- subscription{client: c, room: room, join: join}:
	case <-h.done:
	}
}

func (h *Hub) broadcastRoom(room string, out Outbound) {
	select {
	case h.broadcast <- roomEvent{room: room, payload: encode(out)}:
	case <-h.done:
	}
}

func (h *Hub) sendTo(c *Client, out Outbound) {
	select {
	case h.direct <- directEvent{client: c, payload: encode(out)}:
	case <-h.done:
	}
}

func (h *Hub) sendError(c *Client, room, msg string) {
	h.sendTo(c, Outbound{Event: EventError, Room: room, Message: msg})
}

// relay persists a chat message and broadcasts it to the room. A failed
// insert is logged and the message is still delivered.
func (h *Hub) relay(c *Client, in Inbound) {
	room := strings.TrimSpace(in.Room)
	if room == "" {
		h.sendError(c, "", "Room is required")
		return
	}
	if in.ReceiverID == 0 {
		h.sendError(c, room, "Receiver is required")
		return
	}

	if h.requireMatch {
		matched, err := h.matches.AreMatched(c.ctx, c.userID, in.ReceiverID)
		if err != nil {
			h.log.WithError(err).WithField("user_id", c.userID).Error("Failed to check match for chat message")
			h.sendError(c, room, apperrors.InternalMessage)
			return
		}
		if !matched {
			h.sendError(c, room, "You can only message your matches")
			return
		}
	}

	persisted := true
	timestamp := time.Now().UTC()
	msg, err := h.store.Save(c.ctx, c.userID, in.ReceiverID, in.Message)
	if err != nil {
		if typed := apperrors.As(err); typed != nil && typed.Code() == apperrors.CodeValidation {
			h.sendError(c, room, typed.Message())
			return
		}
		persisted = false
		h.log.WithError(err).WithFields(logrus.Fields{
			"sender_id":   c.userID,
			"receiver_id": in.ReceiverID,
			"room":        room,
		}).Error("Failed to save chat message")
	}
	if msg != nil && !msg.Timestamp.IsZero() {
		timestamp = msg.Timestamp
	}
	h.metrics.ChatMessage(persisted)

	h.broadcastRoom(room, Outbound{
		Event:      EventMessage,
		Room:       room,
		SenderID:   c.userID,
		ReceiverID: in.ReceiverID,
		Message:    in.Message,
		Timestamp:  &timestamp,
	})

	if persisted {
		h.notifier.NotifyUser(c.ctx, in.ReceiverID, notify.Notification{
			Title: "New message",
			Body:  preview(in.Message),
			Data:  map[string]string{"type": "chat", "sender_id": fmt.Sprint(c.userID), "room": room},
		})
	}
}

func preview(text string) string {
	const limit = 100
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func encode(out Outbound) []byte {
	data, _ := json.Marshal(out)
	return data
}

// HandleWebSocket upgrades an authenticated request and attaches the
// connection to the hub.
func HandleWebSocket(hub *Hub, c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	// The request context ends when this handler returns.
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		userID: userID,
		rooms:  make(map[string]bool),
		ctx:    ctx,
	}

	hub.registerClient(client)

	go client.writePump()
	go client.readPump(cancel)
}

func (c *Client) readPump(cancel context.CancelFunc) {
	defer func() {
		cancel()
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).WithField("user_id", c.userID).Warn("WebSocket read error")
			}
			return
		}

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.hub.sendError(c, "", "Invalid message format")
			continue
		}

		switch in.Event {
		case EventJoin, EventLeave:
			room := strings.TrimSpace(in.Room)
			if room == "" {
				c.hub.sendError(c, "", "Room is required")
				continue
			}
			c.hub.subscribeClient(c, room, in.Event == EventJoin)
		case EventMessage:
			c.hub.relay(c, in)
		default:
			c.hub.sendError(c, in.Room, fmt.Sprintf("Unknown event %q", in.Event))
		}
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
				c.hub.log.WithError(err).WithField("user_id", c.userID).Warn("WebSocket write error")
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
