package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/syntrixbase/storenotify/internal/notify"
	"github.com/syntrixbase/storenotify/internal/reactive"
	"github.com/syntrixbase/storenotify/internal/store"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// Client is a middleman between one websocket connection and the store.
type Client struct {
	id     string
	hub    *Hub
	store  QueryObserver
	conn   *websocket.Conn
	logger *slog.Logger

	// Buffered channel of outbound messages.
	send chan BaseMessage

	mu            sync.Mutex
	subscriptions map[string]*reactive.Subscription
	closed        bool
	closeOnce     sync.Once
}

func newClient(hub *Hub, st QueryObserver, conn *websocket.Conn, bufSize int, logger *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:            id,
		hub:           hub,
		store:         st,
		conn:          conn,
		logger:        logger.With("client", id),
		send:          make(chan BaseMessage, bufSize),
		subscriptions: make(map[string]*reactive.Subscription),
	}
}

// readPump pumps messages from the websocket connection to the client.
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.shutdown()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })
	c.logger.Info("WebSocket connection established")

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket connection closed", "error", err)
			} else {
				c.logger.Info("WebSocket connection closed")
			}
			return
		}

		var msg BaseMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.logger.Warn("Failed to unmarshal message", "error", err)
			c.enqueue(errorMessage("", CodeInvalidFormat, "message is not valid JSON"))
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg BaseMessage) {
	c.logger.Debug("Received message", "type", msg.Type, "id", msg.ID)
	switch msg.Type {
	case TypeSubscribe:
		c.subscribe(msg)
	case TypeUnsubscribe:
		c.unsubscribe(msg)
	default:
		c.enqueue(errorMessage(msg.ID, CodeUnknownType, "unknown message type: "+msg.Type))
	}
}

func (c *Client) subscribe(msg BaseMessage) {
	if msg.ID == "" {
		c.enqueue(errorMessage("", CodeBadRequest, "subscription id is required"))
		return
	}
	var payload SubscribePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.enqueue(errorMessage(msg.ID, CodeBadRequest, "invalid subscribe payload"))
		return
	}

	c.mu.Lock()
	_, exists := c.subscriptions[msg.ID]
	c.mu.Unlock()
	if exists {
		c.enqueue(errorMessage(msg.ID, CodeDuplicateID, "subscription id already in use"))
		return
	}

	c.enqueue(BaseMessage{ID: msg.ID, Type: TypeSubscribeAck})

	subID := msg.ID
	sub := c.store.ObserveQuery(payload.Query).Subscribe(
		func(ev notify.ChangeEvent[[]*store.Object]) {
			c.enqueue(changeMessage(subID, ev))
		},
		func(err error) {
			c.logger.Warn("Subscription failed", "id", subID, "error", err)
			c.enqueue(errorMessage(subID, CodeQueryFailed, err.Error()))
			c.mu.Lock()
			delete(c.subscriptions, subID)
			c.mu.Unlock()
		},
	)
	if sub.Err() != nil {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.Dispose()
		return
	}
	c.subscriptions[subID] = sub
	c.mu.Unlock()
	c.logger.Info("Subscribed", "id", subID, "entity", payload.Query.Entity)
}

func (c *Client) unsubscribe(msg BaseMessage) {
	var payload UnsubscribePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.ID == "" {
		c.enqueue(errorMessage(msg.ID, CodeBadRequest, "invalid unsubscribe payload"))
		return
	}

	c.mu.Lock()
	sub, ok := c.subscriptions[payload.ID]
	delete(c.subscriptions, payload.ID)
	c.mu.Unlock()

	if !ok {
		c.enqueue(errorMessage(payload.ID, CodeUnknownID, "no such subscription"))
		return
	}
	sub.Dispose()
	c.logger.Info("Unsubscribed", "id", payload.ID)
	c.enqueue(BaseMessage{ID: msg.ID, Type: TypeUnsubscribeAck})
}

// enqueue hands msg to the write pump without blocking. Change events are
// delivered from inside a store save, so a client that cannot keep up is
// disconnected instead of stalling the store.
func (c *Client) enqueue(msg BaseMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("Send buffer full, disconnecting client")
		_ = c.conn.Close()
	}
}

// shutdown disposes every subscription and stops the write pump.
func (c *Client) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subscriptions
	c.subscriptions = make(map[string]*reactive.Subscription)
	close(c.send)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Dispose()
	}
}

// close asks the peer to go away; readPump then tears the client down.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil &&
			!errors.Is(err, websocket.ErrCloseSent) {
			c.logger.Debug("Failed to send close frame", "error", err)
		}
		_ = c.conn.Close()
	})
}

// subscriptionCount returns the number of active subscriptions.
func (c *Client) subscriptionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscriptions)
}

// writePump pumps messages from the send channel to the websocket connection.
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The client shut down.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
