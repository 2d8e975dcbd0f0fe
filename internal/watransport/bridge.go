package watransport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/user/groupwatch/internal/biz/domain"
)

const queryTimeout = 30 * time.Second

// envelope is the wire frame for everything the bridge sends or
// receives. Events carry no ID; query responses echo the request ID.
type envelope struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// wireMessage is the bridge's shape for a live inbound message.
type wireMessage struct {
	ID            string `json:"id"`
	ChatID        string `json:"chatId"`
	ChatName      string `json:"chatName"`
	IsGroup       bool   `json:"isGroup"`
	From          string `json:"from"`
	ContactName   string `json:"contactName"`
	ContactNumber string `json:"contactNumber"`
	Body          string `json:"body"`
	Caption       string `json:"caption"`
	HasMedia      bool   `json:"hasMedia"`
	Type          string `json:"type"`
	Timestamp     int64  `json:"timestamp"`
}

type wireGroup struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Participants int    `json:"participants"`
	Timestamp    int64  `json:"timestamp"`
}

// BridgeClient is the WebSocket implementation of Client. One reader
// goroutine owns the connection; queries register a pending channel
// keyed by request ID and wait for the reader to route the response.
type BridgeClient struct {
	url string

	mu      sync.Mutex
	conn    *websocket.Conn
	ready   bool
	pending map[string]chan *envelope
	cancel  context.CancelFunc

	onMessage       MessageHandler
	onReady         func()
	onAuthenticated func()
	onAuthFailure   func(msg string)
	onDisconnected  func(reason string)
	onQR            func(qr string)
}

// NewBridgeClient creates a client for the bridge at the given ws URL.
func NewBridgeClient(url string) *BridgeClient {
	return &BridgeClient{
		url:     url,
		pending: make(map[string]chan *envelope),
	}
}

func (c *BridgeClient) OnMessage(handler MessageHandler)          { c.onMessage = handler }
func (c *BridgeClient) OnReady(handler func())                    { c.onReady = handler }
func (c *BridgeClient) OnAuthenticated(handler func())            { c.onAuthenticated = handler }
func (c *BridgeClient) OnAuthFailure(handler func(msg string))    { c.onAuthFailure = handler }
func (c *BridgeClient) OnDisconnected(handler func(reason string)) { c.onDisconnected = handler }
func (c *BridgeClient) OnQR(handler func(qr string))              { c.onQR = handler }

// Ready reports whether the session behind the bridge can serve
// queries.
func (c *BridgeClient) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Start dials the bridge and runs the read loop until the connection
// drops or ctx is cancelled.
func (c *BridgeClient) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to dial session bridge: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.mu.Unlock()

	fmt.Printf("[Bridge] Connected to %s\n", c.url)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	err = c.readLoop(conn)
	cancel()

	c.mu.Lock()
	c.ready = false
	c.conn = nil
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Stop closes the connection and unblocks Start.
func (c *BridgeClient) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *BridgeClient) readLoop(conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("session bridge read: %w", err)
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			fmt.Printf("[Bridge] Dropping malformed frame: %v\n", err)
			continue
		}

		if env.ID != "" {
			c.routeResponse(&env)
			continue
		}
		c.handleEvent(&env)
	}
}

func (c *BridgeClient) routeResponse(env *envelope) {
	c.mu.Lock()
	ch, ok := c.pending[env.ID]
	if ok {
		delete(c.pending, env.ID)
	}
	c.mu.Unlock()
	if ok {
		ch <- env
	}
}

func (c *BridgeClient) handleEvent(env *envelope) {
	switch env.Event {
	case "ready":
		c.mu.Lock()
		c.ready = true
		c.mu.Unlock()
		if c.onReady != nil {
			c.onReady()
		}
	case "authenticated":
		if c.onAuthenticated != nil {
			c.onAuthenticated()
		}
	case "auth_failure":
		var payload struct {
			Message string `json:"message"`
		}
		json.Unmarshal(env.Data, &payload)
		if c.onAuthFailure != nil {
			c.onAuthFailure(payload.Message)
		}
	case "disconnected":
		c.mu.Lock()
		c.ready = false
		c.mu.Unlock()
		var payload struct {
			Reason string `json:"reason"`
		}
		json.Unmarshal(env.Data, &payload)
		if c.onDisconnected != nil {
			c.onDisconnected(payload.Reason)
		}
	case "qr":
		var payload struct {
			QR string `json:"qr"`
		}
		json.Unmarshal(env.Data, &payload)
		if c.onQR != nil {
			c.onQR(payload.QR)
		}
	case "message":
		var wm wireMessage
		if err := json.Unmarshal(env.Data, &wm); err != nil {
			fmt.Printf("[Bridge] Dropping malformed message event: %v\n", err)
			return
		}
		if c.onMessage != nil {
			c.onMessage(decodeMessage(&wm))
		}
	default:
		fmt.Printf("[Bridge] Ignoring unknown event: %s\n", env.Event)
	}
}

func decodeMessage(wm *wireMessage) *domain.InboundMessage {
	return &domain.InboundMessage{
		ID:            wm.ID,
		ChatID:        wm.ChatID,
		ChatName:      wm.ChatName,
		IsGroup:       wm.IsGroup,
		From:          wm.From,
		ContactName:   wm.ContactName,
		ContactNumber: wm.ContactNumber,
		Body:          wm.Body,
		Caption:       wm.Caption,
		HasMedia:      wm.HasMedia,
		MsgType:       wm.Type,
		Timestamp:     time.Unix(wm.Timestamp, 0),
	}
}

// query sends a request frame and waits for the response with the same
// ID.
func (c *BridgeClient) query(ctx context.Context, event string, params interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil || !c.ready {
		c.mu.Unlock()
		return nil, domain.ErrUpstreamDown
	}

	id := uuid.NewString()
	ch := make(chan *envelope, 1)
	c.pending[id] = ch

	var data json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			delete(c.pending, id)
			c.mu.Unlock()
			return nil, fmt.Errorf("failed to encode query: %w", err)
		}
		data = encoded
	}
	err := conn.WriteJSON(&envelope{Event: event, ID: id, Data: data})
	c.mu.Unlock()
	if err != nil {
		c.dropPending(id)
		return nil, fmt.Errorf("failed to send query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		c.dropPending(id)
		return nil, ctx.Err()
	case env, ok := <-ch:
		if !ok {
			return nil, domain.ErrUpstreamDown
		}
		if env.Error != "" {
			return nil, fmt.Errorf("session bridge: %s", env.Error)
		}
		return env.Data, nil
	}
}

func (c *BridgeClient) dropPending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// ListGroups queries the bridge for the current group chats.
func (c *BridgeClient) ListGroups(ctx context.Context) ([]domain.GroupInfo, error) {
	data, err := c.query(ctx, "list_groups", nil)
	if err != nil {
		return nil, err
	}

	var wire []wireGroup
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode group list: %w", err)
	}

	groups := make([]domain.GroupInfo, 0, len(wire))
	for _, wg := range wire {
		g := domain.GroupInfo{ID: wg.ID, Name: wg.Name, Participants: wg.Participants}
		if wg.Timestamp > 0 {
			at := time.Unix(wg.Timestamp, 0)
			g.Timestamp = &at
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// FetchRecentMessages queries a chat's recent messages.
func (c *BridgeClient) FetchRecentMessages(ctx context.Context, chatID string, limit int) ([]domain.ChatMessage, error) {
	data, err := c.query(ctx, "fetch_messages", map[string]interface{}{
		"chatId": chatID,
		"limit":  limit,
	})
	if err != nil {
		return nil, err
	}

	var wire []struct {
		ID          string `json:"id"`
		From        string `json:"from"`
		FromName    string `json:"fromName"`
		Body        string `json:"body"`
		Timestamp   int64  `json:"timestamp"`
		HasMedia    bool   `json:"hasMedia"`
		Type        string `json:"type"`
		IsForwarded bool   `json:"isForwarded"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	messages := make([]domain.ChatMessage, 0, len(wire))
	for _, wm := range wire {
		messages = append(messages, domain.ChatMessage{
			ID:          wm.ID,
			From:        wm.From,
			FromName:    wm.FromName,
			Body:        wm.Body,
			Timestamp:   time.Unix(wm.Timestamp, 0),
			HasMedia:    wm.HasMedia,
			Type:        wm.Type,
			IsForwarded: wm.IsForwarded,
		})
	}
	return messages, nil
}
