package broadcast

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

// Client actions.
const (
	ActionJoinOrder  = "join_order"
	ActionLeaveOrder = "leave_order"
	ActionJoinAdmin  = "join_admin"
	ActionLeaveAdmin = "leave_admin"
	ActionPing       = "ping"
)

// Server events besides the order lifecycle event types.
const (
	EventUserConnected     = "user_connected"
	EventUserDisconnected  = "user_disconnected"
	EventClientJoinedOrder = "client_joined_order"
	EventClientLeftOrder   = "client_left_order"
	EventPong              = "pong"
	EventError             = "error"
)

const clientSendBuffer = 64

type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type ClientMessage struct {
	Action  string `json:"action"`
	OrderID string `json:"order_id,omitempty"`
}

type PresenceData struct {
	ClientID     string `json:"client_id"`
	TotalClients int    `json:"total_clients"`
}

type RoomData struct {
	OrderID       string `json:"order_id"`
	ClientID      string `json:"client_id"`
	ClientsInRoom int    `json:"clients_in_room"`
}

type ErrorData struct {
	Message string `json:"message"`
}

type Stats struct {
	ConnectedClients int `json:"connected_clients"`
	ActiveOrderRooms int `json:"active_order_rooms"`
}

// Gateway serves the realtime channel. Each connection can follow any number
// of orders and, optionally, the admin scope.
type Gateway struct {
	hub    *Hub
	logger *slog.Logger
	server websocket.Server

	mu      sync.Mutex
	clients map[string]*client
	rooms   map[string]map[string]struct{}
}

func NewGateway(hub *Hub, logger *slog.Logger) *Gateway {
	g := &Gateway{
		hub:     hub,
		logger:  logger,
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]struct{}),
	}
	g.server = websocket.Server{
		// Browsers on any origin may follow orders.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   g.serveConn,
	}
	return g
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.server.ServeHTTP(w, r)
}

func (g *Gateway) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Stats{ConnectedClients: len(g.clients), ActiveOrderRooms: len(g.rooms)}
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Frame
	done chan struct{}

	// subs is only touched by the connection's read loop.
	subs map[Scope]*Subscription
}

func (c *client) enqueue(f Frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case f := <-c.send:
			if err := websocket.JSON.Send(c.conn, f); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (g *Gateway) serveConn(conn *websocket.Conn) {
	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan Frame, clientSendBuffer),
		done: make(chan struct{}),
		subs: make(map[Scope]*Subscription),
	}

	go c.writeLoop()

	total := g.register(c)
	g.logger.Info("realtime client connected", "client_id", c.id, "total_clients", total)
	g.toAll(Frame{Event: EventUserConnected, Data: PresenceData{ClientID: c.id, TotalClients: total}})

	defer g.disconnect(c)

	for {
		var msg ClientMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			return
		}
		g.handle(c, msg)
	}
}

func (g *Gateway) handle(c *client, msg ClientMessage) {
	switch msg.Action {
	case ActionJoinOrder:
		if msg.OrderID == "" {
			c.enqueue(Frame{Event: EventError, Data: ErrorData{Message: "order_id is required"}})
			return
		}
		g.joinOrder(c, msg.OrderID)
	case ActionLeaveOrder:
		if msg.OrderID == "" {
			c.enqueue(Frame{Event: EventError, Data: ErrorData{Message: "order_id is required"}})
			return
		}
		g.leaveOrder(c, msg.OrderID)
	case ActionJoinAdmin:
		g.follow(c, AdminScope)
	case ActionLeaveAdmin:
		g.unfollow(c, AdminScope)
	case ActionPing:
		c.enqueue(Frame{Event: EventPong})
	default:
		c.enqueue(Frame{Event: EventError, Data: ErrorData{Message: "unknown action " + msg.Action}})
	}
}

func (g *Gateway) joinOrder(c *client, orderID string) {
	if !g.follow(c, OrderScope(orderID)) {
		return
	}

	g.mu.Lock()
	room, ok := g.rooms[orderID]
	if !ok {
		room = make(map[string]struct{})
		g.rooms[orderID] = room
	}
	room[c.id] = struct{}{}
	size := len(room)
	g.mu.Unlock()

	g.toRoom(orderID, Frame{Event: EventClientJoinedOrder, Data: RoomData{OrderID: orderID, ClientID: c.id, ClientsInRoom: size}})
}

func (g *Gateway) leaveOrder(c *client, orderID string) {
	if !g.unfollow(c, OrderScope(orderID)) {
		return
	}

	size := g.removeFromRoom(orderID, c.id)
	frame := Frame{Event: EventClientLeftOrder, Data: RoomData{OrderID: orderID, ClientID: c.id, ClientsInRoom: size}}
	c.enqueue(frame)
	g.toRoom(orderID, frame)
}

// follow subscribes c to scope and forwards its events. It reports false if c
// already follows scope.
func (g *Gateway) follow(c *client, scope Scope) bool {
	if _, ok := c.subs[scope]; ok {
		return false
	}

	sub := g.hub.Subscribe(scope, DefaultBuffer)
	c.subs[scope] = sub

	go func() {
		for evt := range sub.Events() {
			if !c.enqueue(lifecycleFrame(evt)) {
				g.logger.Debug("realtime client lagging, dropping event", "client_id", c.id, "scope", string(scope))
			}
		}
	}()
	return true
}

func (g *Gateway) unfollow(c *client, scope Scope) bool {
	sub, ok := c.subs[scope]
	if !ok {
		return false
	}
	sub.Close()
	delete(c.subs, scope)
	return true
}

func (g *Gateway) register(c *client) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[c.id] = c
	return len(g.clients)
}

func (g *Gateway) removeFromRoom(orderID, clientID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	room, ok := g.rooms[orderID]
	if !ok {
		return 0
	}
	delete(room, clientID)
	if len(room) == 0 {
		delete(g.rooms, orderID)
	}
	return len(room)
}

func (g *Gateway) disconnect(c *client) {
	for scope := range c.subs {
		if orderID, ok := scope.OrderID(); ok {
			size := g.removeFromRoom(orderID, c.id)
			g.toRoom(orderID, Frame{Event: EventClientLeftOrder, Data: RoomData{OrderID: orderID, ClientID: c.id, ClientsInRoom: size}})
		}
		g.unfollow(c, scope)
	}

	g.mu.Lock()
	delete(g.clients, c.id)
	total := len(g.clients)
	g.mu.Unlock()

	close(c.done)
	_ = c.conn.Close()

	g.logger.Info("realtime client disconnected", "client_id", c.id, "total_clients", total)
	g.toAll(Frame{Event: EventUserDisconnected, Data: PresenceData{ClientID: c.id, TotalClients: total}})
}

func (g *Gateway) toAll(f Frame) {
	g.mu.Lock()
	targets := make([]*client, 0, len(g.clients))
	for _, c := range g.clients {
		targets = append(targets, c)
	}
	g.mu.Unlock()

	for _, c := range targets {
		c.enqueue(f)
	}
}

func (g *Gateway) toRoom(orderID string, f Frame) {
	g.mu.Lock()
	targets := make([]*client, 0, len(g.rooms[orderID]))
	for id := range g.rooms[orderID] {
		if c, ok := g.clients[id]; ok {
			targets = append(targets, c)
		}
	}
	g.mu.Unlock()

	for _, c := range targets {
		c.enqueue(f)
	}
}

func lifecycleFrame(evt domain.Event) Frame {
	return Frame{Event: string(evt.Type()), Data: domain.EnvelopeOf(evt)}
}
