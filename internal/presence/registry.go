package presence

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Message is one realtime event delivered to a connection
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Sender delivers messages to a single live connection. Implementations
// must not block; a connection that cannot keep up is the transport's
// problem, not the registry's.
type Sender interface {
	Send(msg Message)
}

// Identity is the authenticated user data attached to a connection
type Identity struct {
	UserID    string `json:"userId" validate:"required"`
	CompanyID string `json:"companyId,omitempty"`
	Name      string `json:"name"`
	Role      string `json:"role"`
}

// OnlineUser is the public view of an identified connection
type OnlineUser struct {
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// UserRoom returns the per-user room name
func UserRoom(userID string) string {
	return fmt.Sprintf("user_%s", userID)
}

// CompanyRoom returns the per-company room name
func CompanyRoom(companyID string) string {
	return fmt.Sprintf("company_%s", companyID)
}

type connection struct {
	id          string
	sender      Sender
	identity    *Identity
	connectedAt time.Time
	rooms       map[string]struct{}
}

// Registry tracks live connections, their identities and room memberships,
// and fans events out to user, company and ad-hoc rooms. All state is
// in-memory and rebuilt from zero on restart.
//
// The registry starts unready: every notify and broadcast silently no-ops
// until Ready is called by the composition root, once the websocket
// transport is mounted.
type Registry struct {
	log      zerolog.Logger
	validate *validator.Validate

	mu    sync.RWMutex
	ready bool
	conns map[string]*connection
	rooms map[string]map[string]struct{}
}

// NewRegistry creates an empty, unready registry
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		log:      log.With().Str("component", "presence").Logger(),
		validate: validator.New(),
		conns:    make(map[string]*connection),
		rooms:    make(map[string]map[string]struct{}),
	}
}

// Ready marks the transport as initialized, enabling deliveries
func (r *Registry) Ready() {
	r.mu.Lock()
	r.ready = true
	r.mu.Unlock()
}

// Track registers a freshly-connected, still unidentified connection.
// Tracking is idempotent per connection id; re-tracking replaces the sender
// and resets identity and room memberships.
func (r *Registry) Track(connID string, sender Sender) {
	r.mu.Lock()
	if old, ok := r.conns[connID]; ok {
		for room := range old.rooms {
			r.leaveLocked(old, room)
		}
	}
	r.conns[connID] = &connection{
		id:          connID,
		sender:      sender,
		connectedAt: time.Now().UTC(),
		rooms:       make(map[string]struct{}),
	}
	r.mu.Unlock()
}

// Identify attaches an identity to a tracked connection, joins it to its
// user room and (if present) company room, and broadcasts the updated
// online roster. Re-identifying moves the connection: the previous
// user/company rooms are left first, so deliveries addressed to the old
// identity no longer reach it. An identity without a userId is rejected:
// deriving a room name from an empty id would create a catch-all room.
func (r *Registry) Identify(connID string, identity Identity) error {
	if err := r.validate.Struct(identity); err != nil {
		return fmt.Errorf("invalid identity: %w", err)
	}

	r.mu.Lock()
	conn, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("unknown connection %s", connID)
	}
	if prev := conn.identity; prev != nil {
		r.leaveLocked(conn, UserRoom(prev.UserID))
		if prev.CompanyID != "" {
			r.leaveLocked(conn, CompanyRoom(prev.CompanyID))
		}
	}
	conn.identity = &identity
	r.joinLocked(conn, UserRoom(identity.UserID))
	if identity.CompanyID != "" {
		r.joinLocked(conn, CompanyRoom(identity.CompanyID))
	}
	r.mu.Unlock()

	r.log.Info().
		Str("connection_id", connID).
		Str("user_id", identity.UserID).
		Str("role", identity.Role).
		Msg("connection identified")

	r.broadcastOnline()
	return nil
}

// Drop removes a connection and its room memberships. Dropping a
// connection that is not tracked is a no-op. The online roster is only
// re-broadcast when an identified connection leaves.
func (r *Registry) Drop(connID string) {
	r.mu.Lock()
	conn, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	for room := range conn.rooms {
		r.leaveLocked(conn, room)
	}
	identified := conn.identity != nil
	delete(r.conns, connID)
	r.mu.Unlock()

	r.log.Info().Str("connection_id", connID).Msg("connection dropped")

	if identified {
		r.broadcastOnline()
	}
}

// JoinRoom adds a connection to an arbitrary room
func (r *Registry) JoinRoom(connID, room string) {
	r.mu.Lock()
	if conn, ok := r.conns[connID]; ok {
		r.joinLocked(conn, room)
	}
	r.mu.Unlock()
}

// LeaveRoom removes a connection from a room
func (r *Registry) LeaveRoom(connID, room string) {
	r.mu.Lock()
	if conn, ok := r.conns[connID]; ok {
		r.leaveLocked(conn, room)
	}
	r.mu.Unlock()
}

func (r *Registry) joinLocked(conn *connection, room string) {
	conn.rooms[room] = struct{}{}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[room] = members
	}
	members[conn.id] = struct{}{}
}

func (r *Registry) leaveLocked(conn *connection, room string) {
	delete(conn.rooms, room)
	if members, ok := r.rooms[room]; ok {
		delete(members, conn.id)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
}

// NotifyUser delivers an event to every connection identified as userID
func (r *Registry) NotifyUser(userID, event string, payload map[string]any) {
	r.NotifyRoom(UserRoom(userID), event, payload)
}

// NotifyCompany delivers an event to every connection in the company room
func (r *Registry) NotifyCompany(companyID, event string, payload map[string]any) {
	r.NotifyRoom(CompanyRoom(companyID), event, payload)
}

// NotifyRoom delivers an event to every member of a room. An empty or
// unknown room is silently a no-op: presence is ephemeral and an empty
// delivery is not an error.
func (r *Registry) NotifyRoom(room, event string, payload map[string]any) {
	r.mu.RLock()
	if !r.ready {
		r.mu.RUnlock()
		return
	}
	targets := make([]Sender, 0, len(r.rooms[room]))
	for connID := range r.rooms[room] {
		if conn, ok := r.conns[connID]; ok {
			targets = append(targets, conn.sender)
		}
	}
	r.mu.RUnlock()

	msg := Message{Type: event, Data: enrich(payload)}
	for _, s := range targets {
		s.Send(msg)
	}
}

// NotifyAll delivers an event to every connected connection, identified
// or not
func (r *Registry) NotifyAll(event string, payload map[string]any) {
	r.mu.RLock()
	if !r.ready {
		r.mu.RUnlock()
		return
	}
	targets := make([]Sender, 0, len(r.conns))
	for _, conn := range r.conns {
		targets = append(targets, conn.sender)
	}
	r.mu.RUnlock()

	msg := Message{Type: event, Data: enrich(payload)}
	for _, s := range targets {
		s.Send(msg)
	}
}

// ListOnline returns a snapshot of all currently identified connections
func (r *Registry) ListOnline() []OnlineUser {
	r.mu.RLock()
	users := make([]OnlineUser, 0, len(r.conns))
	for _, conn := range r.conns {
		if conn.identity == nil {
			continue
		}
		users = append(users, OnlineUser{
			UserID:      conn.identity.UserID,
			Name:        conn.identity.Name,
			Role:        conn.identity.Role,
			ConnectedAt: conn.connectedAt,
		})
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		return users[i].ConnectedAt.Before(users[j].ConnectedAt)
	})
	return users
}

// ConnectionCount returns (total tracked, identified) connection counts
func (r *Registry) ConnectionCount() (int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identified := 0
	for _, conn := range r.conns {
		if conn.identity != nil {
			identified++
		}
	}
	return len(r.conns), identified
}

// RoomCount returns the number of non-empty rooms
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// broadcastOnline pushes the current roster to every connection
func (r *Registry) broadcastOnline() {
	users := r.ListOnline()
	r.NotifyAll("users_online", map[string]any{"users": users})
}

// enrich copies the payload and stamps it with the server time. Caller
// fields are never dropped or renamed.
func enrich(payload map[string]any) map[string]any {
	data := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		data[k] = v
	}
	data["timestamp"] = time.Now().UTC()
	return data
}
