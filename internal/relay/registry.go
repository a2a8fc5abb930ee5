package relay

import (
	"sort"

	"github.com/luciancaetano/tablerelay"
)

// Connection is the relay's record of one accepted transport.
//
// The record is owned by the Registry; the client is only a capability to send
// to and close the transport.
type Connection struct {
	client   tablerelay.Client
	identity string
	roomID   string
	alive    bool
}

// Identity is the logical client name, stable across reconnects. It is empty
// once the connection has been superseded by a reconnect.
func (c *Connection) Identity() string { return c.identity }

// RoomID is the current room, or "" when the connection is in no room.
func (c *Connection) RoomID() string { return c.roomID }

// Alive reports whether the connection showed activity since the last heartbeat tick.
func (c *Connection) Alive() bool { return c.alive }

// Client returns the transport capability.
func (c *Connection) Client() tablerelay.Client { return c.client }

// Registry is the connection registry and room index.
//
// Invariants: a connection is a member of at most one room, and its roomID
// names that room; the default room always exists; every other room exists
// only while it has members.
//
// Registry is not safe for concurrent use. The Relay event loop owns it.
type Registry struct {
	defaultRoom string
	conns       map[string]*Connection            // transport id → connection
	rooms       map[string]map[string]*Connection // room id → transport id → connection
}

// NewRegistry returns an empty registry whose default room is defaultRoom.
func NewRegistry(defaultRoom string) *Registry {
	if defaultRoom == "" {
		defaultRoom = tablerelay.DefaultRoom
	}
	return &Registry{
		defaultRoom: defaultRoom,
		conns:       make(map[string]*Connection),
		rooms: map[string]map[string]*Connection{
			defaultRoom: make(map[string]*Connection),
		},
	}
}

// DefaultRoom returns the name of the room that is never deleted.
func (r *Registry) DefaultRoom() string { return r.defaultRoom }

// Add records client with no identity and no room.
func (r *Registry) Add(client tablerelay.Client) *Connection {
	conn := &Connection{client: client, alive: true}
	r.conns[client.ID()] = conn
	return conn
}

// Get looks a connection up by transport id.
func (r *Registry) Get(clientID string) (*Connection, bool) {
	conn, ok := r.conns[clientID]
	return conn, ok
}

// Remove forgets conn. The caller must take it out of its room first.
func (r *Registry) Remove(conn *Connection) {
	delete(r.conns, conn.client.ID())
}

// Join makes conn a member of roomID, creating the room if needed. conn must
// not be in a room.
func (r *Registry) Join(conn *Connection, roomID string) {
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]*Connection)
		r.rooms[roomID] = members
	}
	members[conn.client.ID()] = conn
	conn.roomID = roomID
}

// Leave takes conn out of its room and reports which room that was. Empty
// non-default rooms are deleted.
func (r *Registry) Leave(conn *Connection) (string, bool) {
	roomID := conn.roomID
	if roomID == "" {
		return "", false
	}
	conn.roomID = ""

	members, ok := r.rooms[roomID]
	if !ok {
		return roomID, true
	}
	delete(members, conn.client.ID())
	if len(members) == 0 && roomID != r.defaultRoom {
		delete(r.rooms, roomID)
	}
	return roomID, true
}

// Replace puts conn into old's room slot and leaves old in no room. The room is
// never empty in between, so it is never deleted by the swap. conn must not be
// in a room.
func (r *Registry) Replace(old, conn *Connection) {
	roomID := old.roomID
	members := r.rooms[roomID]
	delete(members, old.client.ID())
	members[conn.client.ID()] = conn
	conn.roomID = roomID
	old.roomID = ""
}

// FindByIdentity returns the connection holding identity that is currently a
// member of a room, or nil.
func (r *Registry) FindByIdentity(identity string) *Connection {
	if identity == "" {
		return nil
	}
	for _, conn := range r.conns {
		if conn.identity != identity || conn.roomID == "" {
			continue
		}
		if _, ok := r.rooms[conn.roomID][conn.client.ID()]; ok {
			return conn
		}
	}
	return nil
}

// Members returns a snapshot of the connections in roomID.
func (r *Registry) Members(roomID string) []*Connection {
	members := r.rooms[roomID]
	out := make([]*Connection, 0, len(members))
	for _, conn := range members {
		out = append(out, conn)
	}
	return out
}

// RoomMembers returns the sorted identities of the members of roomID.
func (r *Registry) RoomMembers(roomID string) []string {
	members := r.rooms[roomID]
	out := make([]string, 0, len(members))
	for _, conn := range members {
		out = append(out, conn.identity)
	}
	sort.Strings(out)
	return out
}

// HasRoom reports whether roomID exists in the index.
func (r *Registry) HasRoom(roomID string) bool {
	_, ok := r.rooms[roomID]
	return ok
}

// Rooms returns the sorted ids of all existing rooms.
func (r *Registry) Rooms() []string {
	out := make([]string, 0, len(r.rooms))
	for roomID := range r.rooms {
		out = append(out, roomID)
	}
	sort.Strings(out)
	return out
}

// Connections returns a snapshot of every registered connection.
func (r *Registry) Connections() []*Connection {
	out := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		out = append(out, conn)
	}
	return out
}

// Len returns the number of registered connections.
func (r *Registry) Len() int { return len(r.conns) }
