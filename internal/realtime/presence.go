package realtime

import "sync"

// Conn is the minimal surface the registry and dispatcher need from a live
// connection. Enqueue must never block: it reports false when the event was
// dropped because the connection is saturated or gone.
type Conn interface {
	ID() string
	Enqueue(data []byte) bool
}

// Presence maps user identities to their live connections. A user may hold
// several simultaneous connections (multi-device); the user counts as online
// while at least one remains. All mutation goes through Register/Unregister,
// one indivisible step each under the lock.
type Presence struct {
	mu     sync.RWMutex
	byUser map[int64]map[string]Conn
	byConn map[string]int64
}

func NewPresence() *Presence {
	return &Presence{
		byUser: make(map[int64]map[string]Conn),
		byConn: make(map[string]int64),
	}
}

// Register records that conn represents userID. Re-registering the same pair
// is a no-op.
func (p *Presence) Register(userID int64, conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.byUser[userID] == nil {
		p.byUser[userID] = make(map[string]Conn)
	}
	p.byUser[userID][conn.ID()] = conn
	p.byConn[conn.ID()] = userID
}

// Unregister removes the association for connID regardless of owner.
// Unknown connections are a no-op, not an error. Removing a user's last
// connection removes the user entry entirely.
func (p *Presence) Unregister(connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	userID, ok := p.byConn[connID]
	if !ok {
		return
	}
	delete(p.byConn, connID)
	if conns := p.byUser[userID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(p.byUser, userID)
		}
	}
}

// ConnectionsFor returns the current live set for userID, empty if offline.
// The snapshot reflects registry state at call time.
func (p *Presence) ConnectionsFor(userID int64) []Conn {
	p.mu.RLock()
	defer p.mu.RUnlock()
	conns := make([]Conn, 0, len(p.byUser[userID]))
	for _, c := range p.byUser[userID] {
		conns = append(conns, c)
	}
	return conns
}

func (p *Presence) IsOnline(userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byUser[userID]) > 0
}
