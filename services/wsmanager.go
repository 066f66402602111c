package services

import (
	"sync"

	"github.com/gorilla/websocket"
)

type wsClient struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
}

// WSConnManager tracks the sockets of open views by view id. gorilla
// connections allow one concurrent writer, so every write takes the
// client's lock.
type WSConnManager struct {
	mu    sync.RWMutex
	views map[string]*wsClient
}

func NewWSConnManager() *WSConnManager {
	return &WSConnManager{
		views: make(map[string]*wsClient),
	}
}

func (m *WSConnManager) Add(viewID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views[viewID] = &wsClient{conn: conn}
}

func (m *WSConnManager) Remove(viewID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.views, viewID)
}

func (m *WSConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.views)
}

// Send writes one text frame to the view's socket.
func (m *WSConnManager) Send(viewID string, message []byte) error {
	m.mu.RLock()
	client, ok := m.views[viewID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	client.writeMu.Lock()
	defer client.writeMu.Unlock()
	return client.conn.WriteMessage(websocket.TextMessage, message)
}
