package server

import (
	"sync"
)

type ConnectionManager struct {
	clients map[string]*Client // connectionID → client
	mu      sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		clients: make(map[string]*Client),
	}
}

func (cm *ConnectionManager) AddConnection(c *Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.clients[c.ID()] = c
}

func (cm *ConnectionManager) RemoveConnection(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.clients, id)
}

// GetConnection returns the client for connectionID, or nil.
func (cm *ConnectionManager) GetConnection(id string) *Client {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.clients[id]
}

func (cm *ConnectionManager) All() []*Client {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	clients := make([]*Client, 0, len(cm.clients))
	for _, c := range cm.clients {
		clients = append(clients, c)
	}
	return clients
}

func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}
