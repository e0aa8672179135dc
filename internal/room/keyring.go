// internal/room/keyring.go
package room

import (
	"sync"

	"github.com/google/uuid"
)

// Keyring holds per-room model API keys in process memory only.
type Keyring struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]string
}

func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[uuid.UUID]string)}
}

// Set stores key for roomID; an empty key removes it.
func (k *Keyring) Set(roomID uuid.UUID, key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if key == "" {
		delete(k.keys, roomID)
		return
	}
	k.keys[roomID] = key
}

func (k *Keyring) Get(roomID uuid.UUID) string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.keys[roomID]
}

func (k *Keyring) Has(roomID uuid.UUID) bool {
	return k.Get(roomID) != ""
}
