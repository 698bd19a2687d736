package cache

import (
	"github.com/sarchlab/akita/v4/mem/mem"
)

// BackingStore is the flat store behind a paged memory.
type BackingStore interface {
	// Read fetches size bytes starting at addr.
	Read(addr uint64, size int) ([]byte, error)
	// Write stores data starting at addr.
	Write(addr uint64, data []byte) error
}

// StorageBacking adapts an Akita mem.Storage as a BackingStore.
type StorageBacking struct {
	storage *mem.Storage
}

// NewStorageBacking creates a backing store of the given capacity in bytes.
func NewStorageBacking(capacity uint64) *StorageBacking {
	return &StorageBacking{storage: mem.NewStorage(capacity)}
}

// Read fetches data from the backing storage.
func (s *StorageBacking) Read(addr uint64, size int) ([]byte, error) {
	return s.storage.Read(addr, uint64(size))
}

// Write stores data to the backing storage.
func (s *StorageBacking) Write(addr uint64, data []byte) error {
	return s.storage.Write(addr, data)
}
