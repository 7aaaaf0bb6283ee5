package settlement

import (
	"sync"

	"github.com/google/uuid"
)

// VendorLocks serializes settlement work per vendor within this process.
// Two goroutines can settle different vendors concurrently, but batch
// building and payout execution for one vendor never overlap.
type VendorLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewVendorLocks builds an empty keyed lock set.
func NewVendorLocks() *VendorLocks {
	return &VendorLocks{locks: map[uuid.UUID]*sync.Mutex{}}
}

// Lock blocks until the vendor's mutex is held and returns the unlock func.
func (v *VendorLocks) Lock(vendorID uuid.UUID) func() {
	v.mu.Lock()
	lock, ok := v.locks[vendorID]
	if !ok {
		lock = &sync.Mutex{}
		v.locks[vendorID] = lock
	}
	v.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
