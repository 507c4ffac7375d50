package gateway

import (
	"sync"
)

// Registry tracks live payment sessions for the HTTP surface. Sessions are
// isolated from each other; the registry is the only shared structure.
type Registry struct {
	mu       sync.RWMutex
	payments map[string]*Payment

	// byAddress lets the confirmation subscriber route events to sessions.
	byAddress map[string]*Payment
}

func NewRegistry() *Registry {
	return &Registry{
		payments:  make(map[string]*Payment),
		byAddress: make(map[string]*Payment),
	}
}

func (r *Registry) Add(payment *Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[payment.Id] = payment
	r.byAddress[payment.Address()] = payment
}

func (r *Registry) Get(id string) (*Payment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payment, ok := r.payments[id]
	return payment, ok
}

func (r *Registry) GetByAddress(address string) (*Payment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payment, ok := r.byAddress[address]
	return payment, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payment, ok := r.payments[id]; ok {
		delete(r.byAddress, payment.Address())
		delete(r.payments, id)
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.payments)
}
