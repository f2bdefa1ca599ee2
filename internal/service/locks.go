package service

import "sync"

// TenantLocks hands out one mutex per tenant. Workflows for the same tenant
// run one at a time; different tenants never wait on each other.
type TenantLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTenantLocks() *TenantLocks {
	return &TenantLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the tenant's lock is held and returns its release func.
func (l *TenantLocks) Lock(tenantID string) func() {
	l.mu.Lock()
	m, ok := l.locks[tenantID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[tenantID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
