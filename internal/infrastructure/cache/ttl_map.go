package cache

import (
	"strings"
	"sync"
	"time"
)

// ttlMap is a mutex-guarded map whose values expire. A janitor goroutine
// drops expired keys until close is called.
type ttlMap struct {
	mu        sync.RWMutex
	items     map[string]ttlItem
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type ttlItem struct {
	value     []byte
	expiresAt time.Time
}

func newTTLMap(sweepEvery time.Duration) *ttlMap {
	m := &ttlMap{
		items:    make(map[string]ttlItem),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	m.wg.Add(1)
	go m.janitor(sweepEvery)
	return m
}

func (m *ttlMap) get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[key]
	if !ok || !m.now().Before(it.expiresAt) {
		return nil, false
	}
	return it.value, true
}

func (m *ttlMap) set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = ttlItem{value: value, expiresAt: m.now().Add(ttl)}
}

// setNX stores value only if key is absent or expired.
func (m *ttlMap) setNX(key string, value []byte, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if it, ok := m.items[key]; ok && now.Before(it.expiresAt) {
		return false
	}
	m.items[key] = ttlItem{value: value, expiresAt: now.Add(ttl)}
	return true
}

func (m *ttlMap) deletePrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
			n++
		}
	}
	return n
}

func (m *ttlMap) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *ttlMap) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, it := range m.items {
		if !now.Before(it.expiresAt) {
			delete(m.items, k)
		}
	}
}

func (m *ttlMap) janitor(every time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *ttlMap) close() {
	m.closeOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()
	})
}
