package repository

import (
	"apodgallery"
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryLimit is how many cycles the in-memory journal keeps.
const MemoryLimit = 1000

// Memory is the journal used when no database is configured.
// Only the last limit cycles are kept, older ones are overwritten.
type Memory struct {
	mu     sync.RWMutex
	limit  int
	next   int
	cycles []apodgallery.CycleRecord
}

func NewMemory() *Memory {
	return newMemory(MemoryLimit)
}

func newMemory(limit int) *Memory {

	if limit <= 0 {
		limit = MemoryLimit
	}

	return &Memory{limit: limit}
}

func (m *Memory) Record(_ context.Context, c apodgallery.CycleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.limit <= 0 {
		m.limit = MemoryLimit
	}

	// кольцо: пока не заполнено растём, дальше затираем самую старую запись
	if len(m.cycles) < m.limit {
		m.cycles = append(m.cycles, c)
		return nil
	}

	m.cycles[m.next] = c
	m.next = (m.next + 1) % m.limit
	return nil
}

func (m *Memory) Recent(_ context.Context, since time.Time, limit int) ([]apodgallery.CycleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]apodgallery.CycleRecord, 0, len(m.cycles))
	for _, c := range m.cycles {
		if !since.IsZero() && c.StartedAt.Before(since) {
			continue
		}
		result = append(result, c)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}
