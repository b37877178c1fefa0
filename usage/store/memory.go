// Package store provides usage.Store implementations.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/warp/perks-engine/usage"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is an in-memory usage.Store. A single mutex guards the record map,
// which linearizes RecordUsage per key (and across keys, which is stricter
// than required but harmless at this scale).
type Memory struct {
	mu      sync.RWMutex
	records map[usage.Key]usage.EmployeeOfferUsage
	now     func() time.Time
}

var _ usage.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		records: make(map[usage.Key]usage.EmployeeOfferUsage),
		now:     time.Now,
	}
}

// NewMemoryWithClock allows tests to control timestamps.
func NewMemoryWithClock(now func() time.Time) *Memory {
	m := NewMemory()
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, employeeID, offerID string) (usage.EmployeeOfferUsage, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[usage.Key{EmployeeID: employeeID, OfferID: offerID}]
	if !ok {
		return usage.EmployeeOfferUsage{}, false, nil
	}
	return rec.Clone(), true, nil
}

func (m *Memory) RecordUsage(_ context.Context, employeeID, offerID, code string) (usage.EmployeeOfferUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := usage.Key{EmployeeID: employeeID, OfferID: offerID}
	now := m.now()

	rec, ok := m.records[k]
	if !ok {
		rec = usage.EmployeeOfferUsage{
			EmployeeID: employeeID,
			OfferID:    offerID,
			CreatedAt:  now,
		}
	}
	rec.UsageCount++
	rec.LastUsedAt = now
	if code != "" {
		rec.DiscountCodes = append(rec.DiscountCodes, code)
	}
	m.records[k] = rec

	return rec.Clone(), nil
}

func (m *Memory) ClearAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[usage.Key]usage.EmployeeOfferUsage)
	return nil
}

// Len reports the number of stored records. Test helper.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
