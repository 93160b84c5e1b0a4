package registry

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRegistry is an in-memory implementation of Reader and Writer for
// testing. It mimics the contract's observable behavior: records start
// unverified, verification is monotonic, and the ciphertext handle equals the
// record id.
type MemoryRegistry struct {
	mu        sync.RWMutex
	records   map[string]RecordView
	order     []string
	available bool

	// FailRecords lists ids whose Record fetch fails, to exercise the
	// repository's partial-success policy.
	FailRecords map[string]bool

	// CreateErr and VerifyErr, when set, fail the corresponding write.
	CreateErr error
	VerifyErr error

	// VerifiedValues supplies the clear value recorded for an id when its
	// verification transaction confirms.
	VerifiedValues map[string]int64

	creates int
	verifys int
}

var (
	_ Reader = (*MemoryRegistry)(nil)
	_ Writer = (*MemoryRegistry)(nil)
)

// NewMemoryRegistry creates an empty, available in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		records:        make(map[string]RecordView),
		available:      true,
		FailRecords:    make(map[string]bool),
		VerifiedValues: make(map[string]int64),
	}
}

// Seed inserts a record directly, bypassing the write path.
func (m *MemoryRegistry) Seed(id string, view RecordView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[id]; !exists {
		m.order = append(m.order, id)
	}
	m.records[id] = view
}

// MarkVerified flips a record to verified with the given clear value,
// simulating a concurrent verification by another party.
func (m *MemoryRegistry) MarkVerified(id string, value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	view := m.records[id]
	view.IsVerified = true
	view.DecryptedValue = value
	m.records[id] = view
}

// SetAvailable controls the availability flag.
func (m *MemoryRegistry) SetAvailable(v bool) {
	m.mu.Lock()
	m.available = v
	m.mu.Unlock()
}

// Creates returns how many create transactions confirmed.
func (m *MemoryRegistry) Creates() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creates
}

// Verifications returns how many verification transactions confirmed.
func (m *MemoryRegistry) Verifications() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.verifys
}

func (m *MemoryRegistry) Address() string { return "0xmemory" }

func (m *MemoryRegistry) AllRecordIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	return ids, nil
}

func (m *MemoryRegistry) Record(ctx context.Context, id string) (RecordView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailRecords[id] {
		return RecordView{}, fmt.Errorf("record %s: simulated fetch failure", id)
	}
	view, ok := m.records[id]
	if !ok {
		return RecordView{}, fmt.Errorf("record %s not found", id)
	}
	return view, nil
}

func (m *MemoryRegistry) EncryptedHandle(ctx context.Context, id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.records[id]; !ok {
		return "", fmt.Errorf("record %s not found", id)
	}
	return id, nil
}

func (m *MemoryRegistry) Available(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.available, nil
}

func (m *MemoryRegistry) CreateRecord(ctx context.Context, record NewRecord) (TxWaiter, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	return txFunc(func(ctx context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.creates++
		if _, exists := m.records[record.ID]; !exists {
			m.order = append(m.order, record.ID)
		}
		m.records[record.ID] = RecordView{
			Name:         record.Name,
			Description:  record.Description,
			PublicValue1: record.AcademicScore,
			PublicValue2: record.Extracurricular,
			Timestamp:    time.Now().Unix(),
			Creator:      "0xmemory-signer",
		}
		return nil
	}), nil
}

func (m *MemoryRegistry) VerifyDecryption(ctx context.Context, id, clearValuesEncoded, proof string) (TxWaiter, error) {
	if m.VerifyErr != nil {
		return nil, m.VerifyErr
	}
	return txFunc(func(ctx context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.verifys++
		view, ok := m.records[id]
		if !ok {
			return fmt.Errorf("record %s not found", id)
		}
		view.IsVerified = true
		view.DecryptedValue = m.VerifiedValues[id]
		m.records[id] = view
		return nil
	}), nil
}

// txFunc is a TxWaiter whose confirmation effect runs when Wait is called.
type txFunc func(ctx context.Context) error

func (f txFunc) Wait(ctx context.Context) error { return f(ctx) }
