package repository

import (
	"context"
	"sync"
	"time"

	"slotnik/internal/models"
)

// MemoryCodeStore is the in-process fallback for verification codes. Expiry
// is enforced lazily on read, matching the Redis TTL behavior.
type MemoryCodeStore struct {
	mu        sync.Mutex
	codes     map[string]memoryCodeEntry
	cooldowns map[string]time.Time
}

type memoryCodeEntry struct {
	code      models.VerificationCode
	expiresAt time.Time
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{
		codes:     make(map[string]memoryCodeEntry),
		cooldowns: make(map[string]time.Time),
	}
}

func (m *MemoryCodeStore) SaveCode(ctx context.Context, code *models.VerificationCode, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[code.Phone] = memoryCodeEntry{code: *code, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryCodeStore) GetCode(ctx context.Context, phone string) (*models.VerificationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.codes[phone]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.codes, phone)
		return nil, nil
	}
	code := entry.code
	return &code, nil
}

func (m *MemoryCodeStore) ConsumeCode(ctx context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, phone)
	return nil
}

func (m *MemoryCodeStore) StartCooldown(ctx context.Context, phone string, window time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cooldowns[phone] = time.Now().Add(window)
	return nil
}

func (m *MemoryCodeStore) CooldownRemaining(ctx context.Context, phone string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.cooldowns[phone]
	if !ok {
		return 0, nil
	}
	remaining := time.Until(until)
	if remaining <= 0 {
		delete(m.cooldowns, phone)
		return 0, nil
	}
	return remaining, nil
}

// MemoryDraftStore keeps drafts in process memory; used standalone in tests
// and as the failover target when Redis is down.
type MemoryDraftStore struct {
	drafts sync.Map
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{}
}

func (m *MemoryDraftStore) GetDraft(ctx context.Context, sessionID string) (*models.BookingDraft, error) {
	val, ok := m.drafts.Load(sessionID)
	if !ok {
		return nil, nil
	}
	return val.(*models.BookingDraft).Clone(), nil
}

func (m *MemoryDraftStore) SaveDraft(ctx context.Context, draft *models.BookingDraft) error {
	m.drafts.Store(draft.SessionID, draft.Clone())
	return nil
}

func (m *MemoryDraftStore) ClearDraft(ctx context.Context, sessionID string) error {
	m.drafts.Delete(sessionID)
	return nil
}
