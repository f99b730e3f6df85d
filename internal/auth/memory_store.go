package auth

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"consolegw/internal/constants"
)

type tokenRecord struct {
	info      ConnectInfo
	expiresAt time.Time
}

func (tr *tokenRecord) isExpired() bool {
	return time.Now().After(tr.expiresAt)
}

// MemoryStore keeps token records in process memory, keyed by the SHA256
// hash of the token so the opaque credential itself is never retained.
type MemoryStore struct {
	tokens sync.Map
	done   chan struct{}
	once   sync.Once
}

func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{done: make(chan struct{})}
	go store.cleanupLoop()
	return store
}

func (st *MemoryStore) Issue(_ context.Context, info *ConnectInfo, ttl time.Duration) (string, error) {
	if err := info.Validate(); err != nil {
		return "", err
	}

	token := uuid.New().String()
	st.tokens.Store(hashToken(token), &tokenRecord{
		info:      *info,
		expiresAt: time.Now().Add(ttl),
	})
	return token, nil
}

func (st *MemoryStore) Resolve(_ context.Context, token string) (*ConnectInfo, bool) {
	if token == "" {
		return nil, false
	}

	key := hashToken(token)
	val, ok := st.tokens.Load(key)
	if !ok {
		return nil, false
	}
	rec := val.(*tokenRecord)
	if rec.isExpired() {
		st.tokens.Delete(key)
		return nil, false
	}

	info := rec.info
	return &info, true
}

func (st *MemoryStore) Close() error {
	st.once.Do(func() { close(st.done) })
	return nil
}

func (st *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(constants.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-st.done:
			return
		case <-ticker.C:
			st.tokens.Range(func(key, value interface{}) bool {
				if value.(*tokenRecord).isExpired() {
					st.tokens.Delete(key)
					log.Printf("🗑 Expired console token cleaned up")
				}
				return true
			})
		}
	}
}
