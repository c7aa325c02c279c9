package state

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Store is the persistence contract used by the orchestrator.
//
// Save is a compare-and-set on the session version: it succeeds only when the
// stored version still equals the version the caller loaded (zero for a new
// session), then persists with the version incremented. A lost race returns
// ErrVersionConflict and the caller is expected to reload, re-merge the turn,
// and retry.
type Store interface {
	Load(ctx context.Context, sessionID string) (*ConversationSession, error)
	Save(ctx context.Context, st *ConversationSession) error
	Delete(ctx context.Context, sessionID string) error
}

// casVersionScript implements the versioned save on Redis-compatible stores.
// ARGV[1] is the expected stored version, ARGV[2] the new payload (version
// already incremented), ARGV[3] the TTL in seconds (0 disables expiry).
const casVersionScript = `
local cur = redis.call('GET', KEYS[1])
if not cur then
  if tonumber(ARGV[1]) == 0 then
    if tonumber(ARGV[3]) > 0 then
      redis.call('SET', KEYS[1], ARGV[2], 'EX', ARGV[3])
    else
      redis.call('SET', KEYS[1], ARGV[2])
    end
    return 1
  end
  return 0
end
local obj = cjson.decode(cur)
if tonumber(obj['version']) == tonumber(ARGV[1]) then
  if tonumber(ARGV[3]) > 0 then
    redis.call('SET', KEYS[1], ARGV[2], 'EX', ARGV[3])
  else
    redis.call('SET', KEYS[1], ARGV[2])
  end
  return 1
end
return 0
`

const (
	defaultStoreKeyPrefix = "concierge:session:"
	defaultStoreTTL       = 24 * time.Hour
)

// encodeForSave validates the session, bumps the version on a copy of the
// payload, and returns (expectedVersion, payload).
func encodeForSave(st *ConversationSession) (int64, []byte, error) {
	if st == nil {
		return 0, nil, ErrNilSessionState
	}
	if st.SessionID == "" {
		return 0, nil, ErrInvalidSession
	}
	if err := st.Validate(); err != nil {
		return 0, nil, err
	}

	expected := st.Version
	next := *st
	next.Version = expected + 1
	payload, err := json.Marshal(&next)
	if err != nil {
		return 0, nil, err
	}
	return expected, payload, nil
}

func decodeSession(raw []byte) (*ConversationSession, error) {
	var st ConversationSession
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return &st, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	seconds := ttl / time.Second
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}

/* ------------------------------ MemoryStore ------------------------------ */

// MemoryStore keeps sessions in process memory. Used by the local REPL and by
// tests; it honors the same CAS contract as the Redis stores.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

func (m *MemoryStore) Load(ctx context.Context, sessionID string) (*ConversationSession, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	m.mu.Lock()
	raw, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrStateNotFound
	}

	var st ConversationSession
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (m *MemoryStore) Save(ctx context.Context, st *ConversationSession) error {
	expected, payload, err := encodeForSave(st)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.sessions[st.SessionID]
	if !ok {
		if expected != 0 {
			return ErrVersionConflict
		}
		m.sessions[st.SessionID] = payload
		st.Version = expected + 1
		return nil
	}

	var stored ConversationSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return err
	}
	if stored.Version != expected {
		return ErrVersionConflict
	}
	m.sessions[st.SessionID] = payload
	st.Version = expected + 1
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}
