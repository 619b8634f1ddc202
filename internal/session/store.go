// Package session keeps per-user conversation histories in memory.
//
// A Session lives from the first message (or /start, /reset) until the idle
// reaper evicts it. Nothing is persisted; a restart starts every user over.
package session

import (
	"strconv"
	"sync"
	"time"

	"career-bot/pkg/llm"

	"github.com/patrickmn/go-cache"
)

// Session is one user's conversation state. history[0] is always the
// system instruction.
type Session struct {
	UserID int64

	// turn serializes handler runs for this user. evicted is guarded by it.
	turn    sync.Mutex
	evicted bool

	mu         sync.Mutex
	history    []llm.Message
	lastActive time.Time
}

// History returns a copy of the conversation so far.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

type Store struct {
	// Expiration is disabled on the cache; the reaper owns eviction.
	cache *cache.Cache

	// mu guards insert and delete so a sweep never races a creation.
	mu sync.Mutex

	systemPrompt string
	now          func() time.Time
}

func NewStore(systemPrompt string, opts ...Option) *Store {
	s := &Store{
		cache:        cache.New(cache.NoExpiration, 0),
		systemPrompt: systemPrompt,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func (st *Store) newSession(userID int64) *Session {
	return &Session{
		UserID:     userID,
		history:    []llm.Message{{Role: llm.RoleSystem, Content: st.systemPrompt}},
		lastActive: st.now(),
	}
}

func (st *Store) getOrCreate(userID int64) (*Session, bool) {
	k := key(userID)
	if x, found := st.cache.Get(k); found {
		return x.(*Session), false
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if x, found := st.cache.Get(k); found {
		return x.(*Session), false
	}
	sess := st.newSession(userID)
	st.cache.Set(k, sess, cache.NoExpiration)
	return sess, true
}

// GetOrCreate returns the user's session, creating one holding only the
// system instruction if absent.
func (st *Store) GetOrCreate(userID int64) *Session {
	sess, _ := st.getOrCreate(userID)
	return sess
}

// Lookup returns the session without creating it.
func (st *Store) Lookup(userID int64) (*Session, bool) {
	if x, found := st.cache.Get(key(userID)); found {
		return x.(*Session), true
	}
	return nil, false
}

// Lock enters the user's critical section, creating the session if needed.
// The caller must call release when its turn is over. created reports
// whether this call created the session.
func (st *Store) Lock(userID int64) (sess *Session, created bool, release func()) {
	for {
		sess, created = st.getOrCreate(userID)
		sess.turn.Lock()
		if !sess.evicted {
			return sess, created, sess.turn.Unlock
		}
		// Evicted while we waited; the next lookup creates a fresh one.
		sess.turn.Unlock()
	}
}

// Reset truncates the history back to the system instruction.
func (st *Store) Reset(userID int64) *Session {
	sess, _ := st.getOrCreate(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.history = []llm.Message{{Role: llm.RoleSystem, Content: st.systemPrompt}}
	sess.lastActive = st.now()
	return sess
}

// Touch refreshes the idle clock without changing the history.
func (st *Store) Touch(userID int64) {
	sess, _ := st.getOrCreate(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastActive = st.now()
}

func (st *Store) Append(userID int64, role, content string) {
	sess, _ := st.getOrCreate(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.history = append(sess.history, llm.Message{Role: role, Content: content})
}

// TruncateTo drops messages past the first n, undoing appends of a turn
// that did not complete. The system instruction is always kept.
func (st *Store) TruncateTo(userID int64, n int) {
	if n < 1 {
		n = 1
	}
	sess, ok := st.Lookup(userID)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if len(sess.history) > n {
		sess.history = sess.history[:n:n]
	}
}

// History returns a copy of the user's history; a missing session yields
// just the system instruction.
func (st *Store) History(userID int64) []llm.Message {
	if sess, ok := st.Lookup(userID); ok {
		return sess.History()
	}
	return []llm.Message{{Role: llm.RoleSystem, Content: st.systemPrompt}}
}

// EvictIdle removes every session last active before cutoff and returns
// how many were removed. Candidates are collected from a snapshot first,
// then deleted. Sessions in the middle of a turn are skipped.
func (st *Store) EvictIdle(cutoff time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	items := st.cache.Items()
	candidates := make([]string, 0)
	for k, item := range items {
		if item.Object.(*Session).LastActive().Before(cutoff) {
			candidates = append(candidates, k)
		}
	}

	removed := 0
	for _, k := range candidates {
		sess := items[k].Object.(*Session)
		if !sess.turn.TryLock() {
			continue
		}
		if sess.LastActive().Before(cutoff) {
			sess.evicted = true
			st.cache.Delete(k)
			removed++
		}
		sess.turn.Unlock()
	}
	return removed
}

func (st *Store) Len() int {
	return st.cache.ItemCount()
}

// Close drops every session. The store is empty but usable afterwards.
func (st *Store) Close() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.cache.Flush()
}
