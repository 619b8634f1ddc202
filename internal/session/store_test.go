package session

import (
	"sync"
	"testing"
	"time"

	"career-bot/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prompt = "Ты профориентационный консультант."

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func systemOnly() []llm.Message {
	return []llm.Message{{Role: llm.RoleSystem, Content: prompt}}
}

func TestGetOrCreate(t *testing.T) {
	st := NewStore(prompt)

	a := st.GetOrCreate(42)
	b := st.GetOrCreate(42)

	assert.Same(t, a, b)
	assert.Equal(t, int64(42), a.UserID)
	assert.Equal(t, systemOnly(), a.History())
	assert.Equal(t, 1, st.Len())
}

func TestAppendKeepsOrder(t *testing.T) {
	st := NewStore(prompt)

	st.Append(1, llm.RoleUser, "Мне нравится математика")
	st.Append(1, llm.RoleAssistant, "Отлично! А физика?")
	st.Append(1, llm.RoleUser, "Тоже")

	got := st.History(1)
	require.Len(t, got, 4)
	assert.Equal(t, llm.RoleSystem, got[0].Role)
	assert.Equal(t, "Мне нравится математика", got[1].Content)
	assert.Equal(t, llm.RoleAssistant, got[2].Role)
	assert.Equal(t, "Тоже", got[3].Content)
}

func TestHistoryIsACopy(t *testing.T) {
	st := NewStore(prompt)
	st.Append(1, llm.RoleUser, "hi")

	h := st.History(1)
	h[1].Content = "changed"

	assert.Equal(t, "hi", st.History(1)[1].Content)
}

func TestHistoryOfUnknownUser(t *testing.T) {
	st := NewStore(prompt)
	assert.Equal(t, systemOnly(), st.History(7))
	assert.Equal(t, 0, st.Len())
}

func TestReset(t *testing.T) {
	clock := newFakeClock()
	st := NewStore(prompt, WithClock(clock.Now))

	st.Append(1, llm.RoleUser, "a")
	st.Append(1, llm.RoleAssistant, "b")

	clock.Advance(time.Hour)
	sess := st.Reset(1)

	assert.Equal(t, systemOnly(), sess.History())
	assert.Equal(t, clock.Now(), sess.LastActive())
}

func TestResetWithoutSession(t *testing.T) {
	st := NewStore(prompt)
	sess := st.Reset(99)
	assert.Equal(t, systemOnly(), sess.History())
	assert.Equal(t, 1, st.Len())
}

func TestTouch(t *testing.T) {
	clock := newFakeClock()
	st := NewStore(prompt, WithClock(clock.Now))

	st.Append(1, llm.RoleUser, "a")
	before := st.History(1)

	clock.Advance(3 * time.Hour)
	st.Touch(1)

	sess, ok := st.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, clock.Now(), sess.LastActive())
	assert.Equal(t, before, sess.History())

	// unknown users get a session so the idle clock starts
	st.Touch(2)
	_, ok = st.Lookup(2)
	assert.True(t, ok)
}

func TestEvictIdle(t *testing.T) {
	clock := newFakeClock()
	st := NewStore(prompt, WithClock(clock.Now))

	st.Touch(1) // will be 25h old
	clock.Advance(2 * time.Hour)
	st.Touch(2) // will be 23h old
	clock.Advance(23 * time.Hour)

	removed := st.EvictIdle(clock.Now().Add(-24 * time.Hour))

	assert.Equal(t, 1, removed)
	_, ok := st.Lookup(1)
	assert.False(t, ok)
	_, ok = st.Lookup(2)
	assert.True(t, ok)
}

func TestEvictIdleSkipsBusySession(t *testing.T) {
	clock := newFakeClock()
	st := NewStore(prompt, WithClock(clock.Now))

	_, _, release := st.Lock(1)
	clock.Advance(48 * time.Hour)

	assert.Equal(t, 0, st.EvictIdle(clock.Now().Add(-24*time.Hour)))
	release()
	assert.Equal(t, 1, st.EvictIdle(clock.Now().Add(-24*time.Hour)))
}

func TestLockAfterEvictionCreatesFreshSession(t *testing.T) {
	clock := newFakeClock()
	st := NewStore(prompt, WithClock(clock.Now))

	old, created, release := st.Lock(1)
	assert.True(t, created)
	release()
	st.Append(1, llm.RoleUser, "old turn")

	clock.Advance(25 * time.Hour)
	require.Equal(t, 1, st.EvictIdle(clock.Now().Add(-24*time.Hour)))

	fresh, created, release := st.Lock(1)
	defer release()
	assert.True(t, created)
	assert.NotSame(t, old, fresh)
	assert.Equal(t, systemOnly(), fresh.History())
}

func TestLockSerializesTurns(t *testing.T) {
	st := NewStore(prompt)

	const turns = 50
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, release := st.Lock(1)
			defer release()
			st.Append(1, llm.RoleUser, "q")
			time.Sleep(time.Millisecond)
			st.Append(1, llm.RoleAssistant, "a")
		}()
	}
	wg.Wait()

	h := st.History(1)
	require.Len(t, h, 1+2*turns)
	for i := 1; i < len(h); i += 2 {
		assert.Equal(t, llm.RoleUser, h[i].Role, "index %d", i)
		assert.Equal(t, llm.RoleAssistant, h[i+1].Role, "index %d", i+1)
	}
}

func TestClose(t *testing.T) {
	st := NewStore(prompt)
	st.Touch(1)
	st.Touch(2)
	st.Close()
	assert.Equal(t, 0, st.Len())
}

func TestTruncateTo(t *testing.T) {
	st := NewStore(prompt)
	st.Append(1, llm.RoleUser, "a")
	st.Append(1, llm.RoleAssistant, "b")
	st.Append(1, llm.RoleUser, "unanswered")

	st.TruncateTo(1, 3)
	assert.Len(t, st.History(1), 3)

	st.TruncateTo(1, 0)
	assert.Equal(t, systemOnly(), st.History(1))

	// appending after a truncation must not clobber a shared backing array
	st.Append(1, llm.RoleUser, "again")
	assert.Len(t, st.History(1), 2)

	st.TruncateTo(404, 1) // unknown user is a no-op
	assert.Equal(t, 1, st.Len())
}
