package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	"career-bot/internal/handler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"
)

// gatedDispatcher records dispatched texts; texts listed in gates block
// until their channel is closed.
type gatedDispatcher struct {
	mu    sync.Mutex
	seen  map[int64][]string
	gates map[string]chan struct{}
}

func newGatedDispatcher() *gatedDispatcher {
	return &gatedDispatcher{seen: map[int64][]string{}, gates: map[string]chan struct{}{}}
}

func (g *gatedDispatcher) Dispatch(_ context.Context, upd handler.Update) {
	g.mu.Lock()
	gate := g.gates[upd.Text]
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen[upd.UserID] = append(g.seen[upd.UserID], upd.Text)
}

func (g *gatedDispatcher) texts(userID int64) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.seen[userID]...)
}

func msg(userID int64, text string) handler.Update {
	return handler.Update{UserID: userID, ChatID: userID, Text: text}
}

func TestOrderedDispatchKeepsPerUserOrder(t *testing.T) {
	bot := newGatedDispatcher()
	gate := make(chan struct{})
	bot.gates["first"] = gate

	d := newOrderedDispatch(bot, semaphore.NewWeighted(4))
	ctx := context.Background()

	d.Submit(ctx, msg(1, "first"))
	d.Submit(ctx, msg(1, "second"))
	d.Submit(ctx, msg(1, "third"))
	d.Submit(ctx, msg(2, "other user"))

	// user 2 is not held up by user 1's slow turn
	assert.Eventually(t, func() bool { return len(bot.texts(2)) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, bot.texts(1))

	close(gate)
	d.Wait()

	assert.Equal(t, []string{"first", "second", "third"}, bot.texts(1))
}

func TestOrderedDispatchManyUpdates(t *testing.T) {
	bot := newGatedDispatcher()
	d := newOrderedDispatch(bot, semaphore.NewWeighted(2))
	ctx := context.Background()

	want := map[int64][]string{}
	for i := 0; i < 50; i++ {
		for user := int64(1); user <= 3; user++ {
			text := time.Duration(i).String()
			want[user] = append(want[user], text)
			d.Submit(ctx, msg(user, text))
		}
	}
	d.Wait()

	for user := int64(1); user <= 3; user++ {
		assert.Equal(t, want[user], bot.texts(user), "user %d", user)
	}
}

func TestOrderedDispatchStopsOnCancel(t *testing.T) {
	bot := newGatedDispatcher()
	sem := semaphore.NewWeighted(1)
	require.NoError(t, sem.Acquire(context.Background(), 1)) // no capacity left

	d := newOrderedDispatch(bot, sem)
	ctx, cancel := context.WithCancel(context.Background())

	d.Submit(ctx, msg(1, "queued"))
	d.Submit(ctx, msg(1, "queued too"))
	cancel()
	d.Wait()

	assert.Empty(t, bot.texts(1))

	// a later update for the same user starts a fresh worker
	sem.Release(1)
	d.Submit(context.Background(), msg(1, "after"))
	d.Wait()
	assert.Equal(t, []string{"after"}, bot.texts(1))
}
