package telegram

import (
	"context"
	"sync"

	"career-bot/internal/handler"

	"golang.org/x/sync/semaphore"
)

// orderedDispatch runs updates of different users concurrently and the
// updates of one user strictly in arrival order. Each user with pending
// updates gets one worker goroutine that drains its queue and exits.
type orderedDispatch struct {
	bot Dispatcher
	sem *semaphore.Weighted

	mu      sync.Mutex
	pending map[int64][]handler.Update // present while the user's worker runs
	wg      sync.WaitGroup
}

func newOrderedDispatch(bot Dispatcher, sem *semaphore.Weighted) *orderedDispatch {
	return &orderedDispatch{
		bot:     bot,
		sem:     sem,
		pending: make(map[int64][]handler.Update),
	}
}

// Submit queues upd behind the user's earlier updates. It never blocks.
func (d *orderedDispatch) Submit(ctx context.Context, upd handler.Update) {
	d.mu.Lock()
	if queue, running := d.pending[upd.UserID]; running {
		d.pending[upd.UserID] = append(queue, upd)
		d.mu.Unlock()
		return
	}
	d.pending[upd.UserID] = nil
	d.mu.Unlock()

	d.wg.Add(1)
	go d.drain(ctx, upd)
}

func (d *orderedDispatch) drain(ctx context.Context, upd handler.Update) {
	defer d.wg.Done()
	for {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			// shutting down: drop whatever is still queued for this user
			d.mu.Lock()
			delete(d.pending, upd.UserID)
			d.mu.Unlock()
			return
		}
		d.bot.Dispatch(ctx, upd)
		d.sem.Release(1)

		d.mu.Lock()
		queue := d.pending[upd.UserID]
		if len(queue) == 0 {
			delete(d.pending, upd.UserID)
			d.mu.Unlock()
			return
		}
		upd = queue[0]
		d.pending[upd.UserID] = queue[1:]
		d.mu.Unlock()
	}
}

// Wait blocks until every worker has exited.
func (d *orderedDispatch) Wait() {
	d.wg.Wait()
}
