package pool

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	wapc "github.com/wapc-sdk/wapc-go"
)

// worker drives one Host on its own goroutine, alternating between
// advertising itself as idle and executing whatever item it is handed.
//
// claimed guards the handoff between a worker announcing itself on
// pool.idle and two independent goroutines racing to act on that
// announcement: the dispatch loop, which wants to deliver an item, and the
// worker's own idle timeout, which wants to retire it. Both sides must
// win the claim via compare-and-swap before proceeding; the loser treats
// the announcement as stale and moves on.
type worker struct {
	host  *wapc.Host
	input chan *workItem
	pool  *Pool

	claimed int32
}

func (w *worker) run() {
	defer w.pool.workerWG.Done()
	w.announceIdle()

	for {
		select {
		case item := <-w.input:
			w.execute(item)
			atomic.StoreInt32(&w.claimed, 0)
			w.announceIdle()

		case <-time.After(w.pool.cfg.MaxIdle):
			if !atomic.CompareAndSwapInt32(&w.claimed, 0, 1) {
				continue
			}
			if w.pool.tryRetire(w) {
				_ = w.host.Close(context.Background())
				return
			}
			atomic.StoreInt32(&w.claimed, 0)
			w.announceIdle()

		case <-w.pool.closed:
			// If the dispatch loop has already claimed this worker, an item
			// is on its way to input and must still run to completion.
			if !atomic.CompareAndSwapInt32(&w.claimed, 0, 1) {
				w.execute(<-w.input)
			}
			w.pool.removeWorker(w)
			return
		}
	}
}

// announceIdle offers this worker on the pool's idle channel. The send is
// non-blocking: if nobody is listening right now the offer is simply
// dropped, and the worker tries again on its next idle cycle.
func (w *worker) announceIdle() {
	select {
	case w.pool.idle <- w:
	default:
	}
}

// deliver hands an item to a worker already claimed by the caller. The
// buffered input channel never has more than one claim outstanding at a
// time, so this never blocks.
func (w *worker) deliver(item *workItem) {
	w.input <- item
}

// execute runs one call against the worker's Host, recovering a panic from
// either the guest engine or the user's Host Callback. A panic poisons the
// Host: execute closes it and reconstructs a replacement via the pool's
// factory before reporting failure, so one bad call does not take the rest
// of the pool down with it.
func (w *worker) execute(item *workItem) {
	defer func() {
		if r := recover(); r != nil {
			w.poisonAndReplace()
			item.complete(Result{Err: fmt.Errorf("wapc: host call panicked: %v", r)})
		}
	}()

	response, err := w.host.Call(item.ctx, item.op, item.payload)
	item.complete(Result{Response: response, Err: err})
}

func (w *worker) poisonAndReplace() {
	_ = w.host.Close(context.Background())

	newHost, err := w.pool.cfg.Factory()
	if err != nil {
		w.pool.logger.Error("wapc: failed to reconstruct poisoned host",
			"pool", w.pool.cfg.Name, "error", err)
		return
	}
	w.host = newHost
}
