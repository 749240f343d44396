/*
Package coro implements a two-party cooperative hand-off between a driving
goroutine and a worker goroutine.

The driver creates a Coroutine with a worker body and calls Launch, which
starts the worker and blocks until the worker either reaches its first call
to Yield or returns. From then on control is passed back and forth: the
worker calls Yield to suspend itself and wake the driver, and the driver
calls Resume to suspend itself and wake the worker. At any moment exactly
one of the two goroutines executes; the other is parked. Hand-offs are
never skipped or reordered.

Resume reports whether the worker body is still running. Once the body has
returned, Resume returns false immediately on every subsequent call.

Shutdown is cooperative: the driver calls Cancel, which resumes the worker
one last time and blocks until the worker goroutine has terminated. The
worker is expected to poll Cancelled after each Yield and return promptly
when it reports true.
*/
package coro

import "sync"

// Turn token values. The holder of the turn is the side allowed to execute;
// the other side waits on the condition until the token is handed over.
const (
	driverTurn = iota
	workerTurn
)

// A Coroutine couples one driver with one worker goroutine. Instances are
// not reusable: once the worker body has returned, the coroutine is dead.
type Coroutine struct {
	mu        sync.Mutex
	hand      *sync.Cond // signals turn hand-overs and termination
	turn      int
	running   bool
	cancelled bool
	launched  bool
	body      func(*Coroutine)
	dead      chan struct{}
}

// New creates a coroutine for the given worker body. The body receives the
// coroutine itself so that it can call Yield and Cancelled.
func New(body func(*Coroutine)) *Coroutine {
	co := &Coroutine{
		body:    body,
		turn:    driverTurn,
		running: true,
		dead:    make(chan struct{}),
	}
	co.hand = sync.NewCond(&co.mu)
	return co
}

// Launch starts the worker goroutine and blocks until the worker yields for
// the first time or its body returns. Launch must be called exactly once,
// from the driver; a second call panics.
func (co *Coroutine) Launch() {
	co.mu.Lock()
	if co.launched {
		co.mu.Unlock()
		panic("coro: Launch called twice")
	}
	co.launched = true
	go co.run()
	co.handToWorker()
	co.mu.Unlock()
}

func (co *Coroutine) run() {
	co.mu.Lock()
	for co.turn != workerTurn {
		co.hand.Wait()
	}
	co.mu.Unlock()
	co.body(co)
	co.mu.Lock()
	co.running = false
	co.turn = driverTurn
	co.hand.Broadcast()
	co.mu.Unlock()
	close(co.dead)
}

// handToWorker passes the turn to the worker and waits until the worker
// either yields the turn back or terminates. Callers must hold co.mu.
func (co *Coroutine) handToWorker() {
	co.turn = workerTurn
	co.hand.Broadcast()
	for co.turn == workerTurn && co.running {
		co.hand.Wait()
	}
}

// Yield suspends the worker and hands control to the driver call currently
// blocked in Launch, Resume or Cancel. It returns when the driver resumes.
// Yield may only be called from the worker body.
func (co *Coroutine) Yield() {
	co.mu.Lock()
	co.turn = driverTurn
	co.hand.Broadcast()
	for co.turn == driverTurn {
		co.hand.Wait()
	}
	co.mu.Unlock()
}

// Resume unblocks the worker from its current Yield and blocks the driver
// until the worker yields again or its body returns. It reports whether the
// body is still running; after the body has returned, Resume returns false
// immediately and has no effect.
func (co *Coroutine) Resume() bool {
	co.mu.Lock()
	if !co.launched {
		co.mu.Unlock()
		panic("coro: Resume before Launch")
	}
	if co.running {
		co.handToWorker()
	}
	r := co.running
	co.mu.Unlock()
	return r
}

// Cancel requests cooperative termination: it sets the cancellation flag,
// resumes the worker once so that it can observe the flag and return, and
// blocks until the worker goroutine is dead. Calling Cancel on a dead
// coroutine has no effect.
func (co *Coroutine) Cancel() {
	co.mu.Lock()
	if !co.launched {
		co.mu.Unlock()
		panic("coro: Cancel before Launch")
	}
	co.cancelled = true
	co.mu.Unlock()
	co.Resume()
	<-co.dead
}

// Cancelled reports whether the driver has requested termination. The
// worker should poll it immediately after each Yield returns.
func (co *Coroutine) Cancelled() bool {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.cancelled
}
