package connmgr

import (
	"context"
	"time"

	"github.com/mattn/go-sqlite3"
)

// pooledReader is a reader connection plus its idle bookkeeping.
type pooledReader struct {
	conn     *sqlite3.SQLiteConn
	lastIdle time.Time
}

// readerPool is the bounded, lazily-populated reader pool of spec.md §3/§4.A:
// lazy creation up to capacity, idle reclamation after idleTimeout, fair
// (FIFO) queueing of waiters once capacity is exhausted.
type readerPool struct {
	dsn      string
	capacity int
	idleTTL  time.Duration

	mu      chan struct{} // 1-buffered mutex, same shape as fifoQueue
	idle    []*pooledReader
	opened  int // total connections opened so far (idle + checked out)
	waiters []chan *pooledReader

	stopReap chan struct{}
}

func newReaderPool(dsn string, capacity int, idleTTL time.Duration) *readerPool {
	p := &readerPool{
		dsn:      dsn,
		capacity: capacity,
		idleTTL:  idleTTL,
		mu:       make(chan struct{}, 1),
		stopReap: make(chan struct{}),
	}
	p.mu <- struct{}{}
	go p.reapLoop()
	return p
}

func (p *readerPool) lock()   { <-p.mu }
func (p *readerPool) unlock() { p.mu <- struct{}{} }

// acquire returns a ready reader connection, blocking until one is idle or
// a new one can be opened under capacity.
func (p *readerPool) acquire(ctx context.Context) (*pooledReader, error) {
	p.lock()
	if n := len(p.idle); n > 0 {
		r := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.unlock()
		return r, nil
	}
	if p.opened < p.capacity {
		p.opened++
		p.unlock()
		conn, err := openReaderConn(p.dsn)
		if err != nil {
			p.lock()
			p.opened--
			p.unlock()
			return nil, err
		}
		return &pooledReader{conn: conn}, nil
	}
	ticket := make(chan *pooledReader, 1)
	p.waiters = append(p.waiters, ticket)
	p.unlock()

	select {
	case r := <-ticket:
		return r, nil
	case <-ctx.Done():
		p.cancelWaiter(ticket)
		return nil, ctx.Err()
	}
}

func (p *readerPool) cancelWaiter(ticket chan *pooledReader) {
	p.lock()
	for i, w := range p.waiters {
		if w == ticket {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			p.unlock()
			return
		}
	}
	p.unlock()
	// Raced with a hand-off: the reader was already sent to this ticket.
	// Pass it to the next waiter instead of letting it leak unreturned.
	select {
	case r := <-ticket:
		p.release(r)
	default:
	}
}

// release returns r to the pool, handing it directly to the longest-
// waiting caller if one exists (spec.md §5 "fair (FIFO) queueing").
func (p *readerPool) release(r *pooledReader) {
	p.lock()
	if len(p.waiters) > 0 {
		next := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.unlock()
		next <- r
		return
	}
	r.lastIdle = time.Now()
	p.idle = append(p.idle, r)
	p.unlock()
}

// reapLoop closes idle connections older than idleTTL, never touching a
// checked-out connection (spec.md §5 "never in a way that invalidates an
// outstanding handle").
func (p *readerPool) reapLoop() {
	if p.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(p.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopReap:
			return
		case <-ticker.C:
			p.reapIdle()
		}
	}
}

func (p *readerPool) reapIdle() {
	p.lock()
	defer p.unlock()
	cutoff := time.Now().Add(-p.idleTTL)
	kept := p.idle[:0]
	for _, r := range p.idle {
		if r.lastIdle.Before(cutoff) {
			r.conn.Close()
			p.opened--
			continue
		}
		kept = append(kept, r)
	}
	p.idle = kept
}

// closeAll closes every idle connection and stops reclamation. Callers
// must ensure no handles are outstanding before calling this (the drain
// phase of Manager.Close guarantees it).
func (p *readerPool) closeAll() {
	close(p.stopReap)
	p.lock()
	defer p.unlock()
	for _, r := range p.idle {
		r.conn.Close()
	}
	p.idle = nil
	p.opened = 0
}
