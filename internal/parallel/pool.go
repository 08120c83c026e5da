// Package parallel shades framebuffer rows on a fixed set of goroutines.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// MinBandRows is the smallest band handed to a worker. Shorter images are
// shaded on the calling goroutine.
const MinBandRows = 16

// BandPool splits an image into horizontal bands and shades them on a pool
// of worker goroutines.
//
// Each worker has its own queue and steals from the others when it runs
// dry, so one slow band does not stall the frame.
//
// Thread safety: BandPool is safe for concurrent use.
type BandPool struct {
	workers int

	// queues holds per-worker work queues.
	queues []chan func()

	done chan struct{}
	wg   sync.WaitGroup

	running atomic.Bool
}

// NewBandPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewBandPool(workers int) *BandPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := max(workers*4, 8)

	p := &BandPool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *BandPool) worker(id int) {
	defer p.wg.Done()
	own := p.queues[id]

	for {
		select {
		case <-p.done:
			drain(own)
			return
		case work := <-own:
			work()
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
				continue
			}
			select {
			case <-p.done:
				drain(own)
				return
			case work := <-own:
				work()
			}
		}
	}
}

func drain(queue chan func()) {
	for {
		select {
		case work := <-queue:
			work()
		default:
			return
		}
	}
}

func (p *BandPool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case work := <-p.queues[i]:
			return work
		default:
		}
	}
	return nil
}

// Bands returns the [y0, y1) row ranges Rows would shade for height rows.
func (p *BandPool) Bands(height int) [][2]int {
	if height <= 0 {
		return nil
	}
	n := min(p.workers*2, (height+MinBandRows-1)/MinBandRows)
	n = max(n, 1)
	size := (height + n - 1) / n

	bands := make([][2]int, 0, n)
	for y := 0; y < height; y += size {
		bands = append(bands, [2]int{y, min(y+size, height)})
	}
	return bands
}

// Rows calls fn for disjoint bands covering [0, height) and returns when
// all bands are done. fn must only touch rows inside its band.
// After Close, Rows shades on the calling goroutine.
func (p *BandPool) Rows(height int, fn func(y0, y1 int)) {
	bands := p.Bands(height)
	if len(bands) == 0 {
		return
	}
	if len(bands) == 1 || !p.running.Load() {
		for _, b := range bands {
			fn(b[0], b[1])
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(bands))
	for i, b := range bands {
		work := func() {
			defer wg.Done()
			fn(b[0], b[1])
		}
		select {
		case p.queues[i%p.workers] <- work:
		case <-p.done:
			work()
		}
	}
	wg.Wait()
}

// Close stops the workers after queued bands finish. It is safe to call
// more than once but must not run concurrently with Rows.
func (p *BandPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *BandPool) Workers() int { return p.workers }

// IsRunning reports whether the pool still has live workers.
func (p *BandPool) IsRunning() bool { return p.running.Load() }
