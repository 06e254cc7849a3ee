package runner

import (
	"context"
	"sync"

	"github.com/typeforge/checkrun/schedule"
)

// pairWork is one scheduled pair tagged with its position in the
// deterministic order.
type pairWork struct {
	index int
	item  schedule.Item
}

// pairEvents is the complete frame a worker produced for one pair.
type pairEvents struct {
	index  int
	events []Event
}

// runParallel evaluates scheduled pairs on a worker pool, then
// re-sequences the resulting frames into the schedule order before
// surfacing them, so the output stream is indistinguishable from a
// serial run. The condition cache keeps memoization safe across workers.
func (r *run) runParallel(ctx context.Context, items []schedule.Item, emit func(Event) bool) {
	// Conservative buffering; large schedules should not pin memory.
	bufferSize := min(r.engine.concurrency*2, 100)
	workChan := make(chan pairWork, bufferSize)
	resultChan := make(chan pairEvents, bufferSize)

	var wg sync.WaitGroup
	for i := 0; i < r.engine.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for work := range workChan {
				var frame []Event
				r.executeItem(ctx, work.item, func(ev Event) bool {
					frame = append(frame, ev)
					return ctx.Err() == nil
				})
				select {
				case resultChan <- pairEvents{index: work.index, events: frame}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(workChan)
		for i, item := range items {
			select {
			case workChan <- pairWork{index: i, item: item}:
			case <-ctx.Done():
				r.engine.log.Debug("Context canceled while dispatching scheduled pairs")
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Frames arrive in completion order; hold them back until every
	// earlier frame has been surfaced.
	pending := make(map[int][]Event, len(items))
	next := 0
	for pe := range resultChan {
		pending[pe.index] = pe.events
		for {
			frame, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			for _, ev := range frame {
				if !emit(ev) {
					return
				}
			}
			next++
		}
	}
}
