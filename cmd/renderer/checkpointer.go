package main

import (
	"context"

	"github.com/golang/glog"

	"row-major.net/harpoon/sampledb"
)

// checkpointer writes sample db snapshots from its own goroutine, so render
// workers never wait on storage.  At most one snapshot waits behind the one
// being written; a newer snapshot replaces it.
type checkpointer struct {
	put     func(ctx context.Context, db *sampledb.SampleDB) error
	pending chan *sampledb.SampleDB
	done    chan struct{}
}

func newCheckpointer(ctx context.Context, put func(ctx context.Context, db *sampledb.SampleDB) error) *checkpointer {
	c := &checkpointer{
		put:     put,
		pending: make(chan *sampledb.SampleDB, 1),
		done:    make(chan struct{}),
	}
	go c.run(ctx)
	return c
}

func (c *checkpointer) run(ctx context.Context) {
	defer close(c.done)
	for db := range c.pending {
		if err := c.put(ctx, db); err != nil {
			glog.Errorf("Periodic checkpoint failed: %v", err)
		}
	}
}

// Offer queues a snapshot.  It never blocks.  Calls must not overlap.
func (c *checkpointer) Offer(db *sampledb.SampleDB) {
	select {
	case c.pending <- db:
		return
	default:
	}

	// Drop the stale snapshot.  The writer may have taken it already.
	select {
	case <-c.pending:
	default:
	}
	c.pending <- db
}

// Close waits for queued snapshots to be written.  Offer must not be called
// afterwards.
func (c *checkpointer) Close() {
	close(c.pending)
	<-c.done
}
