package replay

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/banshee-data/tfgraph/internal/ingest"
	"github.com/banshee-data/tfgraph/internal/tf"
	"github.com/banshee-data/tfgraph/internal/timeutil"
)

// Player feeds a Reader into an Accumulator, pacing batches by their
// receive times.
type Player struct {
	reader *Reader
	acc    *ingest.Accumulator
	latest *ingest.Latest
	clock  timeutil.Clock
	rate   float64
	hook   func(idx int, snap *tf.Snapshot)
	links  <-chan []tf.Link
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithRate sets the playback rate relative to recorded time. A rate <= 0
// plays as fast as possible.
func WithRate(rate float64) PlayerOption {
	return func(p *Player) { p.rate = rate }
}

// WithPlayerClock sets the clock used for pacing.
func WithPlayerClock(c timeutil.Clock) PlayerOption {
	return func(p *Player) { p.clock = c }
}

// WithPublish stores each snapshot in l.
func WithPublish(l *ingest.Latest) PlayerOption {
	return func(p *Player) { p.latest = l }
}

// WithBatchHook calls fn after every batch with its index and the
// resulting snapshot.
func WithBatchHook(fn func(idx int, snap *tf.Snapshot)) PlayerOption {
	return func(p *Player) { p.hook = fn }
}

// WithLinkUpdates applies static link sets received on ch before the next
// batch. The accumulator is only touched from the playback goroutine.
func WithLinkUpdates(ch <-chan []tf.Link) PlayerOption {
	return func(p *Player) { p.links = ch }
}

// NewPlayer creates a player at real-time rate and registers the reader's
// topics with acc.
func NewPlayer(r *Reader, acc *ingest.Accumulator, opts ...PlayerOption) *Player {
	p := &Player{
		reader: r,
		acc:    acc,
		clock:  timeutil.RealClock{},
		rate:   1.0,
	}
	for _, opt := range opts {
		opt(p)
	}
	acc.SetTopics(r.Topics())
	return p
}

// Run plays from the reader's cursor to the end of the recording. It
// returns nil at the end and ctx.Err() if cancelled.
func (p *Player) Run(ctx context.Context) error {
	var (
		lastStamp tf.Time
		lastWall  time.Time
		started   bool
	)
	log.Printf("[replay] starting at batch %d of %d", p.reader.CurrentBatch(), p.reader.TotalBatches())

	for {
		if err := ctx.Err(); err != nil {
			log.Printf("[replay] cancelled at batch %d", p.reader.CurrentBatch())
			return err
		}

		p.applyLinkUpdates()

		idx := p.reader.CurrentBatch()
		stamp := p.reader.BatchTime(idx)
		batch, reset, err := p.reader.ReadBatch()
		if errors.Is(err, io.EOF) {
			log.Printf("[replay] complete: %d batches", p.reader.TotalBatches())
			return nil
		}
		if err != nil {
			return err
		}

		// A reset restarts pacing from the new position.
		if reset {
			started = false
		}
		if started && p.rate > 0 {
			delta := time.Duration(float64(stamp.Sub(lastStamp)) / p.rate)
			if wait := delta - p.clock.Since(lastWall); wait > 0 {
				if err := p.clock.Sleep(ctx, wait); err != nil {
					return err
				}
			}
		}
		lastStamp = stamp
		lastWall = p.clock.Now()
		started = true

		snap := p.acc.Update(batch, reset)
		if p.latest != nil {
			p.latest.Store(snap)
		}
		if p.hook != nil {
			p.hook(idx, snap)
		}
	}
}

func (p *Player) applyLinkUpdates() {
	for {
		select {
		case links, ok := <-p.links:
			if !ok {
				p.links = nil
				return
			}
			log.Printf("[replay] static links changed: %d links", len(links))
			p.acc.SetStaticLinks(links)
		default:
			return
		}
	}
}
