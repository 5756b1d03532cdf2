package unread

import (
	"log"
	"sync"
	"time"

	"github.com/Pathfinder132/SkillSwap/internal/backend"
	"github.com/Pathfinder132/SkillSwap/internal/realtime"
	"github.com/Pathfinder132/SkillSwap/internal/stats"
)

// Aggregator maintains the session-wide unread badge: seeded by a full
// count, incremented by the global message stream, decremented by
// single read marks from the open conversation and reset when the
// conversation list is opened. The incremental value can drift, so a
// periodic full recount re-seeds it.
type Aggregator struct {
	log               *log.Logger
	db                backend.Store
	feed              realtime.Feed
	stats             stats.StatsProvider
	userId            int
	reconcileInterval time.Duration

	mu    sync.Mutex
	count int

	sub  *realtime.Subscription
	stop chan struct{}
	done chan struct{}
}

func NewAggregator(logger *log.Logger, db backend.Store, feed realtime.Feed, statsProvider stats.StatsProvider,
	userId int, reconcileInterval time.Duration) *Aggregator {
	return &Aggregator{
		log:               logger,
		db:                db,
		feed:              feed,
		stats:             statsProvider,
		userId:            userId,
		reconcileInterval: reconcileInterval,
		stop:              make(chan struct{}),
		done:              make(chan struct{}),
	}
}

// Start seeds the counter and attaches the global message stream.
func (a *Aggregator) Start() error {
	count, err := a.db.CountUnread(a.userId)
	if err != nil {
		return err
	}
	a.setCount(count)

	sub, err := a.feed.Subscribe(realtime.TableMessages, nil)
	if err != nil {
		return err
	}
	a.sub = sub

	go a.run(sub)

	return nil
}

func (a *Aggregator) run(sub *realtime.Subscription) {
	defer close(a.done)

	var reconcile <-chan time.Time
	if a.reconcileInterval > 0 {
		ticker := time.NewTicker(a.reconcileInterval)
		defer ticker.Stop()
		reconcile = ticker.C
	}

	for {
		select {
		case e, ok := <-sub.Events():
			if !ok {
				return
			}
			a.handleEvent(e)
		case <-reconcile:
			a.reconcile()
		case <-a.stop:
			return
		}
	}
}

func (a *Aggregator) handleEvent(e realtime.ChangeEvent) {
	rec, err := realtime.DecodeMessage(e)
	if err != nil {
		a.log.Println("discarding malformed message event:", err)
		return
	}

	// own messages never count as unread for this viewer
	if rec.SenderId == a.userId {
		return
	}

	a.mu.Lock()
	a.count++
	count := a.count
	a.mu.Unlock()

	a.publish(count)
}

// reconcile re-seeds the counter from the authoritative count,
// bounding drift between the two incremental streams.
func (a *Aggregator) reconcile() {
	count, err := a.db.CountUnread(a.userId)
	if err != nil {
		a.log.Println("unread recount:", err)
		return
	}

	a.setCount(count)
}

// MessageRead decrements the badge by one, clamped at zero.
func (a *Aggregator) MessageRead() {
	a.mu.Lock()
	if a.count > 0 {
		a.count--
	}
	count := a.count
	a.mu.Unlock()

	a.publish(count)
}

// Reset zeroes the badge. The next reconcile picks up whatever the
// bulk mark-as-read on conversation open left behind.
func (a *Aggregator) Reset() {
	a.setCount(0)
}

func (a *Aggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

func (a *Aggregator) setCount(count int) {
	if count < 0 {
		count = 0
	}

	a.mu.Lock()
	a.count = count
	a.mu.Unlock()

	a.publish(count)
}

func (a *Aggregator) publish(count int) {
	if a.stats != nil {
		a.stats.Set(stats.UnreadMessages, count)
	}
}

// Stop releases the stream and stops the reconcile loop.
func (a *Aggregator) Stop() {
	if a.sub == nil {
		return
	}

	close(a.stop)
	a.sub.Close()
	a.sub = nil
	<-a.done
}
