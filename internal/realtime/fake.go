package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
)

// FakeFeed is an in-process Feed for tests. Emit delivers an event to
// every open subscription whose table and filter match, the way the
// backend's feed would.
type FakeFeed struct {
	mu       sync.Mutex
	nextRef  int
	subs     map[int]*Subscription
	failWith error
}

func NewFakeFeed() *FakeFeed {
	return &FakeFeed{subs: make(map[int]*Subscription)}
}

// FailWith makes every subsequent Subscribe return err.
func (f *FakeFeed) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

func (f *FakeFeed) Subscribe(table string, filter *Filter) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWith != nil {
		return nil, f.failWith
	}

	f.nextRef++
	sub := &Subscription{
		ref:     f.nextRef,
		table:   table,
		filter:  filter,
		events:  make(chan ChangeEvent, eventQueueSize),
		release: f.release,
	}
	f.subs[sub.ref] = sub

	return sub, nil
}

func (f *FakeFeed) release(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.subs[sub.ref]; !ok {
		return
	}
	delete(f.subs, sub.ref)
	close(sub.events)
}

// Emit marshals record and delivers it to matching subscriptions.
func (f *FakeFeed) Emit(table string, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("unmarshal record fields: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.subs {
		if sub.table != table {
			continue
		}
		if sub.filter != nil && !filterMatches(sub.filter, fields) {
			continue
		}

		select {
		case sub.events <- ChangeEvent{Table: table, Record: raw}:
		default:
			return fmt.Errorf("subscriber queue full for table %q", table)
		}
	}

	return nil
}

// OpenSubscriptions reports how many handles have not been released,
// so tests can assert deterministic teardown.
func (f *FakeFeed) OpenSubscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func filterMatches(filter *Filter, fields map[string]any) bool {
	v, ok := fields[filter.Column]
	if !ok {
		return false
	}

	n, ok := v.(float64)
	if !ok {
		return false
	}

	return int(n) == filter.Value
}
