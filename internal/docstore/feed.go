package docstore

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const relistTimeout = 5 * time.Second

// feedSubscriptions drives Subscribe for stores that learn about changes
// through a ChangeFeed. Each collection keeps one feed listener; bursts of
// change notifications collapse into a single re-list.
type feedSubscriptions struct {
	feed      ChangeFeed
	list      func(ctx context.Context, collection string) ([]Document, error)
	listeners *listenerSet
	// seq orders list calls; a list started later reflects newer state.
	seq atomic.Uint64

	mu       sync.Mutex
	watchers map[string]func()
}

func newFeedSubscriptions(feed ChangeFeed, list func(context.Context, string) ([]Document, error)) *feedSubscriptions {
	return &feedSubscriptions{
		feed:      feed,
		list:      list,
		listeners: newListenerSet(),
		watchers:  make(map[string]func()),
	}
}

type changeNotice struct {
	ID string `json:"id"`
}

func (f *feedSubscriptions) changed(collection, id string) {
	if f.feed == nil {
		return
	}
	payload, _ := json.Marshal(changeNotice{ID: id})
	f.feed.Publish(collection, payload)
}

func (f *feedSubscriptions) subscribe(collection string, pred Predicate, onChange func([]Document)) (Unsubscribe, error) {
	ctx, cancel := context.WithTimeout(context.Background(), relistTimeout)
	seq := f.seq.Add(1)
	docs, err := f.list(ctx, collection)
	cancel()
	if err != nil {
		return nil, err
	}

	l := &listener{pred: pred, onChange: onChange}
	id, first := f.listeners.add(collection, l)
	if first {
		f.watch(collection)
	}
	l.deliver(seq, docs)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.close()
			if f.listeners.remove(collection, id) {
				f.unwatch(collection)
			}
		})
	}, nil
}

func (f *feedSubscriptions) watch(collection string) {
	if f.feed == nil {
		return
	}
	ch, cancel := f.feed.Listen(collection)
	f.mu.Lock()
	if prev, ok := f.watchers[collection]; ok {
		prev()
	}
	f.watchers[collection] = cancel
	f.mu.Unlock()

	go func() {
		for range ch {
			// collapse whatever else is already queued
		drain:
			for {
				select {
				case _, ok := <-ch:
					if !ok {
						break drain
					}
				default:
					break drain
				}
			}
			f.relist(collection)
		}
	}()
}

func (f *feedSubscriptions) unwatch(collection string) {
	f.mu.Lock()
	cancel, ok := f.watchers[collection]
	delete(f.watchers, collection)
	f.mu.Unlock()
	if ok {
		cancel()
	}
}

func (f *feedSubscriptions) relist(collection string) {
	ls := f.listeners.of(collection)
	if len(ls) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), relistTimeout)
	defer cancel()
	seq := f.seq.Add(1)
	docs, err := f.list(ctx, collection)
	if err != nil {
		log.Printf("docstore: relist %s: %v", collection, err)
		return
	}
	for _, l := range ls {
		l.deliver(seq, docs)
	}
}
