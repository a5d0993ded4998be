package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
)

// StatusSource produces the machine-status view pushed to subscribers.
type StatusSource interface {
	LiveMachineStatus(ctx context.Context) (*domain.MachineStatusView, error)
}

// StatusFeed pushes the machine status to every subscriber immediately on subscribe,
// then on a fixed interval, and again whenever Notify is called.
type StatusFeed struct {
	source   StatusSource
	interval time.Duration

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func NewStatusFeed(source StatusSource, interval time.Duration) *StatusFeed {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &StatusFeed{
		source:   source,
		interval: interval,
		subs:     make(map[*Subscription]struct{}),
	}
}

// Subscription is a cancellable handle on the feed. C is closed after Cancel.
type Subscription struct {
	C <-chan domain.MachineStatusView

	updates chan domain.MachineStatusView
	kick    chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

// Subscribe starts a producer for one subscriber. The producer stops when ctx is done
// or Cancel is called.
func (f *StatusFeed) Subscribe(ctx context.Context) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		updates: make(chan domain.MachineStatusView, 1),
		kick:    make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	sub.C = sub.updates

	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	go f.run(ctx, sub)
	return sub
}

// Cancel stops the producer for this subscriber and waits for it to exit. Safe to call
// more than once.
func (s *Subscription) Cancel() {
	s.cancel()
	<-s.done
}

// Notify asks every producer to push a fresh value now.
func (f *StatusFeed) Notify() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		select {
		case sub.kick <- struct{}{}:
		default:
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (f *StatusFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *StatusFeed) run(ctx context.Context, sub *Subscription) {
	defer func() {
		f.mu.Lock()
		delete(f.subs, sub)
		f.mu.Unlock()
		close(sub.updates)
		close(sub.done)
	}()

	f.push(ctx, sub)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.push(ctx, sub)
		case <-sub.kick:
			f.push(ctx, sub)
		}
	}
}

// push replaces any value the subscriber has not read yet; a slow reader only ever
// sees the newest status.
func (f *StatusFeed) push(ctx context.Context, sub *Subscription) {
	view, err := f.source.LiveMachineStatus(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("level=warn component=status_feed msg=\"status refresh failed\" err=%v", err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	select {
	case sub.updates <- *view:
		return
	default:
	}
	select {
	case <-sub.updates:
	default:
	}
	select {
	case sub.updates <- *view:
	default:
	}
}
