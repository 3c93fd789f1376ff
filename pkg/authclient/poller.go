package authclient

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is how often the storefront refreshes notifications.
const DefaultPollInterval = 5 * time.Second

// Poller fetches the signed-in user's notifications on an interval and
// reports each one once.
type Poller struct {
	auth     *AuthContext
	interval time.Duration
	onNew    func([]Notification)
	onError  func(error)

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewPoller returns a Poller calling onNew with notifications not seen before.
func NewPoller(auth *AuthContext, onNew func([]Notification)) *Poller {
	return &Poller{
		auth:     auth,
		interval: DefaultPollInterval,
		onNew:    onNew,
		seen:     make(map[string]struct{}),
	}
}

// WithInterval overrides DefaultPollInterval.
func (p *Poller) WithInterval(d time.Duration) *Poller {
	if d > 0 {
		p.interval = d
	}
	return p
}

// OnError registers a callback for failed polls. Polling continues after errors.
func (p *Poller) OnError(fn func(error)) *Poller {
	p.onError = fn
	return p
}

// Run polls immediately and then every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll performs a single fetch-and-diff. Signed-out polls are skipped.
func (p *Poller) Poll(ctx context.Context) {
	user, ok := p.auth.User()
	if !ok {
		return
	}

	items, err := p.auth.api.Notifications(ctx, p.auth.Token(), user.ID)
	if err != nil {
		if p.onError != nil && ctx.Err() == nil {
			p.onError(err)
		}
		return
	}

	fresh := p.diff(items)
	if len(fresh) > 0 && p.onNew != nil {
		p.onNew(fresh)
	}
}

func (p *Poller) diff(items []Notification) []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	var fresh []Notification
	for _, n := range items {
		if _, ok := p.seen[n.ID]; ok {
			continue
		}
		p.seen[n.ID] = struct{}{}
		fresh = append(fresh, n)
	}
	return fresh
}
