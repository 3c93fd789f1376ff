package authclient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_ReportsEachNotificationOnce(t *testing.T) {
	fake, api := newFake(t)
	auth := New(api, NewMemoryStorage(), NewMemoryStorage())
	require.NoError(t, auth.Login(context.Background(), "a@x.com", "secret123"))

	var got []string
	p := NewPoller(auth, func(items []Notification) {
		for _, n := range items {
			got = append(got, n.ID)
		}
	})

	fake.mu.Lock()
	fake.notifications = []Notification{{ID: "n2"}, {ID: "n1"}}
	fake.mu.Unlock()
	p.Poll(context.Background())
	p.Poll(context.Background())

	fake.mu.Lock()
	fake.notifications = append([]Notification{{ID: "n3"}}, fake.notifications...)
	fake.mu.Unlock()
	p.Poll(context.Background())

	assert.Equal(t, []string{"n2", "n1", "n3"}, got)
}

func TestPoller_SkipsWhenSignedOut(t *testing.T) {
	_, api := newFake(t)
	auth := New(api, NewMemoryStorage(), NewMemoryStorage())

	called := false
	NewPoller(auth, func([]Notification) { called = true }).Poll(context.Background())
	assert.False(t, called)
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	fake, api := newFake(t)
	auth := New(api, NewMemoryStorage(), NewMemoryStorage())
	require.NoError(t, auth.Login(context.Background(), "a@x.com", "secret123"))
	fake.notifications = []Notification{{ID: "n1"}}

	var (
		mu    sync.Mutex
		calls int
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p := NewPoller(auth, func([]Notification) {
		mu.Lock()
		calls++
		mu.Unlock()
		cancel()
	}).WithInterval(10 * time.Millisecond)

	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestPoller_DefaultInterval(t *testing.T) {
	p := NewPoller(New(NewClient("http://unused"), NewMemoryStorage(), NewMemoryStorage()), nil)
	assert.Equal(t, 5*time.Second, p.interval)
}
