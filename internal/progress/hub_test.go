package progress

import (
	"testing"
	"time"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/fetch"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/logger"
)

func newTestHub(buffer int) *Hub {
	return NewHub(buffer, logger.New(logger.Config{Level: "error", Format: "json"}))
}

func TestHub_PublishDelivers(t *testing.T) {
	h := newTestHub(4)
	a := h.Subscribe()
	b := h.Subscribe()

	h.Report(fetch.Progress{Processed: 200, Total: 450, Label: "items"})

	for _, sub := range []*Subscriber{a, b} {
		select {
		case msg := <-sub.C:
			p, ok := msg.Data.(fetch.Progress)
			if msg.Type != EventProgress || !ok || p.Processed != 200 {
				t.Errorf("message = %+v", msg)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive message")
		}
	}
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	h := newTestHub(1)
	sub := h.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Report(fetch.Progress{Processed: i, Total: 100, Label: "prices"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Report blocked on a slow subscriber")
	}
	if len(sub.C) != 1 {
		t.Errorf("buffered %d messages, want 1", len(sub.C))
	}
}

func TestHub_Latest(t *testing.T) {
	h := newTestHub(1)
	h.Report(fetch.Progress{Processed: 1, Total: 3, Label: "recipes"})
	h.Report(fetch.Progress{Processed: 2, Total: 3, Label: "recipes"})
	h.Report(fetch.Progress{Processed: 5, Total: 9, Label: "items"})

	latest := h.Latest()
	if len(latest) != 2 {
		t.Fatalf("Latest() = %v", latest)
	}
	if latest[0].Label != "items" || latest[1].Processed != 2 {
		t.Errorf("Latest() = %v", latest)
	}

	h.Reset()
	if len(h.Latest()) != 0 {
		t.Error("Reset() should clear latest progress")
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := newTestHub(1)
	sub := h.Subscribe()
	h.Unsubscribe(sub)
	h.Unsubscribe(sub)

	if _, open := <-sub.C; open {
		t.Error("channel should be closed after Unsubscribe")
	}
	if h.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d", h.Subscribers())
	}
	h.Publish(EventCycleEnd, nil)
}
