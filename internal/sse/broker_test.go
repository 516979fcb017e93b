package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain collects whatever is buffered on ch after a short pause.
func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	assert.Equal(t, 0, b.ClientCount())
	ch := b.Subscribe("")
	require.Equal(t, 1, b.ClientCount())
	b.Unsubscribe(ch)
	assert.Equal(t, 0, b.ClientCount())
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "document.reloaded", Data: map[string]string{"document": "ledger.json"}})

	select {
	case msg := <-ch:
		assert.Contains(t, string(msg), "event: document.reloaded")
		assert.Contains(t, string(msg), `"document":"ledger.json"`)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishChange_SummaryThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.PublishChange("add_relation", "g1")
	b.PublishChange("repay", "")

	var changes, summaries int
	for _, msg := range drain(ch) {
		switch {
		case strings.Contains(msg, "event: state.updated"):
			summaries++
		case strings.Contains(msg, "event: command.applied"):
			changes++
		}
	}
	assert.Equal(t, 2, changes)
	assert.Equal(t, 1, summaries, "summary must be throttled")
}

func TestPublishChange_SummaryFollowsChange(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	// A plain event of the same type is not a change and earns no summary.
	b.Publish(Event{Type: eventCommandApplied, Data: map[string]string{"command": "manual"}})
	got := drain(ch)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], `"command":"manual"`)

	b.PublishChange("borrow", "")
	got = drain(ch)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], `"command":"borrow"`)
	assert.NotContains(t, got[0], `"group"`)
	assert.Contains(t, got[1], "event: state.updated")
}

func TestGroupFilter(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	all := b.Subscribe("")
	g1 := b.Subscribe("g1")
	g2 := b.Subscribe("g2")

	b.PublishChange("add_relation", "g1")
	b.Publish(Event{Type: "document.reloaded", Data: map[string]string{"document": "ledger.json"}})

	got := drain(g1)
	require.Len(t, got, 3)
	assert.Contains(t, strings.Join(got, ""), `"group":"g1"`)

	got = drain(g2)
	for _, msg := range got {
		assert.NotContains(t, msg, "command.applied", "g2 received another group's change")
	}
	assert.Len(t, got, 2, "g2 gets the summary and the reload")

	assert.Len(t, drain(all), 3)
}

// recorder is a flushable ResponseWriter safe to read while the handler runs.
type recorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *recorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?group=g1", nil).WithContext(ctx)
	w := &recorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, b.ClientCount())

	b.PublishChange("delete_relation", "g1")
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	assert.Contains(t, w.body(), "event: command.applied")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, b.ClientCount(), "client not cleaned up after disconnect")
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for range 70 {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe("")
	require.Equal(t, 1, b.ClientCount())

	b.Close()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "subscriber channel still open")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}
	assert.Equal(t, 0, b.ClientCount())

	// Should be safe no-op after close.
	b.Publish(Event{Type: "document.reloaded"})
	b.PublishChange("repay", "")
	b.Close()
}
