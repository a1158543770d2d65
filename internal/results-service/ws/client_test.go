package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/megasena-tracker/internal/results-service/dto"
)

func TestWatcher_ReceivesSubscribedTopic(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true }, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	got := make(chan dto.ContestResult, 1)
	w := &Watcher{
		URL:        "ws" + strings.TrimPrefix(srv.URL, "http"),
		Topics:     []string{TopicContests},
		RetryDelay: 10 * time.Millisecond,
		Handle: func(raw json.RawMessage, topic string) {
			var r dto.ContestResult
			if json.Unmarshal(raw, &r) == nil {
				got <- r
			}
		},
	}
	require.NoError(t, w.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return hub.Subscribers(TopicContests) == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Broadcast(Update{Topic: TopicContests, Payload: dto.ContestResult{ContestNumber: 2871}})

	select {
	case r := <-got:
		assert.Equal(t, 2871, r.ContestNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("update not received")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_ValidateRequiresTopics(t *testing.T) {
	assert.ErrorIs(t, (&Watcher{}).Validate(), ErrNoTopics)
}
