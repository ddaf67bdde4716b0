package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"feedsync/internal/models"
	"feedsync/internal/structures"
	"feedsync/internal/testutil"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu            sync.Mutex
	events        []models.StreamEvent
	notifications []models.Notification
	got           chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{got: make(chan struct{}, 16)}
}

func (r *recordingSink) Apply(event models.StreamEvent) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *recordingSink) Receive(_ context.Context, n models.Notification) {
	r.mu.Lock()
	r.notifications = append(r.notifications, n)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *recordingSink) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i+1)
		}
	}
}

func envelope(t *testing.T, event, payload string) []byte {
	t.Helper()
	data, err := json.Marshal(streamEnvelope{Stream: []string{"user"}, Event: event, Payload: payload})
	require.NoError(t, err)
	return data
}

func streamServer(t *testing.T, messages [][]byte, authorization chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authorization != nil {
			select {
			case authorization <- r.Header.Get("Authorization"):
			default:
			}
		}
		if r.URL.Path != streamingPath || r.URL.Query().Get("stream") != "user" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, m); err != nil {
				return
			}
		}
		// hold the session open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func streamConfig(url string) *structures.Config {
	return &structures.Config{
		Account: structures.AccountConfig{Server: "example.social", Token: "secret", StreamingURL: url},
		Stream:  structures.StreamConfig{Enabled: true, ReconnectDelay: 10 * time.Millisecond},
	}
}

func TestStreamClient_DispatchesEvents(t *testing.T) {
	messages := [][]byte{
		envelope(t, "update", `{"id":"5","account":{"id":"me"},"created_at":"2024-06-15T10:00:00Z"}`),
		envelope(t, "status.update", `{"id":"4","account":{"id":"me"},"created_at":"2024-06-15T09:00:00Z","edited_at":"2024-06-15T09:30:00Z"}`),
		envelope(t, "delete", "3"),
		envelope(t, "notification", `{"id":"77","type":"mention","created_at":"2024-06-15T10:00:00Z","account":{"id":"u1"},"status":{"id":"5","account":{"id":"me"},"created_at":"2024-06-15T10:00:00Z"}}`),
		envelope(t, "filters_changed", ""),
	}
	auth := make(chan string, 1)
	srv := streamServer(t, messages, auth)
	defer srv.Close()

	sink := newRecordingSink()
	metrics := testutil.NewMockMetrics()
	client := NewStreamClient(streamConfig(srv.URL), sink, sink, &testutil.MockLogger{}, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		client.Run(ctx)
		close(done)
	}()

	sink.wait(t, 4)
	assert.True(t, client.Connected())
	cancel()
	<-done
	assert.False(t, client.Connected())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 3)
	assert.Equal(t, models.EventCreate, sink.events[0].Kind)
	assert.Equal(t, "5", sink.events[0].Post.ID)
	assert.Equal(t, models.EventEdit, sink.events[1].Kind)
	require.NotNil(t, sink.events[1].Post.EditedAt)
	assert.Equal(t, models.DeleteEvent("3"), sink.events[2])

	require.Len(t, sink.notifications, 1)
	assert.Equal(t, models.NotificationMention, sink.notifications[0].Type)
	assert.Equal(t, "5", sink.notifications[0].StatusID)
	assert.Equal(t, 1, metrics.StreamEvents["notification"])
	assert.Equal(t, "Bearer secret", <-auth)
}

func TestStreamClient_SkipsMalformedMessages(t *testing.T) {
	messages := [][]byte{
		[]byte("not json"),
		envelope(t, "update", "{broken"),
		envelope(t, "delete", "9"),
	}
	srv := streamServer(t, messages, nil)
	defer srv.Close()

	sink := newRecordingSink()
	logger := &testutil.MockLogger{}
	client := NewStreamClient(streamConfig(srv.URL), sink, sink, logger, testutil.NewMockMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	sink.wait(t, 1)
	sink.mu.Lock()
	assert.Equal(t, []models.StreamEvent{models.DeleteEvent("9")}, sink.events)
	sink.mu.Unlock()
	assert.Equal(t, 2, logger.Count("warn"))
}

func TestStreamClient_ReconnectsAfterDrop(t *testing.T) {
	var mu sync.Mutex
	sessions := 0
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		sessions++
		id := sessions
		mu.Unlock()
		_ = conn.WriteMessage(websocket.TextMessage, envelope(t, "delete", strings.Repeat("x", id)))
		// first session drops right away
		if id == 1 {
			_ = conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	sink := newRecordingSink()
	client := NewStreamClient(streamConfig(srv.URL), sink, sink, &testutil.MockLogger{}, testutil.NewMockMetrics())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	sink.wait(t, 2)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, "x", sink.events[0].PostID)
	assert.Equal(t, "xx", sink.events[1].PostID)
}

func TestStreamClient_RunReturnsWhenCancelledWhileDisconnected(t *testing.T) {
	conf := streamConfig("http://127.0.0.1:1")
	conf.Stream.ReconnectDelay = time.Hour
	client := NewStreamClient(conf, newRecordingSink(), newRecordingSink(), &testutil.MockLogger{}, testutil.NewMockMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		client.Run(ctx)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, client.Connected())
}

func TestStreamingURL(t *testing.T) {
	assert.Equal(t, "wss://example.social/api/v1/streaming?stream=user",
		streamingURL(structures.AccountConfig{Server: "example.social"}))
	assert.Equal(t, "ws://localhost:3000/api/v1/streaming?stream=user",
		streamingURL(structures.AccountConfig{Server: "x", BaseURL: "http://localhost:3000/"}))
	assert.Equal(t, "wss://stream.example/api/v1/streaming?stream=user",
		streamingURL(structures.AccountConfig{Server: "x", BaseURL: "https://api.example", StreamingURL: "wss://stream.example"}))
}
