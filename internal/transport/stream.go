package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"feedsync/internal/models"
	"feedsync/internal/providers"
	"feedsync/internal/structures"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
)

const streamingPath = "/api/v1/streaming"

// PostSink receives live mutations of the post feed.
type PostSink interface {
	Apply(event models.StreamEvent)
}

// NotificationSink receives live notifications.
type NotificationSink interface {
	Receive(ctx context.Context, n models.Notification)
}

type StreamClientInterface interface {
	Run(ctx context.Context)
	Connected() bool
}

type streamEnvelope struct {
	Stream  []string `json:"stream"`
	Event   string   `json:"event"`
	Payload string   `json:"payload"`
}

// StreamClient follows the user stream and forwards events until its
// context ends, reconnecting after every dropped session.
type StreamClient struct {
	url            string
	header         http.Header
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
	posts          PostSink
	notifications  NotificationSink
	logger         providers.Logger
	metrics        providers.MetricsProviderInterface
	connected      *atomic.Bool
}

func NewStreamClient(conf *structures.Config, posts PostSink, notifications NotificationSink, logger providers.Logger, metrics providers.MetricsProviderInterface) *StreamClient {
	header := http.Header{}
	if conf.Account.Token != "" {
		header.Set("Authorization", "Bearer "+conf.Account.Token)
	}
	delay := conf.Stream.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	return &StreamClient{
		url:            streamingURL(conf.Account),
		header:         header,
		dialer:         &websocket.Dialer{HandshakeTimeout: 15 * time.Second},
		reconnectDelay: delay,
		posts:          posts,
		notifications:  notifications,
		logger:         logger,
		metrics:        metrics,
		connected:      atomic.NewBool(false),
	}
}

func streamingURL(account structures.AccountConfig) string {
	base := strings.TrimRight(strings.TrimSpace(account.StreamingURL), "/")
	if base == "" {
		base = strings.TrimRight(strings.TrimSpace(account.BaseURL), "/")
	}
	if base == "" {
		base = "https://" + account.Server
	}
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + streamingPath + "?" + url.Values{"stream": {"user"}}.Encode()
}

func (s *StreamClient) Connected() bool {
	return s.connected.Load()
}

// Run blocks until ctx is done.
func (s *StreamClient) Run(ctx context.Context) {
	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return
		}
		s.logger.Warnf(providers.TypeStream, "stream dropped, reconnecting in %s: %s", s.reconnectDelay, err)

		timer := time.NewTimer(s.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *StreamClient) session(ctx context.Context) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial stream: status=%d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial stream: %w", err)
	}
	s.connected.Store(true)
	s.logger.Infof(providers.TypeStream, "connected to %s", s.url)

	done := make(chan struct{})
	defer func() {
		close(done)
		s.connected.Store(false)
		_ = conn.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("stream closed by server")
			}
			return fmt.Errorf("read stream: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if err := s.dispatch(ctx, data); err != nil {
			s.logger.Warnf(providers.TypeStream, "skipping stream message: %s", err)
		}
	}
}

func (s *StreamClient) dispatch(ctx context.Context, data []byte) error {
	var env streamEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Event {
	case "update":
		p, err := decodeStatus([]byte(env.Payload))
		if err != nil {
			return fmt.Errorf("decode update: %w", err)
		}
		s.posts.Apply(models.CreateEvent(p))
	case "status.update":
		p, err := decodeStatus([]byte(env.Payload))
		if err != nil {
			return fmt.Errorf("decode status.update: %w", err)
		}
		s.posts.Apply(models.EditEvent(p))
	case "delete":
		if env.Payload == "" {
			return fmt.Errorf("delete without id")
		}
		s.posts.Apply(models.DeleteEvent(env.Payload))
	case "notification":
		n, err := decodeNotification([]byte(env.Payload))
		if err != nil {
			return fmt.Errorf("decode notification: %w", err)
		}
		s.metrics.IncStreamEvents("notification")
		s.notifications.Receive(ctx, n)
	default:
		s.logger.Debugf(providers.TypeStream, "ignoring stream event %q", env.Event)
	}
	return nil
}
