package present

import (
	"encoding/json"
	"errors"
	log "log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vecna/internal/loop"
)

var errBusDown = errors.New("bus disconnected")

type BusMessage struct {
	From    string    `json:"from"`
	To      string    `json:"to"`
	Kind    string    `json:"kind"`
	Role    string    `json:"role,omitempty"`
	Content string    `json:"content"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

// Bus mirrors events to a websocket hub so a remote UI can follow along.
// A dropped connection is redialled in the background, at most once per
// retry interval; events written while it is down are dropped.
type Bus struct {
	url    string
	dialer *websocket.Dialer
	from   string
	to     string
	retry  time.Duration
	log    *log.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	dialing   bool
	closed    bool
	nextRetry time.Time
}

func NewBus(wsURL, from, to string, logger *log.Logger) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	b := &Bus{
		url:    u.String(),
		dialer: &websocket.Dialer{HandshakeTimeout: 2 * time.Second},
		from:   from,
		to:     to,
		retry:  5 * time.Second,
		log:    logger,
	}
	conn, _, err := b.dialer.Dial(b.url, nil)
	if err != nil {
		return nil, err
	}
	b.conn = conn

	logger.Info("Connected to bus", "url", wsURL)
	return b, nil
}

func (b *Bus) redial() {
	conn, _, err := b.dialer.Dial(b.url, nil)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.dialing = false

	switch {
	case err != nil:
		b.nextRetry = time.Now().Add(b.retry)
		b.log.Debug("Bus redial failed", "url", b.url, "err", err)
	case b.closed:
		conn.Close()
	default:
		b.conn = conn
		b.log.Info("Reconnected to bus", "url", b.url)
	}
}

func (b *Bus) Apply(ev loop.Event) {
	m := BusMessage{From: b.from, To: b.to, At: ev.When()}

	switch e := ev.(type) {
	case loop.StatusChanged:
		m.Kind = "status"
		m.Content = e.Status.String()
		m.Detail = e.Detail
	case loop.TranscriptLine:
		m.Kind = "transcript"
		m.Role = string(e.Role)
		m.Content = e.Text
	default:
		return
	}

	if err := b.Write(&m); err != nil {
		b.log.Warn("Failed to publish to bus", "kind", m.Kind, "err", err)
	}
}

// Write never dials on the caller's goroutine.
func (b *Bus) Write(m *BusMessage) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		if !b.closed && !b.dialing && !time.Now().Before(b.nextRetry) {
			b.dialing = true
			go b.redial()
		}
		return errBusDown
	}

	_ = b.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		b.conn.Close()
		b.conn = nil
		return err
	}
	return nil
}

func (b *Bus) connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.conn == nil {
		return nil
	}
	_ = b.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "offline"))
	err := b.conn.Close()
	b.conn = nil
	return err
}
