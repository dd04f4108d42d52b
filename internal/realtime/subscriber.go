package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const handshakeTimeout = 10 * time.Second

// Subscription is a live push channel. Handlers run sequentially on the
// subscription's reader goroutine and must not call Close.
type Subscription struct {
	conn     *websocket.Conn
	cancel   context.CancelFunc
	done     chan struct{}
	closing  chan struct{}
	once     sync.Once
	mu       sync.Mutex
	err      error
	handlers Handlers
}

// Subscribe opens the push channel at url and delivers every valid event to
// h until the context is cancelled, Close is called, or the transport drops.
// There is no reconnect: after a drop the caller's list is stale until it
// fetches again.
func Subscribe(ctx context.Context, url string, h Handlers) (*Subscription, error) {
	dialer := websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: handshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Debug("closing handshake body", "err", cerr)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to change feed: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		conn:     conn,
		cancel:   cancel,
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
		handlers: h,
	}

	go s.read()
	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		if err := s.shutdown(); err != nil {
			slog.Debug("closing change feed", "err", err)
		}
		cancel()
	}()

	return s, nil
}

// Done is closed when the subscription ends for any reason.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the transport error that ended the subscription, or nil if it
// was closed by the caller or is still running.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close releases the connection and waits for the reader to exit.
// It is safe to call more than once.
func (s *Subscription) Close() error {
	s.cancel()
	err := s.shutdown()
	<-s.done
	return err
}

func (s *Subscription) shutdown() error {
	var err error
	s.once.Do(func() {
		close(s.closing)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if werr := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); werr != nil {
			slog.Debug("writing close frame", "err", werr)
		}
		err = s.conn.Close()
	})
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Subscription) read() {
	defer close(s.done)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closing:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					s.mu.Lock()
					s.err = err
					s.mu.Unlock()
				}
				slog.Warn("change feed lost", "err", err)
			}
			return
		}

		ev, err := Decode(data)
		if err != nil {
			slog.Warn("ignoring change event", "err", err)
			continue
		}
		slog.Debug("change event", "kind", ev.Kind(), "id", ev.CommentID())
		s.handlers.Dispatch(ev)
	}
}
