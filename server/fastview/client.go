package fastview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	pingResolution = 5 * time.Second
	// The number of pings to tolerate losing before concluding the peer is gone.
	pongWait = pingResolution * 4
)

var upgrader = websocket.Upgrader{}

// Encoder turns an update into a websocket message and its message type.
type Encoder[T any] func(T) (messageType int, msg []byte, err error)

// Receiver handles one message read from the peer. A returned error tears the client down.
type Receiver func(ctx context.Context, messageType int, msg []byte) error

// JSONEncoder writes updates as json text messages.
func JSONEncoder[T any](update T) (int, []byte, error) {
	msg, err := json.Marshal(update)
	return websocket.TextMessage, msg, err
}

// Client publishes updates to a web client over a websocket and hands messages read from the
// peer to a Receiver. Updates are never dropped here; throttling belongs upstream.
type Client[T any] struct {
	id      string
	updates <-chan T
	encode  Encoder[T]
	receive Receiver
	ws      *websock
	pong    chan struct{}
	rootCtx context.Context
}

// NewClient upgrades the request to a websocket. Items from updates are encoded and written in
// order; receive may be nil, in which case peer messages are read and discarded.
func NewClient[T any](
	id string,
	updates <-chan T,
	encode Encoder[T],
	receive Receiver,
	w http.ResponseWriter,
	r *http.Request,
) (*Client[T], error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the peer.
		return nil, err
	}
	ws.SetReadLimit(maxMessageSize)

	if receive == nil {
		receive = func(context.Context, int, []byte) error { return nil }
	}
	pong := make(chan struct{}, 1)
	ws.SetPongHandler(func(_ string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	return &Client[T]{
		id:      id,
		updates: updates,
		encode:  encode,
		receive: receive,
		ws:      NewWebSocket(ws),
		pong:    pong,
		rootCtx: r.Context(),
	}, nil
}

// Sync runs the client until the peer disconnects, the request context is cancelled or an
// unexpected error occurs; only the last is returned. The websocket is closed on return.
func (cli *Client[T]) Sync() error {
	group, groupCtx := errgroup.WithContext(cli.rootCtx)

	group.Go(func() error {
		return cli.readMessages(groupCtx)
	})
	group.Go(func() error {
		return cli.pingPong(groupCtx)
	})
	group.Go(func() error {
		return cli.publish(groupCtx)
	})
	group.Go(func() error {
		// A blocked ReadMessage only returns once the connection is closed.
		<-groupCtx.Done()
		cli.ws.Close()
		return nil
	})

	err := group.Wait()
	if errors.Is(err, errPeerClosed) {
		err = nil
	}
	log.WithFields(log.Fields{"client": cli.id, "error": err}).Debug("client sync finished")
	return err
}

var (
	ErrPongDeadlineExceeded = errors.New("client disconnect, pong deadline exceeded")
	// errPeerClosed ends Sync when the peer closes normally.
	errPeerClosed = errors.New("peer closed")
)

// pingPong runs the liveness check. It relies on readMessages running, since pong handlers are
// only called from within reads.
func (cli *Client[T]) pingPong(ctx context.Context) error {
	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}

			if err := cli.ping(ctx); err != nil {
				return err
			}
		case <-cli.pong:
			lastPong = time.Now()
		}
	}
}

func (cli *Client[T]) ping(ctx context.Context) error {
	return cli.ws.Write(
		ctx,
		func(ws *websocket.Conn) (err error) {
			if err = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				err = fmt.Errorf("ping failed: %w", err)
			}
			return
		})
}

// readMessages passes every message from the peer to the receiver.
// Errors returned by websocket Read methods are permanent, hence any error
// must trigger full teardown.
func (cli *Client[T]) readMessages(ctx context.Context) error {
	for {
		var (
			messageType int
			msg         []byte
		)
		err := cli.ws.Read(
			ctx,
			func(ws *websocket.Conn) (readErr error) {
				messageType, msg, readErr = ws.ReadMessage()
				return
			})
		switch {
		case ctx.Err() != nil:
			return nil
		case isClosure(err):
			return errPeerClosed
		case err != nil:
			return err
		}

		if err = cli.receive(ctx, messageType, msg); err != nil {
			return err
		}
	}
}

func (cli *Client[T]) publish(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-cli.updates:
			// Graceful input channel closure
			if !ok {
				return nil
			}

			messageType, msg, err := cli.encode(update)
			if err != nil {
				return fmt.Errorf("encode failed: %w", err)
			}

			err = cli.ws.Write(
				ctx,
				func(ws *websocket.Conn) (writeErr error) {
					if writeErr = ws.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
						writeErr = fmt.Errorf("failed to set deadline: %w", writeErr)
						return
					}

					if writeErr = ws.WriteMessage(messageType, msg); writeErr != nil {
						writeErr = fmt.Errorf("publish failed: %w", writeErr)
					}
					return
				})
			if err != nil {
				return err
			}
		}
	}
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived)
}

// ErrSockCongestion indicates there are too many waiters on the socket for a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

const (
	writeDeadline = time.Second
)

// websock serializes reads and writes to the websocket, which allows at most one concurrent
// reader and one concurrent writer.
type websock struct {
	// These are merely mutexes, but channel semantics are cleaner.
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func NewWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

// Close sends a close frame if the writer is free and closes the connection, which unblocks
// any pending read.
func (sock *websock) Close() {
	select {
	case sock.writeSem <- struct{}{}:
		_ = sock.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		<-sock.writeSem
	case <-time.After(writeDeadline):
	}
	sock.ws.Close()
}

// Read serializes read operations on the internal web socket. Reads wait for a message, so
// unlike writes they have no congestion deadline.
func (sock *websock) Read(
	ctx context.Context,
	readFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	}
}

// Write serializes write operations to the websocket.
func (sock *websock) Write(
	ctx context.Context,
	writeFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}
