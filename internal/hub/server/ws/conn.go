package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/internal/hub/core/model"
	"buswatch.io/buswatch/internal/hub/core/service"
	"buswatch.io/buswatch/internal/hub/registry"
	"buswatch.io/buswatch/internal/pkg/metrics"
	"buswatch.io/buswatch/pkg/log"
	"buswatch.io/buswatch/pkg/options"
)

// errSendFull is returned by Enqueue when the outbound buffer is full. The
// caller treats the connection as too slow to keep and drops it.
var errSendFull = errors.New("outbound buffer full")

var errConnClosed = errors.New("connection closed")

// Conn is one authenticated WebSocket connection. It owns a single read
// loop and a single write pump; all outbound traffic flows through the
// buffered send channel so that fan-out never blocks on a slow peer.
type Conn struct {
	id       string
	identity model.Identity

	ws   *websocket.Conn
	send chan outbound
	done chan struct{}

	svc  *service.Service
	reg  *registry.Registry
	opts *options.GatewayOptions
	log  log.Logger

	closeOnce sync.Once
}

func newConn(id string, identity model.Identity, ws *websocket.Conn, svc *service.Service, reg *registry.Registry, opts *options.GatewayOptions, logger log.Logger) *Conn {
	return &Conn{
		id:       id,
		identity: identity,
		ws:       ws,
		send:     make(chan outbound, opts.SendBuffer),
		done:     make(chan struct{}),
		svc:      svc,
		reg:      reg,
		opts:     opts,
		log:      logger.WithValues("conn", id, "subject", identity.SubjectID),
	}
}

// ID implements registry.Subscriber.
func (c *Conn) ID() string { return c.id }

// Closed implements registry.Subscriber. The done channel is closed
// before the registry release, so the registry can always tell a live
// connection from one mid-teardown.
func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Enqueue implements registry.Subscriber. It never blocks: when the buffer
// is full the message is refused and the registry drops the subscriber.
func (c *Conn) Enqueue(msg any) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	var frame outbound
	switch m := msg.(type) {
	case *model.LocationBroadcast:
		frame = broadcastFrame(m)
	case outbound:
		frame = m
	default:
		return fmt.Errorf("unsupported message type %T", msg)
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return errSendFull
	}
}

// Shutdown implements registry.Subscriber. It is safe to call from any
// goroutine and any number of times.
func (c *Conn) Shutdown(reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.reg.ReleaseConn(c.id)
		metrics.ConnectionsActive.Dec()
		_ = c.ws.Close()
		c.log.Info("connection closed", "reason", reason)
	})
}

// reply queues a frame for the connection's own traffic (acks, errors).
// Unlike fan-out, a full buffer here just drops the frame with a warning;
// closing the peer over its own ack would be worse than losing it.
func (c *Conn) reply(frame outbound) {
	select {
	case c.send <- frame:
	default:
		c.log.Warn("dropping reply, outbound buffer full", "type", frame.Type)
	}
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with periodic pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.ws.WriteJSON(frame); err != nil {
				c.Shutdown("write failed: " + err.Error())
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Shutdown("ping failed: " + err.Error())
				return
			}
		}
	}
}

// readLoop dispatches inbound frames until the peer goes away. Publishes
// run inline so a single connection's updates stay ordered.
func (c *Conn) readLoop(ctx context.Context) {
	defer c.Shutdown("read loop exited")

	c.ws.SetReadLimit(c.opts.MaxMessageBytes)

	pongWait := c.opts.PingInterval + c.opts.WriteTimeout
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.reply(errorFrame(core.ReasonInvalidPayload, "malformed message"))
			continue
		}
		c.dispatch(ctx, &env)
	}
}

func (c *Conn) dispatch(ctx context.Context, env *envelope) {
	switch env.Type {
	case model.TypeSubscribe:
		if env.VehicleID == "" {
			c.reply(errorFrame(core.ReasonInvalidPayload, "vehicleId is required"))
			return
		}
		c.reg.Subscribe(env.VehicleID, c)

	case model.TypeUnsubscribe:
		if env.VehicleID == "" {
			c.reply(errorFrame(core.ReasonInvalidPayload, "vehicleId is required"))
			return
		}
		c.reg.Unsubscribe(env.VehicleID, c.id)

	case model.TypePublishLocation:
		var claim model.LocationClaim
		if err := json.Unmarshal(env.Data, &claim); err != nil {
			c.reply(errorFrame(core.ReasonInvalidPayload, "malformed location payload"))
			return
		}
		// The update must survive the peer hanging up mid-write, so the
		// pipeline runs detached from the connection's lifetime.
		ack, err := c.svc.Publish(context.WithoutCancel(ctx), c.identity, &claim)
		if err != nil {
			c.reply(errorFrame(core.ReasonOf(err), err.Error()))
			return
		}
		c.reply(ackFrame(ack))

	default:
		c.reply(errorFrame(core.ReasonInvalidPayload, "unknown message type: "+env.Type))
	}
}
