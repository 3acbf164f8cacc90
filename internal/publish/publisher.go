package publish

import (
	"fmt"
	"log"
	"sync/atomic"

	zmq "github.com/pebbe/zmq4"
)

// DrainBatch is the maximum number of ticks the publisher pulls off
// the queue per wake.
const DrainBatch = 1000

// sendHighWaterMark bounds the socket's outbound queue so a slow or
// absent subscriber can't grow unbounded kernel/libzmq buffers.
const sendHighWaterMark = 10000

// Publisher drains Queue and serializes each Tick as a JSON frame onto
// a ZeroMQ PUB socket in non-blocking mode, mirroring the PUSH/PULL
// wiring of a ZeroMQ exchange gateway but bound as PUB for
// fan-out subscribers matching on the empty topic filter.
type Publisher struct {
	queue *Queue

	ctx  *zmq.Context
	sock *zmq.Socket

	sentCount       atomic.Uint64
	transientErrors atomic.Uint64
}

// NewPublisher binds a PUB socket at endpoint and returns a Publisher
// that will drain queue once Run is called. A bind failure is
// ErrFatalSend: fatal to startup, not to the steady-state data path.
func NewPublisher(queue *Queue, endpoint string) (*Publisher, error) {
	ctx, err := zmq.NewContext()
	if err != nil {
		return nil, fmt.Errorf("publish: new context: %w", err)
	}

	sock, err := ctx.NewSocket(zmq.PUB)
	if err != nil {
		ctx.Term()
		return nil, fmt.Errorf("publish: new socket: %w", err)
	}
	if err := sock.SetSndhwm(sendHighWaterMark); err != nil {
		sock.Close()
		ctx.Term()
		return nil, fmt.Errorf("publish: set sndhwm: %w", err)
	}
	if err := sock.Bind(endpoint); err != nil {
		sock.Close()
		ctx.Term()
		return nil, fmt.Errorf("%w: bind %s: %v", ErrFatalSend, endpoint, err)
	}

	return &Publisher{queue: queue, ctx: ctx, sock: sock}, nil
}

// Run drains the queue until it is Closed and empty, sending each
// batch as individual non-blocking PUB frames. It returns once the
// queue's shutdown signal (a nil DrainUpTo) is observed; pending
// ticks not yet dequeued at that point are discarded, matching the
// spec's shutdown contract.
func (p *Publisher) Run() {
	for {
		ticks := p.queue.DrainUpTo(DrainBatch)
		if ticks == nil {
			return
		}
		for _, t := range ticks {
			data, err := t.Serialize()
			if err != nil {
				log.Printf("publish: serialize: %v", err)
				continue
			}
			if _, err := p.sock.SendBytes(data, zmq.DONTWAIT); err != nil {
				p.transientErrors.Add(1)
				continue
			}
			p.sentCount.Add(1)
		}
	}
}

// SentCount returns the running count of frames successfully sent.
func (p *Publisher) SentCount() uint64 { return p.sentCount.Load() }

// TransientErrors returns the running count of non-fatal send failures.
func (p *Publisher) TransientErrors() uint64 { return p.transientErrors.Load() }

// Close tears down the socket and context.
func (p *Publisher) Close() error {
	if err := p.sock.Close(); err != nil {
		return fmt.Errorf("publish: close socket: %w", err)
	}
	return p.ctx.Term()
}
