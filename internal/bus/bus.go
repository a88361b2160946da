package bus

import "context"

const defaultBufferSize = 256

// MessageBus is a bounded in-process pub/sub connecting channel
// adapters to the agent runtime.
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage
}

// New creates a MessageBus with the given buffer size; 0 uses the default.
func New(bufferSize int) *MessageBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &MessageBus{
		inbound:  make(chan InboundMessage, bufferSize),
		outbound: make(chan OutboundMessage, bufferSize),
	}
}

// PublishInbound enqueues a message from a channel adapter; it drops
// the message rather than blocking the adapter's read loop if the
// buffer is full.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	select {
	case b.inbound <- msg:
	default:
	}
}

// ConsumeInbound blocks until a message is available or ctx is done.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg := <-b.inbound:
		return msg, true
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

// PublishOutbound enqueues a message for delivery by a channel adapter.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	select {
	case b.outbound <- msg:
	default:
	}
}

// SubscribeOutbound blocks until a message is available or ctx is done.
func (b *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case msg := <-b.outbound:
		return msg, true
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}

var _ MessageRouter = (*MessageBus)(nil)
