package syncclient

// Transport is the line-framed message bus the client speaks over.
// Send is fire-and-forget: the client does not block waiting for
// delivery, and reconnection, backoff, and framing are the transport's
// concern, not the client's. Inbound lines are delivered to
// Client.HandleLine by the transport's read loop.
type Transport interface {
	Send(line string) error
}
