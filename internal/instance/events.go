package instance

// Events mirrors dispatched updates onto an external broker so that
// services outside this process (mobile push, audit, analytics) can
// consume them without holding a websocket.
type Events interface {
	Publish(subject string, payload []byte) error
	Connected() bool
	Close()
}
