package events

import (
	"github.com/nats-io/nats.go"
	"github.com/tabia/api/internal/instance"
)

type Options struct {
	URL  string
	Name string
}

type inst struct {
	nc *nats.Conn
}

// New connects to the broker backing the event bridge. Publishing is
// fire-and-forget; the in-process dispatcher remains the source of
// truth for connected clients.
func New(opt Options) (instance.Events, error) {
	nc, err := nats.Connect(opt.URL,
		nats.Name(opt.Name),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, err
	}

	return &inst{nc: nc}, nil
}

func (i *inst) Publish(subject string, payload []byte) error {
	return i.nc.Publish(subject, payload)
}

func (i *inst) Connected() bool {
	return i.nc.IsConnected()
}

func (i *inst) Close() {
	i.nc.Close()
}
