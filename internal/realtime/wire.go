package realtime

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/tabia/api/data/events"
	"github.com/tabia/api/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ClientMessage is an inbound frame. The address selects the
// operation, e.g. "session/<id>" to subscribe or
// "session/<id>/add-tab" to issue a command; the body carries the
// operation's payload.
type ClientMessage struct {
	Address string              `json:"address"`
	Body    jsoniter.RawMessage `json:"body,omitempty"`
}

// ServerMessage is an outbound frame: either a broadcast delivered on
// a topic, or an error addressed to the issuing connection only.
type ServerMessage struct {
	Topic string              `json:"topic,omitempty"`
	Data  jsoniter.RawMessage `json:"data,omitempty"`
	Error *ErrorPayload       `json:"error,omitempty"`
}

type ErrorPayload struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Address string        `json:"address,omitempty"`
	Fields  errors.Fields `json:"fields,omitempty"`
}

func encodeBroadcast(u events.Update) ([]byte, error) {
	data, err := events.Marshal(u)
	if err != nil {
		return nil, err
	}

	return json.Marshal(ServerMessage{
		Topic: u.Topic(),
		Data:  data,
	})
}

func encodeError(address string, apiErr errors.APIError) []byte {
	b, _ := json.Marshal(ServerMessage{
		Error: &ErrorPayload{
			Code:    apiErr.Code(),
			Message: apiErr.Message(),
			Address: address,
			Fields:  apiErr.GetFields(),
		},
	})

	return b
}
