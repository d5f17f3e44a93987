package hub

import "github.com/gofiber/websocket/v2"

// MessageType is the kind of payload a hub carries
type MessageType int

const (
	JSONMessage   MessageType = iota // status updates
	BinaryMessage                   // JPEG preview frames
)

// Message is one payload queued for every client of a hub
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps already encoded JSON
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps a binary payload such as a JPEG frame
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// EncodeJSON marshals v into a JSON message
func EncodeJSON(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}

// frameType is the websocket opcode used to send m
func (m Message) frameType() int {
	if m.Type == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
