package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// recordSeparator terminates every JSON hub protocol record. One WebSocket
// frame may carry several records.
const recordSeparator = 0x1E

type messageType int

const (
	typeInvocation       messageType = 1
	typeStreamItem       messageType = 2
	typeCompletion       messageType = 3
	typeStreamInvocation messageType = 4
	typeCancelInvocation messageType = 5
	typePing             messageType = 6
	typeClose            messageType = 7
)

type handshakeRequest struct {
	Protocol string `json:"protocol"`
	Version  int    `json:"version"`
}

type handshakeResponse struct {
	Error string `json:"error,omitempty"`
}

var handshake = handshakeRequest{Protocol: "json", Version: 1}

// outMessage is an invocation written by the client. Arguments is always
// sent, as an empty array for methods without parameters.
type outMessage struct {
	Type         messageType `json:"type"`
	InvocationID string      `json:"invocationId,omitempty"`
	Target       string      `json:"target"`
	Arguments    []any       `json:"arguments"`
}

type pingMessage struct {
	Type messageType `json:"type"`
}

// inMessage is what the server sends. Fields not used by a given type are
// left empty.
type inMessage struct {
	Type           messageType       `json:"type"`
	InvocationID   string            `json:"invocationId,omitempty"`
	Target         string            `json:"target,omitempty"`
	Arguments      []json.RawMessage `json:"arguments,omitempty"`
	Result         json.RawMessage   `json:"result,omitempty"`
	Error          string            `json:"error,omitempty"`
	AllowReconnect bool              `json:"allowReconnect,omitempty"`
}

func encodeRecord(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, recordSeparator), nil
}

// splitRecords returns the records in data without their separators. A
// trailing fragment with no separator is dropped.
func splitRecords(data []byte) [][]byte {
	var records [][]byte
	for {
		i := bytes.IndexByte(data, recordSeparator)
		if i < 0 {
			return records
		}
		if i > 0 {
			records = append(records, data[:i])
		}
		data = data[i+1:]
	}
}

func decodeMessage(record []byte) (inMessage, error) {
	var m inMessage
	if err := json.Unmarshal(record, &m); err != nil {
		return m, fmt.Errorf("decode hub message: %w", err)
	}
	return m, nil
}
