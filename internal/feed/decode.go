package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is a decoded inbound message. The payload block stays raw until
// Report is called.
type Envelope struct {
	MessageType string          `json:"MessageType"`
	MetaData    MetaData        `json:"MetaData"`
	Message     json.RawMessage `json:"Message"`
	Error       string          `json:"error"` // Set by the server instead of MessageType
}

// Decode parses the envelope of an inbound message.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.MessageType == "" {
		if env.Error != "" {
			return Envelope{}, fmt.Errorf("%w: %s", ErrServer, env.Error)
		}
		return Envelope{}, ErrMissingType
	}
	return env, nil
}

// VesselID returns the MMSI from the metadata block.
func (e Envelope) VesselID() string {
	return string(e.MetaData.MMSI)
}

// Recognized reports whether the envelope carries a known position report.
func (e Envelope) Recognized() bool {
	return IsRecognized(e.MessageType)
}

// Report decodes the type-keyed payload. A missing "Message" block or a
// missing entry for the message type yields ErrMissingPayload; payloads of
// the wrong shape yield ErrMalformed.
func (e Envelope) Report() (PositionReport, error) {
	if isEmpty(e.Message) {
		return PositionReport{}, ErrMissingPayload
	}

	var blocks map[string]json.RawMessage
	if err := json.Unmarshal(e.Message, &blocks); err != nil {
		return PositionReport{}, fmt.Errorf("%w: message block: %v", ErrMalformed, err)
	}

	body, ok := blocks[e.MessageType]
	if !ok || isEmpty(body) {
		return PositionReport{}, ErrMissingPayload
	}

	var report PositionReport
	if err := json.Unmarshal(body, &report); err != nil {
		return PositionReport{}, fmt.Errorf("%w: %s payload: %v", ErrMalformed, e.MessageType, err)
	}
	return report, nil
}

func isEmpty(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
