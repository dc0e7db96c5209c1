package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Recognised position report kinds.
const (
	TypePositionReport               = "PositionReport"
	TypeStandardClassBPositionReport = "StandardClassBPositionReport"
)

// Errors
var (
	ErrMalformed      = errors.New("malformed message")
	ErrMissingType    = errors.New("missing message type")
	ErrMissingPayload = errors.New("missing message payload")
	ErrServer         = errors.New("feed error")
)

// DefaultMessageTypes returns the message types the tracker subscribes to.
func DefaultMessageTypes() []string {
	return []string{TypePositionReport, TypeStandardClassBPositionReport}
}

// IsRecognized reports whether msgType is a position report kind the
// processor understands.
func IsRecognized(msgType string) bool {
	return msgType == TypePositionReport || msgType == TypeStandardClassBPositionReport
}

// BoundingBox is a pair of [lat, lon] corners.
type BoundingBox [2][2]float64

// GlobalBoundingBoxes covers the full latitude/longitude range.
func GlobalBoundingBoxes() []BoundingBox {
	return []BoundingBox{{{-90, -180}, {90, 180}}}
}

// SubscriptionRequest is sent once after each successful connect.
type SubscriptionRequest struct {
	APIKey             string        `json:"APIKey"`
	BoundingBoxes      []BoundingBox `json:"BoundingBoxes"`
	FiltersShipMMSI    []string      `json:"FiltersShipMMSI"`
	FilterMessageTypes []string      `json:"FilterMessageTypes"`
}

// NewSubscription builds a global subscription for the given vessels.
// Nil slices are sent as empty arrays.
func NewSubscription(apiKey string, mmsis, messageTypes []string) SubscriptionRequest {
	if mmsis == nil {
		mmsis = []string{}
	}
	if messageTypes == nil {
		messageTypes = []string{}
	}
	return SubscriptionRequest{
		APIKey:             apiKey,
		BoundingBoxes:      GlobalBoundingBoxes(),
		FiltersShipMMSI:    mmsis,
		FilterMessageTypes: messageTypes,
	}
}

// Identifier is an MMSI that may arrive as a JSON number or string.
type Identifier string

// UnmarshalJSON accepts numbers, strings and null.
func (id *Identifier) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = Identifier(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier: %w", err)
	}
	*id = Identifier(n.String())
	return nil
}

// MetaData is the envelope's metadata block.
type MetaData struct {
	MMSI      Identifier `json:"MMSI"`
	ShipName  string     `json:"ShipName"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	TimeUTC   string     `json:"time_utc"`
}

// PositionReport is the payload shared by Class A and Class B position
// reports. Class B reports never carry a navigational status.
type PositionReport struct {
	UserID             Identifier `json:"UserID"`
	Latitude           *float64   `json:"Latitude"`
	Longitude          *float64   `json:"Longitude"`
	Sog                *float64   `json:"Sog"`
	Cog                *float64   `json:"Cog"`
	TrueHeading        *int       `json:"TrueHeading"`
	NavigationalStatus *int       `json:"NavigationalStatus"`
}
