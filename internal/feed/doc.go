// Package feed defines the wire formats of the AIS stream.
//
// Outbound: one SubscriptionRequest per connection, carrying the API key,
// bounding boxes, the MMSI filter list and the accepted message types.
//
// Inbound: one JSON envelope per push:
//
//	{
//	  "MessageType": "PositionReport",
//	  "MetaData": {"MMSI": 319113100, "ShipName": "ECLIPSE", "time_utc": "..."},
//	  "Message": {"PositionReport": {"Latitude": 43.5, "Longitude": 7.0, ...}}
//	}
//
// Decoding is staged so the caller can act on the message type and vessel
// identifier before the type-specific payload is parsed.
package feed
