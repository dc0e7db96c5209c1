package archive

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/vessel-tracker/internal/model"
)

// positionNamespace scopes position ids to this tracker.
var positionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/rickgao/vessel-tracker/positions"))

// Row is one archived position report.
type Row struct {
	PositionID  uuid.UUID
	MMSI        string
	VesselName  string
	MessageType string
	Latitude    float64
	Longitude   float64
	Speed       *float64
	Course      *float64
	NavStatus   *int
	ObservedAt  string
	ReceivedAt  time.Time
}

// RowFromEvent converts an accepted update into a row.
func RowFromEvent(ev model.StatusEvent) Row {
	u := ev.Update
	return Row{
		PositionID:  PositionID(ev.VesselID, u.ObservedAt, u.Position),
		MMSI:        ev.VesselID,
		VesselName:  ev.Name,
		MessageType: ev.MessageType,
		Latitude:    u.Position.Lat,
		Longitude:   u.Position.Lon,
		Speed:       u.SpeedOverGround,
		Course:      u.CourseOverGround,
		NavStatus:   u.NavStatus,
		ObservedAt:  u.ObservedAt,
		ReceivedAt:  ev.ReceivedAt.UTC(),
	}
}

// PositionID is a name-based UUID over vessel, observation time and
// position. The same report delivered twice yields the same id.
func PositionID(mmsi, observedAt string, pos model.Position) uuid.UUID {
	name := make([]byte, 0, 64)
	name = append(name, mmsi...)
	name = append(name, '|')
	name = append(name, observedAt...)
	name = append(name, '|')
	name = strconv.AppendFloat(name, pos.Lat, 'f', 6, 64)
	name = append(name, '|')
	name = strconv.AppendFloat(name, pos.Lon, 'f', 6, 64)
	return uuid.NewSHA1(positionNamespace, name)
}
