package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a statement. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS vessel_positions (
		position_id        UUID PRIMARY KEY,
		mmsi               TEXT NOT NULL,
		vessel_name        TEXT NOT NULL,
		message_type       TEXT NOT NULL,
		latitude           DOUBLE PRECISION NOT NULL,
		longitude          DOUBLE PRECISION NOT NULL,
		speed_over_ground  DOUBLE PRECISION,
		course_over_ground DOUBLE PRECISION,
		nav_status         SMALLINT,
		observed_at        TEXT NOT NULL,
		received_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS vessel_positions_mmsi_received_at_idx
		ON vessel_positions (mmsi, received_at DESC)`,
}

// EnsureSchema creates the archive table and index if missing.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure archive schema: %w", err)
		}
	}
	return nil
}
