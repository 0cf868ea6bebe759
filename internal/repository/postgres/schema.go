package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS trips (
	id                    TEXT PRIMARY KEY,
	shipper_id            TEXT NOT NULL,
	traveler_id           TEXT,
	status                TEXT NOT NULL,
	origin_lat            DOUBLE PRECISION NOT NULL,
	origin_lng            DOUBLE PRECISION NOT NULL,
	origin_address        TEXT NOT NULL DEFAULT '',
	dest_lat              DOUBLE PRECISION NOT NULL,
	dest_lng              DOUBLE PRECISION NOT NULL,
	dest_address          TEXT NOT NULL DEFAULT '',
	package_weight_kg     DOUBLE PRECISION NOT NULL,
	package_length_cm     DOUBLE PRECISION,
	package_width_cm      DOUBLE PRECISION,
	package_height_cm     DOUBLE PRECISION,
	package_type          TEXT NOT NULL DEFAULT '',
	package_description   TEXT NOT NULL DEFAULT '',
	fare                  DOUBLE PRECISION NOT NULL DEFAULT 0,
	current_lat           DOUBLE PRECISION,
	current_lng           DOUBLE PRECISION,
	status_version        BIGINT NOT NULL DEFAULT 0,
	estimated_delivery_at TIMESTAMPTZ,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_trips_shipper ON trips(shipper_id);
CREATE INDEX IF NOT EXISTS idx_trips_traveler ON trips(traveler_id);

CREATE TABLE IF NOT EXISTS travelers (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL DEFAULT '',
	journey_id         TEXT NOT NULL,
	route              JSONB NOT NULL DEFAULT '[]',
	max_weight_kg      DOUBLE PRECISION NOT NULL,
	max_volume_cm3     DOUBLE PRECISION NOT NULL,
	available_from     TIMESTAMPTZ,
	available_to       TIMESTAMPTZ,
	reliability        DOUBLE PRECISION NOT NULL DEFAULT 0,
	status             TEXT NOT NULL DEFAULT 'idle',
	in_flight_packages INTEGER NOT NULL DEFAULT 0 CHECK (in_flight_packages >= 0),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_travelers_status ON travelers(status);

CREATE TABLE IF NOT EXISTS payments (
	id              TEXT PRIMARY KEY,
	trip_id         TEXT NOT NULL REFERENCES trips(id),
	shipper_id      TEXT NOT NULL,
	traveler_id     TEXT NOT NULL,
	amount          DOUBLE PRECISION NOT NULL,
	currency        TEXT NOT NULL,
	status          TEXT NOT NULL,
	gateway_ref     TEXT NOT NULL DEFAULT '',
	idempotency_key TEXT NOT NULL UNIQUE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_payments_trip ON payments(trip_id);
`

// Migrate creates the tables the repositories rely on if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
