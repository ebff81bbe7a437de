package archive

import (
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) ArchiveRide(r models.Ride) error {
	_, err := p.db.Exec(`INSERT INTO ride_history(
		id, rider_phone, driver_id,
		pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
		distance_km, price, surge, payment_method, payment_status,
		requested_at, accepted_at, arrived_at, started_at, completed_at
	) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	ON CONFLICT (id) DO NOTHING`,
		r.ID, r.RiderPhone, r.DriverID,
		r.Pickup.Lat, r.Pickup.Lng, r.Dropoff.Lat, r.Dropoff.Lng,
		r.DistanceKm, r.Price, r.Surge, r.Payment.Method, r.Payment.Status,
		r.Timeline.RequestedAt, r.Timeline.AcceptedAt, r.Timeline.ArrivedAt,
		r.Timeline.StartedAt, r.Timeline.CompletedAt)
	return err
}

func (p *Postgres) Close() error { return p.db.Close() }
