package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
)

// RideEvent is the wire form of one ride lifecycle change.
type RideEvent struct {
	RideID     string            `json:"ride_id"`
	Status     models.RideStatus `json:"status"`
	DriverID   string            `json:"driver_id,omitempty"`
	RiderPhone string            `json:"rider_phone"`
	DistanceKm float64           `json:"distance_km"`
	Price      int64             `json:"price"`
	At         time.Time         `json:"at"`
}

// KafkaPublisher streams ride lifecycle events. It implements
// rides.Journal; publishing is best-effort so a broker outage never blocks
// a lifecycle commit.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &KafkaPublisher{writer: w, logger: logger}
}

func (p *KafkaPublisher) RideChanged(r models.Ride) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev := RideEvent{
		RideID:     r.ID,
		Status:     r.Status,
		DriverID:   r.DriverID,
		RiderPhone: r.RiderPhone,
		DistanceKm: r.DistanceKm,
		Price:      r.Price,
		At:         time.Now(),
	}
	b, _ := json.Marshal(ev)
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(r.ID), Value: b}); err != nil {
		p.logger.Warn("ride event publish failed", "ride_id", r.ID, "status", string(r.Status), "error", err)
	}
}

func (p *KafkaPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
