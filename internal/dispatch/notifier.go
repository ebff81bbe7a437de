package dispatch

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
)

// Notifier delivers offer lifecycle notices to drivers. Best-effort: a
// driver without a live session simply misses the push and still sees the
// offer in their inbox.
type Notifier interface {
	OfferCreated(o models.Offer)
	OfferWithdrawn(rideID, driverID string)
}

type wsEnvelope struct {
	Type     string        `json:"type"` // offer, offer_withdrawn
	Offer    *models.Offer `json:"offer,omitempty"`
	RideID   string        `json:"ride_id,omitempty"`
	DriverID string        `json:"driver_id,omitempty"`
}

// WSSession is one connected driver app.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// WSRegistry holds driver websocket sessions and pushes offer notices to
// them. Implements Notifier.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
	logger   *slog.Logger
}

func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	return &WSRegistry{sessions: make(map[string]*WSSession), logger: logger}
}

func (r *WSRegistry) Add(driverID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[driverID]; ok {
		_ = old.conn.Close()
	}
	r.sessions[driverID] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(driverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, driverID)
}

func (r *WSRegistry) OfferCreated(o models.Offer) {
	r.push(o.DriverID, wsEnvelope{Type: "offer", Offer: &o})
}

func (r *WSRegistry) OfferWithdrawn(rideID, driverID string) {
	r.push(driverID, wsEnvelope{Type: "offer_withdrawn", RideID: rideID, DriverID: driverID})
}

func (r *WSRegistry) push(driverID string, env wsEnvelope) {
	r.mu.RLock()
	s, ok := r.sessions[driverID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	if err := s.send(env); err != nil {
		r.logger.Warn("ws push failed", "driver_id", driverID, "type", env.Type, "error", err)
	}
}

// LogNotifier is the fallback when no push channel is wired (tests, the
// consumer binary). It just logs.
type LogNotifier struct{ Logger *slog.Logger }

func (n LogNotifier) OfferCreated(o models.Offer) {
	n.Logger.Info("offer created", "ride_id", o.RideID, "driver_id", o.DriverID, "price", o.Price)
}

func (n LogNotifier) OfferWithdrawn(rideID, driverID string) {
	n.Logger.Info("offer withdrawn", "ride_id", rideID, "driver_id", driverID)
}
