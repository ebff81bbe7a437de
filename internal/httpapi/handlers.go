package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/didier-building/agaciro-drivers-mvp/internal/catalog"
	"github.com/didier-building/agaciro-drivers-mvp/internal/dispatch"
	"github.com/didier-building/agaciro-drivers-mvp/internal/fleet"
	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
	"github.com/didier-building/agaciro-drivers-mvp/internal/rides"
)

// Server exposes the dispatch core over HTTP plus a websocket channel for
// driver offer pushes. It holds no domain state of its own.
type Server struct {
	broker *dispatch.Broker
	fleet  *fleet.Registry
	rides  *rides.Store
	wsreg  *dispatch.WSRegistry
	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(broker *dispatch.Broker, reg *fleet.Registry, store *rides.Store, wsreg *dispatch.WSRegistry, logger *slog.Logger) *Server {
	s := &Server{broker: broker, fleet: reg, rides: store, wsreg: wsreg, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/rides", s.handleRequestRide).Methods("POST")
	api.HandleFunc("/rides", s.handleListRides).Methods("GET")
	api.HandleFunc("/rides/{ride_id}", s.handleGetRide).Methods("GET")
	api.HandleFunc("/rides/{ride_id}/accept", s.handleAccept).Methods("POST")
	api.HandleFunc("/rides/{ride_id}/reject", s.handleReject).Methods("POST")
	api.HandleFunc("/rides/{ride_id}/force-assign", s.handleForceAssign).Methods("POST")
	api.HandleFunc("/rides/{ride_id}/start", s.handleStartTrip).Methods("POST")
	api.HandleFunc("/rides/{ride_id}/broadcast", s.handleRebroadcast).Methods("POST")

	api.HandleFunc("/drivers", s.handleListDrivers).Methods("GET")
	api.HandleFunc("/drivers/{driver_id}/online", s.handleSetOnline).Methods("POST")
	api.HandleFunc("/drivers/{driver_id}/offers", s.handleDriverOffers).Methods("GET")

	api.HandleFunc("/quote", s.handleQuote).Methods("GET")
	api.HandleFunc("/places", s.handlePlaces).Methods("GET")
	api.HandleFunc("/vehicles", s.handleVehicles).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{driver_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleRequestRide(w http.ResponseWriter, r *http.Request) {
	var req dispatch.RideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.RiderPhone == "" {
		http.Error(w, "rider_phone is required", http.StatusBadRequest)
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "cash"
	}
	ride, err := s.broker.RequestRide(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ride)
}

func (s *Server) handleListRides(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.rides.List())
}

func (s *Server) handleGetRide(w http.ResponseWriter, r *http.Request) {
	ride, err := s.rides.Get(mux.Vars(r)["ride_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ride)
}

type driverAction struct {
	DriverID string `json:"driver_id"`
}

func (s *Server) decodeDriverAction(w http.ResponseWriter, r *http.Request) (string, bool) {
	var a driverAction
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil || a.DriverID == "" {
		http.Error(w, "driver_id is required", http.StatusBadRequest)
		return "", false
	}
	return a.DriverID, true
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	driverID, ok := s.decodeDriverAction(w, r)
	if !ok {
		return
	}
	ride, err := s.broker.Accept(mux.Vars(r)["ride_id"], driverID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	driverID, ok := s.decodeDriverAction(w, r)
	if !ok {
		return
	}
	if err := s.broker.Reject(mux.Vars(r)["ride_id"], driverID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleForceAssign(w http.ResponseWriter, r *http.Request) {
	driverID, ok := s.decodeDriverAction(w, r)
	if !ok {
		return
	}
	ride, err := s.broker.ForceAssign(mux.Vars(r)["ride_id"], driverID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleStartTrip(w http.ResponseWriter, r *http.Request) {
	ride, err := s.broker.StartTrip(mux.Vars(r)["ride_id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleRebroadcast(w http.ResponseWriter, r *http.Request) {
	if err := s.broker.Broadcast(mux.Vars(r)["ride_id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type driverView struct {
	models.Driver
	Vehicle *models.Vehicle `json:"vehicle,omitempty"`
}

func (s *Server) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	drivers := s.fleet.List()
	out := make([]driverView, 0, len(drivers))
	for _, d := range drivers {
		v := driverView{Driver: d}
		if veh, ok := catalog.VehicleFor(d.VehicleID); ok {
			v.Vehicle = &veh
		}
		out = append(out, v)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetOnline(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["driver_id"]
	if err := s.fleet.SetOnline(id, body.Online); err != nil {
		s.writeError(w, err)
		return
	}
	d, err := s.fleet.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDriverOffers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.broker.OffersFor(mux.Vars(r)["driver_id"]))
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	pickup, err := coordFromQuery(r, "pickup_lat", "pickup_lng")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	dropoff, err := coordFromQuery(r, "dropoff_lat", "dropoff_lng")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusOK, s.broker.Estimate(pickup, dropoff, time.Now()))
}

func (s *Server) handlePlaces(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, catalog.Places)
}

func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, catalog.Vehicles)
}

type statsView struct {
	OpenRides      int   `json:"open_rides"`
	CompletedRides int   `json:"completed_rides"`
	OnlineDrivers  int   `json:"online_drivers"`
	GrossRevenue   int64 `json:"gross_revenue"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var stats statsView
	for _, ride := range s.rides.List() {
		if ride.Status.Terminal() {
			stats.CompletedRides++
		} else {
			stats.OpenRides++
		}
		stats.GrossRevenue += ride.Price
	}
	stats.OnlineDrivers = len(s.fleet.Online())
	s.writeJSON(w, http.StatusOK, stats)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	driverID := mux.Vars(r)["driver_id"]
	if _, err := s.fleet.Get(driverID); err != nil {
		s.writeError(w, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.wsreg.Add(driverID, conn)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", "error", err)
	}
}

// writeError maps the domain taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrStaleOffer), errors.Is(err, models.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, models.ErrNoCandidateDrivers):
		status = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), status)
}

func coordFromQuery(r *http.Request, latKey, lngKey string) (models.Coordinate, error) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get(latKey), 64)
	if err != nil {
		return models.Coordinate{}, errors.New(latKey + " is required")
	}
	lng, err := strconv.ParseFloat(r.URL.Query().Get(lngKey), 64)
	if err != nil {
		return models.Coordinate{}, errors.New(lngKey + " is required")
	}
	return models.Coordinate{Lat: lat, Lng: lng}, nil
}

func newRequestID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
