package models

// DriverStatus tracks driver availability. A driver is on_trip exactly while
// it is the assigned driver of one active ride.
type DriverStatus string

const (
	DriverOffline DriverStatus = "offline"
	DriverOnline  DriverStatus = "online"
	DriverOnTrip  DriverStatus = "on_trip"
)

// RideStatus is the ride lifecycle state. Strictly forward-moving; a ride
// never revisits a state.
type RideStatus string

const (
	StatusRequested      RideStatus = "REQUESTED"
	StatusDriverPending  RideStatus = "DRIVER_PENDING" // rider pre-selected a driver
	StatusDriverAccepted RideStatus = "DRIVER_ACCEPTED"
	StatusEnRoute        RideStatus = "EN_ROUTE"
	StatusArrived        RideStatus = "ARRIVED"
	StatusInTrip         RideStatus = "IN_TRIP"
	StatusCompleted      RideStatus = "COMPLETED"
)

func (s RideStatus) String() string { return string(s) }

// Terminal reports whether no further transition can fire.
func (s RideStatus) Terminal() bool { return s == StatusCompleted }

// Active reports whether the ride still occupies a driver once assigned.
func (s RideStatus) Active() bool {
	switch s {
	case StatusDriverAccepted, StatusEnRoute, StatusArrived, StatusInTrip:
		return true
	default:
		return false
	}
}

// CanTransitionTo encodes the forward-only state machine. No transition
// skips a state.
func (s RideStatus) CanTransitionTo(next RideStatus) bool {
	switch s {
	case StatusRequested, StatusDriverPending:
		return next == StatusDriverAccepted
	case StatusDriverAccepted:
		return next == StatusEnRoute
	case StatusEnRoute:
		return next == StatusArrived
	case StatusArrived:
		return next == StatusInTrip
	case StatusInTrip:
		return next == StatusCompleted
	default:
		return false
	}
}
