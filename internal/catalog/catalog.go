// Package catalog holds the static reference data the product ships with:
// Kigali points of interest, the vehicle fleet and the seed drivers.
// Display and startup seeding only; the dispatch core never consults it.
package catalog

import "github.com/didier-building/agaciro-drivers-mvp/internal/models"

// Places are approximate Kigali POIs offered in the booking form.
var Places = []models.Place{
	{Name: "Kiyovu - CBD", Lat: -1.9506, Lng: 30.0605},
	{Name: "Remera - Amahoro", Lat: -1.9622, Lng: 30.1182},
	{Name: "Kimironko Market", Lat: -1.9365, Lng: 30.1180},
	{Name: "Nyamirambo", Lat: -1.9689, Lng: 30.0415},
	{Name: "Gishushu / Kigali Heights", Lat: -1.9536, Lng: 30.0955},
	{Name: "Kacyiru", Lat: -1.9397, Lng: 30.0822},
	{Name: "Kibagabaga", Lat: -1.9146, Lng: 30.1254},
}

var Vehicles = []models.Vehicle{
	{ID: "VEH-01", Make: "Toyota", Model: "Vitz", Plate: "RAB 123 A", Color: "Silver", Seats: 4},
	{ID: "VEH-02", Make: "Suzuki", Model: "Swift", Plate: "RAC 456 B", Color: "Red", Seats: 4},
	{ID: "VEH-03", Make: "Toyota", Model: "Corolla", Plate: "RAD 789 C", Color: "Blue", Seats: 4},
	{ID: "VEH-04", Make: "Toyota", Model: "Yaris", Plate: "RAE 321 D", Color: "Black", Seats: 4},
}

// SeedDrivers is the process-lifetime fleet loaded at startup.
func SeedDrivers() []models.Driver {
	return []models.Driver{
		{ID: "DRV-01", Name: "Eric N.", Phone: "+250 780 001 111", Rating: 4.8, VehicleID: "VEH-01", Status: models.DriverOnline, Position: models.Coordinate{Lat: -1.955, Lng: 30.095}},
		{ID: "DRV-02", Name: "Aline M.", Phone: "+250 720 002 222", Rating: 4.7, VehicleID: "VEH-02", Status: models.DriverOnline, Position: models.Coordinate{Lat: -1.945, Lng: 30.083}},
		{ID: "DRV-03", Name: "Patrick K.", Phone: "+250 730 003 333", Rating: 4.9, VehicleID: "VEH-03", Status: models.DriverOffline, Position: models.Coordinate{Lat: -1.968, Lng: 30.045}},
		{ID: "DRV-04", Name: "Keza I.", Phone: "+250 790 004 444", Rating: 4.6, VehicleID: "VEH-04", Status: models.DriverOnline, Position: models.Coordinate{Lat: -1.962, Lng: 30.118}},
	}
}

// VehicleFor resolves a driver's vehicle for display.
func VehicleFor(vehicleID string) (models.Vehicle, bool) {
	for _, v := range Vehicles {
		if v.ID == vehicleID {
			return v, true
		}
	}
	return models.Vehicle{}, false
}
