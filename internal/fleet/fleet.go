// Package fleet provides access to the telematics service and a local SQL
// cache for ad-hoc analytics over fleet data.
package fleet

// Vehicle is one tracked unit in the fleet.
type Vehicle struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	SerialNumber string   `json:"serialNumber,omitempty"`
	VIN          string   `json:"vin,omitempty"`
	LicensePlate string   `json:"licensePlate,omitempty"`
	Make         string   `json:"make,omitempty"`
	Model        string   `json:"model,omitempty"`
	Year         int      `json:"year,omitempty"`
	Odometer     float64  `json:"odometer,omitempty"`
	EngineHours  float64  `json:"engineHours,omitempty"`
	Groups       []string `json:"groups,omitempty"`
}

// Position is a vehicle's latest GPS fix.
type Position struct {
	VehicleID string  `json:"vehicleId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Speed     float64 `json:"speed"`
	Bearing   float64 `json:"bearing"`
	DateTime  string  `json:"dateTime"`
}

// Trip is one completed journey.
type Trip struct {
	ID           string  `json:"id"`
	VehicleID    string  `json:"vehicleId"`
	Start        string  `json:"start"`
	Stop         string  `json:"stop"`
	Distance     float64 `json:"distance"`
	MaxSpeed     float64 `json:"maxSpeed"`
	DrivingSecs  float64 `json:"drivingSeconds"`
	IdlingSecs   float64 `json:"idlingSeconds"`
	DriverID     string  `json:"driverId,omitempty"`
	StartAddress string  `json:"startAddress,omitempty"`
	StopAddress  string  `json:"stopAddress,omitempty"`
}

// Fault is one diagnostic trouble report.
type Fault struct {
	ID             string `json:"id"`
	VehicleID      string `json:"deviceId"`
	DateTime       string `json:"dateTime"`
	DiagnosticID   string `json:"diagnosticId,omitempty"`
	DiagnosticName string `json:"diagnosticName,omitempty"`
	FailureMode    string `json:"failureMode,omitempty"`
	FaultState     string `json:"faultState,omitempty"`
	Controller     string `json:"controller,omitempty"`
	Count          int    `json:"count,omitempty"`
}

// Zone is a named geofence.
type Zone struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Comment   string   `json:"comment,omitempty"`
	ZoneTypes []string `json:"zoneTypes,omitempty"`
	Centroid  *LatLng  `json:"centroid,omitempty"`
	Points    []LatLng `json:"points,omitempty"`
}

// LatLng is a geographic coordinate.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
