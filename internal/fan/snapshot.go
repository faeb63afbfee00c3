package fan

import "time"

// Fan state values as exposed to consumers.
const (
	StateOn  = "on"
	StateOff = "off"
)

// Power sensor state values accepted by HandlePowerEvent.
const (
	PowerOn      = "on"
	PowerOff     = "off"
	PowerUnknown = "unknown"
)

// State change sources recorded in history.
const (
	SourceCommand = "command"
	SourceSensor  = "sensor"
	SourceMQTT    = "mqtt"
	SourceRestore = "restore"
)

// Snapshot is a point-in-time view of a fan's externally visible state.
//
// Percentage and Speed are nil when the fan is on with an unknown speed
// (powered by its physical remote rather than through this service); both
// carry values in every other state. Direction and Oscillating are omitted
// when the device profile does not support the capability.
type Snapshot struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	State      string  `json:"state"`
	Percentage *int    `json:"percentage"`
	Speed      *string `json:"speed"`
	SpeedCount int     `json:"speed_count"`

	Speeds      []string `json:"speeds"`
	Direction   string   `json:"direction,omitempty"`
	Oscillating *bool    `json:"oscillating,omitempty"`

	OnByRemote  bool   `json:"on_by_remote"`
	LastOnSpeed string `json:"last_on_speed,omitempty"`

	DeviceCode          int      `json:"device_code"`
	Manufacturer        string   `json:"manufacturer"`
	SupportedModels     []string `json:"supported_models"`
	SupportedController string   `json:"supported_controller"`
	CommandsEncoding    string   `json:"commands_encoding"`

	UpdatedAt time.Time `json:"updated_at"`
}
