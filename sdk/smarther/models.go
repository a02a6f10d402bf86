package smarther

import (
	"encoding/json"
	"fmt"
	"time"
)

// ThermostatFunction selects what the chronothermostat drives.
type ThermostatFunction string

const (
	FunctionHeating ThermostatFunction = "HEATING"
	FunctionCooling ThermostatFunction = "COOLING"
)

// ThermostatMode is the operating mode reported or requested for a module.
type ThermostatMode string

const (
	ModeAutomatic  ThermostatMode = "AUTOMATIC"
	ModeManual     ThermostatMode = "MANUAL"
	ModeBoost      ThermostatMode = "BOOST"
	ModeOff        ThermostatMode = "OFF"
	ModeProtection ThermostatMode = "PROTECTION"
)

// LoadState reports whether the thermostat is currently driving its load.
type LoadState string

const (
	LoadStateActive   LoadState = "ACTIVE"
	LoadStateInactive LoadState = "INACTIVE"
)

// Plants is the device API's plant listing.
type Plants struct {
	Plants []Plant `json:"plants"`
}

// Plant is a registered installation.
type Plant struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// PlantTopology describes the modules installed in a plant.
type PlantTopology struct {
	Plant PlantDetail `json:"plant"`
}

// PlantDetail carries a plant's identity and its module list.
type PlantDetail struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Modules []Module `json:"modules"`
}

// Module is a device installed in a plant.
type Module struct {
	Device       string             `json:"device"`
	Name         string             `json:"name"`
	ID           string             `json:"id"`
	Capabilities []ModuleCapability `json:"capabilities,omitempty"`
}

// ModuleCapability is a single capability entry. The API flattens arbitrary
// capability attributes next to the capability name, so unrecognized fields
// are collected into CanDo.
type ModuleCapability struct {
	Capability string
	CanDo      map[string]any
}

// UnmarshalJSON splits the capability name from the flattened attributes.
func (c *ModuleCapability) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if name, ok := raw["capability"].(string); ok {
		c.Capability = name
	}
	delete(raw, "capability")
	if len(raw) > 0 {
		c.CanDo = raw
	} else {
		c.CanDo = nil
	}
	return nil
}

// MarshalJSON re-flattens the capability attributes next to the name.
func (c ModuleCapability) MarshalJSON() ([]byte, error) {
	merged := make(map[string]any, len(c.CanDo)+1)
	for k, v := range c.CanDo {
		merged[k] = v
	}
	if c.Capability != "" {
		merged["capability"] = c.Capability
	}
	return json.Marshal(merged)
}

// ModuleStatus is the device API's status report for a module.
type ModuleStatus struct {
	Chronothermostats []ThermostatStatus `json:"chronothermostats"`
}

// ThermostatStatus is a single chronothermostat reading.
//
// ActivationTime carries the boost deadline as the API's zone-less local
// timestamp ("2021-05-26T18:00:00") and is kept as a string.
type ThermostatStatus struct {
	Function          ThermostatFunction  `json:"function"`
	Mode              ThermostatMode      `json:"mode"`
	SetPoint          *Measurement        `json:"setPoint,omitempty"`
	Programs          []ProgramIdentifier `json:"programs,omitempty"`
	ActivationTime    string              `json:"activationTime,omitempty"`
	TemperatureFormat MeasurementUnit     `json:"temperatureFormat,omitempty"`
	LoadState         LoadState           `json:"loadState,omitempty"`
	Time              time.Time           `json:"time"`
	Thermometer       *Instrument         `json:"thermometer,omitempty"`
	Hygrometer        *Instrument         `json:"hygrometer,omitempty"`
	Sender            *SenderInfo         `json:"sender,omitempty"`
}

// Instrument is a sensor bundled with the thermostat.
type Instrument struct {
	Measures []TimedMeasurement `json:"measures,omitempty"`
}

// SenderInfo identifies the module a status report originated from.
type SenderInfo struct {
	AddressType string    `json:"addressType,omitempty"`
	System      string    `json:"system,omitempty"`
	Plant       *PlantRef `json:"plant,omitempty"`
}

// PlantRef is the minimal plant/module reference embedded in status reports.
type PlantRef struct {
	ID     string    `json:"id"`
	Module ModuleRef `json:"module"`
}

// ModuleRef is a bare module identifier.
type ModuleRef struct {
	ID string `json:"id"`
}

// SubscriptionInfo describes a cloud-to-client notification subscription.
type SubscriptionInfo struct {
	SubscriptionID string `json:"subscriptionId"`
	PlantID        string `json:"plantId,omitempty"`
	EndPointURL    string `json:"EndPointUrl,omitempty"`
}

// SetStatusRequest is the payload for changing a chronothermostat's state.
// Each mode requires its own parameter: Manual a set point, Boost an
// activation time, Automatic a program selection.
type SetStatusRequest struct {
	Function       ThermostatFunction  `json:"function"`
	Mode           ThermostatMode      `json:"mode"`
	SetPoint       *Measurement        `json:"setPoint,omitempty"`
	Programs       []ProgramIdentifier `json:"programs,omitempty"`
	ActivationTime string              `json:"activationTime,omitempty"`
}

// Validate checks the mode-specific parameter requirements before the request
// is sent to the device API.
func (r *SetStatusRequest) Validate() error {
	switch r.Mode {
	case ModeManual:
		if r.SetPoint == nil {
			return fmt.Errorf("manual mode requires a set point")
		}
	case ModeBoost:
		if r.ActivationTime == "" {
			return fmt.Errorf("boost mode requires an activation time")
		}
	case ModeAutomatic:
		if len(r.Programs) == 0 {
			return fmt.Errorf("automatic mode requires a program selection")
		}
	}
	return nil
}
