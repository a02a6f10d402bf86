package smarther

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GetPlants lists the plants (homes) registered to the authorized account.
func (c *AuthorizedClient) GetPlants(ctx context.Context) (*Plants, error) {
	var plants Plants
	if err := c.getJSON(ctx, "/plants", &plants); err != nil {
		return nil, err
	}
	return &plants, nil
}

// GetTopology returns the module topology of a plant, i.e. the thermostats
// installed in it.
func (c *AuthorizedClient) GetTopology(ctx context.Context, plantID string) (*PlantTopology, error) {
	var topology PlantTopology
	path := fmt.Sprintf("/plants/%s/topology", url.PathEscape(plantID))
	if err := c.getJSON(ctx, path, &topology); err != nil {
		return nil, err
	}
	return &topology, nil
}

func chronothermostatPath(plantID, moduleID string) string {
	return fmt.Sprintf("/chronothermostat/thermoregulation/addressLocation/plants/%s/modules/parameter/id/value/%s",
		url.PathEscape(plantID), url.PathEscape(moduleID))
}

// GetDeviceStatus reads the current thermoregulation status of a single
// chronothermostat module.
func (c *AuthorizedClient) GetDeviceStatus(ctx context.Context, plantID, moduleID string) (*ModuleStatus, error) {
	var status ModuleStatus
	if err := c.getJSON(ctx, chronothermostatPath(plantID, moduleID), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetDeviceStatus applies a new thermoregulation target to a chronothermostat
// module. The request is validated locally before anything is sent.
func (c *AuthorizedClient) SetDeviceStatus(ctx context.Context, plantID, moduleID string, request *SetStatusRequest) error {
	if err := request.Validate(); err != nil {
		return err
	}
	return c.sendJSON(ctx, http.MethodPost, chronothermostatPath(plantID, moduleID), request, http.StatusOK, nil)
}
