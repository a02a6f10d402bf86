package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/casaops/go-smarther/internal/config"
	"github.com/casaops/go-smarther/sdk/smarther"
)

// printJSON renders an API result as indented JSON on stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// DoListPlants prints the plants registered to the authorized account.
func DoListPlants(cfg *config.Config) {
	withAuthorizedClient(cfg, func(ctx context.Context, client *smarther.AuthorizedClient) error {
		plants, err := client.GetPlants(ctx)
		if err != nil {
			return err
		}
		return printJSON(plants)
	})
}

// DoShowTopology prints the module topology of a plant.
func DoShowTopology(cfg *config.Config, plantID string) {
	withAuthorizedClient(cfg, func(ctx context.Context, client *smarther.AuthorizedClient) error {
		topology, err := client.GetTopology(ctx, plantID)
		if err != nil {
			return err
		}
		return printJSON(topology)
	})
}

// DoShowStatus prints the thermoregulation status of a chronothermostat.
func DoShowStatus(cfg *config.Config, plantID, moduleID string) {
	withAuthorizedClient(cfg, func(ctx context.Context, client *smarther.AuthorizedClient) error {
		status, err := client.GetDeviceStatus(ctx, plantID, moduleID)
		if err != nil {
			return err
		}
		return printJSON(status)
	})
}

// DoSetBoost heats at full power for the given number of minutes.
func DoSetBoost(cfg *config.Config, plantID, moduleID string, minutes int) {
	if minutes <= 0 {
		minutes = 30
	}
	withAuthorizedClient(cfg, func(ctx context.Context, client *smarther.AuthorizedClient) error {
		request := smarther.SetStatusRequest{
			Function:       smarther.FunctionHeating,
			Mode:           smarther.ModeBoost,
			ActivationTime: time.Now().UTC().Add(time.Duration(minutes) * time.Minute).Format("2006-01-02T15:04:05Z"),
		}
		if err := client.SetDeviceStatus(ctx, plantID, moduleID, &request); err != nil {
			return err
		}
		fmt.Printf("Boost active on module %s for %d minutes.\n", moduleID, minutes)
		return nil
	})
}

// DoSetOff turns the thermostat off.
func DoSetOff(cfg *config.Config, plantID, moduleID string) {
	withAuthorizedClient(cfg, func(ctx context.Context, client *smarther.AuthorizedClient) error {
		request := smarther.SetStatusRequest{
			Function: smarther.FunctionHeating,
			Mode:     smarther.ModeOff,
		}
		if err := client.SetDeviceStatus(ctx, plantID, moduleID, &request); err != nil {
			return err
		}
		fmt.Printf("Module %s turned off.\n", moduleID)
		return nil
	})
}

// DoSetManual holds a fixed set point until changed again.
func DoSetManual(cfg *config.Config, plantID, moduleID string, temperature float64) {
	withAuthorizedClient(cfg, func(ctx context.Context, client *smarther.AuthorizedClient) error {
		setPoint := smarther.Celsius(temperature)
		request := smarther.SetStatusRequest{
			Function: smarther.FunctionHeating,
			Mode:     smarther.ModeManual,
			SetPoint: &setPoint,
		}
		if err := client.SetDeviceStatus(ctx, plantID, moduleID, &request); err != nil {
			return err
		}
		fmt.Printf("Set point %.1f°C applied to module %s.\n", temperature, moduleID)
		return nil
	})
}

// DoSetProgram returns the thermostat to automatic mode running the given
// stored programs.
func DoSetProgram(cfg *config.Config, plantID, moduleID string, programs []int) {
	if len(programs) == 0 {
		programs = []int{0}
	}
	withAuthorizedClient(cfg, func(ctx context.Context, client *smarther.AuthorizedClient) error {
		identifiers := make([]smarther.ProgramIdentifier, 0, len(programs))
		for _, number := range programs {
			identifiers = append(identifiers, smarther.ProgramIdentifier{Number: number})
		}
		request := smarther.SetStatusRequest{
			Function: smarther.FunctionHeating,
			Mode:     smarther.ModeAutomatic,
			Programs: identifiers,
		}
		if err := client.SetDeviceStatus(ctx, plantID, moduleID, &request); err != nil {
			return err
		}
		fmt.Printf("Automatic mode with programs %v applied to module %s.\n", programs, moduleID)
		return nil
	})
}
