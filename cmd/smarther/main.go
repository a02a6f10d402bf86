// Package main provides the entry point for the smarther command line tool.
// It drives the Legrand/BTicino Smarther v2.0 cloud API: interactive OAuth
// login, chronothermostat reads and writes, webhook management, a local
// notification receiver, and a terminal dashboard.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/casaops/go-smarther/internal/buildinfo"
	"github.com/casaops/go-smarther/internal/cmd"
	"github.com/casaops/go-smarther/internal/config"
	"github.com/casaops/go-smarther/internal/logging"
	"github.com/casaops/go-smarther/internal/util"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

// main parses command-line flags, loads configuration, and runs exactly one
// command: login, a device operation, webhook management, the notification
// receiver, or the dashboard.
func main() {
	var login bool
	var noBrowser bool
	var callbackPort int
	var plants bool
	var topology string
	var status string
	var boost string
	var off string
	var manual string
	var program string
	var registerWebhook string
	var webhooks bool
	var unregisterWebhook string
	var listen bool
	var tuiMode bool
	var configPath string
	var showVersion bool

	flag.BoolVar(&login, "login", false, "Authorize with the Legrand partner portal")
	flag.BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically for OAuth")
	flag.IntVar(&callbackPort, "callback-port", 0, "Override OAuth callback port (defaults to the configured port)")
	flag.BoolVar(&plants, "plants", false, "List the plants registered to the account")
	flag.StringVar(&topology, "topology", "", "Show a plant's module topology: plant")
	flag.StringVar(&status, "status", "", "Show a chronothermostat's status: plant/module")
	flag.StringVar(&boost, "boost", "", "Heat at full power for a while: plant/module/minutes")
	flag.StringVar(&off, "off", "", "Turn a chronothermostat off: plant/module")
	flag.StringVar(&manual, "manual", "", "Hold a fixed set point: plant/module/temperature")
	flag.StringVar(&program, "program", "", "Run stored programs: plant/module/numbers (comma separated)")
	flag.StringVar(&registerWebhook, "register-webhook", "", "Subscribe an endpoint to plant notifications: plant/url")
	flag.BoolVar(&webhooks, "webhooks", false, "List active webhook subscriptions")
	flag.StringVar(&unregisterWebhook, "unregister-webhook", "", "Remove a webhook subscription: plant/subscription")
	flag.BoolVar(&listen, "listen", false, "Run the cloud-to-client notification receiver")
	flag.BoolVar(&tuiMode, "tui", false, "Start the terminal dashboard")
	flag.StringVar(&configPath, "config", "", "Configure File Path")
	flag.BoolVar(&showVersion, "version", false, "Print version information and exit")

	flag.CommandLine.Usage = func() {
		out := flag.CommandLine.Output()
		_, _ = fmt.Fprintf(out, "Usage of %s\n", os.Args[0])
		flag.CommandLine.VisitAll(func(f *flag.Flag) {
			s := fmt.Sprintf("  -%s", f.Name)
			name, unquoteUsage := flag.UnquoteUsage(f)
			if name != "" {
				s += " " + name
			}
			if len(s) <= 4 {
				s += "	"
			} else {
				s += "\n    "
			}
			if unquoteUsage != "" {
				s += unquoteUsage
			}
			if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
				s += fmt.Sprintf(" (default %s)", f.DefValue)
			}
			_, _ = fmt.Fprint(out, s+"\n")
		})
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("smarther Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Errorf("failed to get working directory: %v", err)
		return
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	// The config file is optional: credentials can come entirely from the
	// environment. An explicit -config path must exist, though.
	configFilePath := configPath
	if configFilePath == "" {
		configFilePath = filepath.Join(wd, "config.yaml")
	}
	cfg, err := config.LoadConfigOptional(configFilePath, configPath == "")
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return
	}

	util.SetLogLevel(cfg.Debug)
	if err = logging.ConfigureLogOutput(cfg); err != nil {
		log.Errorf("failed to configure log output: %v", err)
		return
	}

	options := &cmd.LoginOptions{
		NoBrowser:    noBrowser,
		CallbackPort: callbackPort,
	}

	if login {
		cmd.DoLogin(cfg, options)
	} else if plants {
		cmd.DoListPlants(cfg)
	} else if topology != "" {
		cmd.DoShowTopology(cfg, topology)
	} else if status != "" {
		plantID, moduleID, ok := parseTarget(status)
		if !ok {
			log.Error("-status expects plant/module")
			return
		}
		cmd.DoShowStatus(cfg, plantID, moduleID)
	} else if boost != "" {
		plantID, moduleID, arg, ok := parseTargetArg(boost)
		minutes, errConv := strconv.Atoi(arg)
		if !ok || errConv != nil || minutes <= 0 {
			log.Error("-boost expects plant/module/minutes")
			return
		}
		cmd.DoSetBoost(cfg, plantID, moduleID, minutes)
	} else if off != "" {
		plantID, moduleID, ok := parseTarget(off)
		if !ok {
			log.Error("-off expects plant/module")
			return
		}
		cmd.DoSetOff(cfg, plantID, moduleID)
	} else if manual != "" {
		plantID, moduleID, arg, ok := parseTargetArg(manual)
		temperature, errConv := strconv.ParseFloat(arg, 64)
		if !ok || errConv != nil {
			log.Error("-manual expects plant/module/temperature")
			return
		}
		cmd.DoSetManual(cfg, plantID, moduleID, temperature)
	} else if program != "" {
		plantID, moduleID, arg, ok := parseTargetArg(program)
		programs, errConv := parsePrograms(arg)
		if !ok || errConv != nil {
			log.Error("-program expects plant/module/numbers, for example p1/m1/0 or p1/m1/1,2")
			return
		}
		cmd.DoSetProgram(cfg, plantID, moduleID, programs)
	} else if registerWebhook != "" {
		// The endpoint URL contains slashes, so only the first one separates
		// the plant from the URL. A bare plant falls back to the configured
		// receiver public URL.
		parts := strings.SplitN(registerWebhook, "/", 2)
		endpointURL := ""
		if len(parts) == 2 {
			endpointURL = parts[1]
		}
		if parts[0] == "" {
			log.Error("-register-webhook expects plant/url")
			return
		}
		cmd.DoRegisterWebhook(cfg, parts[0], endpointURL)
	} else if webhooks {
		cmd.DoListWebhooks(cfg)
	} else if unregisterWebhook != "" {
		plantID, subscriptionID, ok := parseTarget(unregisterWebhook)
		if !ok {
			log.Error("-unregister-webhook expects plant/subscription")
			return
		}
		cmd.DoUnregisterWebhook(cfg, plantID, subscriptionID)
	} else if listen {
		cmd.DoListen(cfg)
	} else if tuiMode {
		cmd.DoDashboard(cfg)
	} else {
		flag.CommandLine.Usage()
	}
}

// parseTarget splits a "plant/module" flag value into its two identifiers.
func parseTarget(value string) (plantID, moduleID string, ok bool) {
	parts := strings.SplitN(value, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// parseTargetArg splits a "plant/module/argument" flag value.
func parseTargetArg(value string) (plantID, moduleID, arg string, ok bool) {
	parts := strings.SplitN(value, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// parsePrograms parses a comma separated list of program numbers.
func parsePrograms(value string) ([]int, error) {
	var programs []int
	for _, field := range strings.Split(value, ",") {
		number, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, err
		}
		programs = append(programs, number)
	}
	return programs, nil
}
