// Package config provides the public configuration API.
//
// It re-exports the internal configuration types and helpers so external
// projects can embed the Smarther tooling without importing internal packages.
package config

import internalconfig "github.com/casaops/go-smarther/internal/config"

type Config = internalconfig.Config

type CallbackConfig = internalconfig.CallbackConfig
type ReceiverConfig = internalconfig.ReceiverConfig
type PostgresConfig = internalconfig.PostgresConfig
type ArchiveConfig = internalconfig.ArchiveConfig

const (
	DefaultTokenFile    = internalconfig.DefaultTokenFile
	DefaultCallbackHost = internalconfig.DefaultCallbackHost
	DefaultCallbackPort = internalconfig.DefaultCallbackPort
)

func LoadConfig(configFile string) (*Config, error) { return internalconfig.LoadConfig(configFile) }

func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	return internalconfig.LoadConfigOptional(configFile, optional)
}
