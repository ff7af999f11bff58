package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/daniacca/molsim/internal/molsim"
)

// ServerConfig holds the server configuration
type ServerConfig struct {
	Addr        string
	ConfigFile  string
	SnapshotDir string
	MaxSteps    int64
	LogLevel    string
	WebSocketID string
}

// configResolver defines how to resolve a single configuration value
type configResolver struct {
	flagName    string
	envVarName  string
	defaultVal  string
	description string
	setter      func(*ServerConfig, string) error
}

var resolvers = []configResolver{
	{
		flagName:    "addr",
		envVarName:  "MOLSIM_ADDR",
		defaultVal:  ":8080",
		description: "HTTP listen address (e.g. :8080, 0.0.0.0:8080)",
		setter:      func(c *ServerConfig, v string) error { c.Addr = v; return nil },
	},
	{
		flagName:    "config",
		envVarName:  "MOLSIM_CONFIG",
		defaultVal:  "",
		description: "optional simulation config file (.toml or .json) to load at startup",
		setter:      func(c *ServerConfig, v string) error { c.ConfigFile = v; return nil },
	},
	{
		flagName:    "snapshot-dir",
		envVarName:  "MOLSIM_SNAPSHOT_DIR",
		defaultVal:  "./data",
		description: "directory where snapshots are written",
		setter:      func(c *ServerConfig, v string) error { c.SnapshotDir = v; return nil },
	},
	{
		flagName:    "max-steps",
		envVarName:  "MOLSIM_MAX_STEPS",
		defaultVal:  "1000000",
		description: "largest number of steps a single request may run",
		setter: func(c *ServerConfig, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid value for max-steps: %s", v)
			}
			c.MaxSteps = n
			return nil
		},
	},
	{
		flagName:    "log-level",
		envVarName:  "MOLSIM_LOG_LEVEL",
		defaultVal:  "info",
		description: "log level: debug, info, warn, error",
		setter:      func(c *ServerConfig, v string) error { c.LogLevel = v; return nil },
	},
}

// loadServerConfig resolves every option from the command line, then the
// environment, then its default.
func loadServerConfig(fs *flag.FlagSet, args []string) (ServerConfig, error) {
	cfg := ServerConfig{WebSocketID: "websocket"}

	flagVars := make(map[string]*string)
	for _, resolver := range resolvers {
		flagVars[resolver.flagName] = fs.String(resolver.flagName, "", resolver.description)
	}
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	for _, resolver := range resolvers {
		var value string
		if *flagVars[resolver.flagName] != "" {
			value = *flagVars[resolver.flagName]
		} else if envValue := os.Getenv(resolver.envVarName); envValue != "" {
			value = envValue
		} else {
			value = resolver.defaultVal
		}
		if err := resolver.setter(&cfg, value); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// loadInitialSimulation reads, validates and builds the startup simulation.
func loadInitialSimulation(path string, logger molsim.Logger, opts ...molsim.IntegratorOption) (*molsim.Simulation, error) {
	cfg, err := molsim.LoadSimulationConfig(path)
	if err != nil {
		return nil, err
	}
	return molsim.BuildSimulation(cfg, logger, opts...)
}
