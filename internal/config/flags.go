package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagBaseURL  = flag.String("base-url", "", "Elevation tile base URL")
	flagWorkers  = flag.Int("workers", 0, "Maximum concurrent tile tasks")
	flagSegments = flag.Int("segments", 0, "Mesh segments per side")
	flagSize     = flag.Float64("size", 0, "Mesh size in world units")
	flagLogFile  = flag.String("log-file", "", "Write logs to this file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagBaseURL != "" {
		cfg.Provider.BaseURL = *flagBaseURL
	}
	if *flagWorkers > 0 {
		cfg.Workers.MaxConcurrent = *flagWorkers
	}
	if *flagSegments > 0 {
		cfg.Mesh.Segments = *flagSegments
	}
	if *flagSize > 0 {
		cfg.Mesh.Size = *flagSize
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
