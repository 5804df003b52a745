package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile    = flag.String("log", "", "Write logs to file")
	flagLegacyTail = flag.Bool("legacy-tail", false, "Use the original tail lookup")
	flagWorkers    = flag.Int("workers", 0, "Parallel files in batch mode")
	flagFormat     = flag.String("format", "", "Output format (strp, yaml)")
	flagZstd       = flag.Bool("zstd", false, "Compress strp output with zstd")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments after ParseFlags.
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
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagLegacyTail {
		cfg.Compress.LegacyTail = true
	}
	if *flagWorkers > 0 {
		cfg.Compress.Workers = *flagWorkers
	}
	if *flagFormat != "" {
		cfg.Output.Format = *flagFormat
	}
	if *flagZstd {
		cfg.Output.Compression = CompressionZstd
	}
}
