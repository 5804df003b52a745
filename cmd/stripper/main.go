// stripper is a CLI utility that compresses triangle lists into triangle strips.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-strips/internal/config"
	"github.com/Faultbox/midgard-strips/internal/logger"
)

func main() {
	config.ParseFlags()
	args := config.Args()

	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	command := args[0]
	args = args[1:]

	switch command {
	case "compress", "c":
		err = cmdCompress(ctx, cfg, args)
	case "batch", "b":
		err = cmdBatch(ctx, cfg, args)
	case "info":
		err = cmdInfo(args)
	case "flatten":
		err = cmdFlatten(cfg, args)
	case "convert":
		err = cmdConvert(args)
	case "config":
		err = cmdConfig(cfg, args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		var usage usageError
		switch {
		case errors.As(err, &usage):
			fmt.Fprintln(os.Stderr, usage.Error())
		case errors.Is(err, context.Canceled):
			logger.Warn("interrupted", zap.String("command", command))
		default:
			logger.Error("command failed", zap.String("command", command), zap.Error(err))
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`stripper - triangle strip compressor

Usage:
  stripper [flags] <command> [options]

Commands:
  compress <in> [out]        Compress a triangle list (.tri, .rsm or text index list)
  batch [-o dir] <in...>     Compress many files in parallel
  info <file.strp>           Show strip container information
  flatten <file.strp> [out]  Write strips as one restart-separated index list
  convert <in> <out.tri>     Convert a text index list to binary .tri
  config init [path]         Write the effective config for editing

Flags:
  -config <path>   Config file (default ./stripper.yaml)
  -debug           Debug logging, including compression progress
  -log <path>      Also log to a rotated file
  -legacy-tail     Use the original one-index tail lookup
  -workers <n>     Parallel files in batch mode
  -format <fmt>    Output format: strp, yaml
  -zstd            Compress strp output with zstd

Examples:
  stripper compress bunny.idx
  stripper -format yaml compress bunny.tri bunny.yaml
  stripper -workers 8 batch -o out/ data/model/*.rsm
  stripper info bunny.strp
  stripper -zstd config init`)
}

// usageError is printed as-is, without the "Error:" prefix.
type usageError string

func (e usageError) Error() string {
	return "Usage: stripper " + string(e)
}
