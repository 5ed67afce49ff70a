package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/fishcount/config"
)

const usage = `fishcount counts moving objects in a video.

Usage:
  fishcount run -video FILE [-mask NAME] [flags]
  fishcount mask create -video FILE -name NAME [-rect x,y,w,h]... [-brush x,y[,r]]...
  fishcount mask list
  fishcount mask preview -name NAME -out FILE [-max-width W] [-max-height H]
  fishcount history [-results FILE]
  fishcount synth -out FILE [flags]

Defaults come from FISHCOUNT_* environment variables. Run a command with -h
to list its flags.
`

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		fmt.Print(usage)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	logger := initLogger(cfg.Level())

	var code int
	switch args[0] {
	case "run":
		code = runCmd(cfg, logger, args[1:])
	case "mask":
		code = maskCmd(cfg, logger, args[1:])
	case "history":
		code = historyCmd(cfg, args[1:])
	case "synth":
		code = synthCmd(logger, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		fmt.Fprint(os.Stderr, usage)
		code = 2
	}
	os.Exit(code)
}

func isHelp(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}

// initLogger initializes the logger with appropriate level
func initLogger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)

	if level >= logrus.DebugLevel {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
