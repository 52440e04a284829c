// Command tunecached runs the tunecache daemon. It is the container entrypoint;
// operators on a workstation usually run "tunecache serve" instead.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/spf13/pflag"

	"tunecache/internal/config"
	"tunecache/internal/daemonrun"
)

func main() {
	flags := pflag.NewFlagSet("tunecached", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", os.Getenv("TUNECACHE_CONFIG"), "Configuration file path")
	logLevel := flags.String("log-level", "", "Override the configured log level")
	development := flags.Bool("dev", false, "Include source locations in log output")
	_ = flags.Parse(os.Args[1:])

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	err = daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:    *logLevel,
		Development: *development,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("tunecached: %v", err)
	}
}
