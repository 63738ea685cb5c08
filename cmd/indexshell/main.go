package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	indexshellcmd "github.com/louisbranch/indexshell/internal/cmd/indexshell"
	"github.com/louisbranch/indexshell/internal/platform/config"
)

// main starts the snippet catalog server on stdio or HTTP.
func main() {
	cfg, err := indexshellcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[indexshell] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := indexshellcmd.Run(ctx, cfg); err != nil {
		config.Exitf("failed to serve catalog: %v", err)
	}
}
