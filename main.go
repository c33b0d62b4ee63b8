package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrlokans/scalesync/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.New(Version+" ("+Commit+")", nil, nil).Execute(ctx, os.Args[1:])
	stop()
	os.Exit(cli.ExitCode(err))
}
