// Command trialcycle runs the trial lifecycle service.
//
//	trialcycle serve                  HTTP endpoints plus the scheduled job
//	trialcycle run                    one reconciliation pass, summary on stdout
//	trialcycle migrate                apply database migrations
//	trialcycle status <account-id>    client view of an account's trial state
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trialcycle",
		Short:         "Trial lifecycle reconciliation and notifications",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), runCmd(), migrateCmd(), statusCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
