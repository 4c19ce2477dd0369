package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"Flywheel/internal/config"
	"Flywheel/internal/form"
	"Flywheel/internal/logger"
	"Flywheel/internal/server"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "app",
		Short:         "Fundraising Flywheel landing site",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(serveCmd(), schemaCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the site",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	// Initialize JSON logging
	zl, flush, err := logger.New(cfg.InstanceName)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer flush()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create and start server
	srv, err := server.New(cfg, zl)
	if err != nil {
		log.Printf("Startup failed: %v", err)
		return err
	}
	return srv.Run(ctx)
}

func schemaCmd() *cobra.Command {
	schema := &cobra.Command{
		Use:   "schema",
		Short: "Inspect lead-qualification form schemas",
	}
	schema.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate a schema file, or the built-in one when no path is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := form.Default()
			if len(args) == 1 {
				var err error
				if s, err = form.Load(args[0]); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			for i, sec := range s.Sections {
				stop := ""
				if sec.Stop != nil {
					stop = fmt.Sprintf(" (stops unless %s = %q)", sec.Stop.Field, sec.Stop.Value)
				}
				fmt.Fprintf(out, "%d. %s [%s] %d questions%s\n", i+1, sec.Title, sec.ID, len(sec.Questions), stop)
			}
			fmt.Fprintln(out, "schema OK")
			return nil
		},
	})
	return schema
}
