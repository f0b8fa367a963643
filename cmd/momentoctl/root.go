package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/momento/internal/config"
	"github.com/saturnino-fabrica-de-software/momento/internal/face"
)

// Version is the CLI version
const Version = "0.1.0"

// cli holds the state shared by subcommands
type cli struct {
	backendURL string
	username   string
	verbose    bool

	cfg    *config.EngineConfig
	logger *slog.Logger
	engine *face.Engine
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "momentoctl",
		Short:         "Operate the Momento face recognition engine from the command line",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.teardown()
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.PersistentFlags().StringVar(&c.backendURL, "backend", "", "backend base URL (default: BACKEND_URL)")
	root.PersistentFlags().StringVar(&c.username, "user", "", "account whose faces are managed (default: USERNAME)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(
		c.newEnrollCmd(),
		c.newRemoveCmd(),
		c.newListCmd(),
		c.newRecognizeCmd(),
		c.newSyncCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	_ = godotenv.Load()

	// flags stand in for a missing USERNAME
	if c.username != "" {
		if err := os.Setenv("USERNAME", c.username); err != nil {
			return err
		}
	}

	cfg, err := config.LoadEngine()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.backendURL != "" {
		cfg.BackendURL = c.backendURL
	}
	c.cfg = cfg

	env := "quiet"
	if c.verbose {
		env = cfg.Environment
	}
	c.logger = config.NewLoggerTo(cmd.ErrOrStderr(), env)

	c.engine, err = face.NewEngine(cfg, c.logger)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	return nil
}

func (c *cli) teardown() error {
	if c.engine == nil {
		return nil
	}
	err := c.engine.Close()
	c.engine = nil
	return err
}
