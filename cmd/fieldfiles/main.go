package main

import (
	"os"
	"path/filepath"

	"github.com/gartstein/fieldfiles/internal/uploader/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// CLI carries the state shared by all commands.
type CLI struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func main() {
	cli := &CLI{}
	root := newRootCommand(cli)
	err := root.Execute()
	if cli.logger != nil {
		_ = cli.logger.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fieldfiles",
		Short:         "Field staff document uploader",
		Long:          "Registers field staff and files their project documents into cloud storage",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.init()
		},
	}
	cmd.PersistentFlags().StringVar(&cli.configPath, "config",
		filepath.Join("internal", "uploader", "config", "config.yaml"), "path to the YAML config file")

	cmd.AddCommand(newServeCommand(cli))
	cmd.AddCommand(newCompanyCommand(cli))
	cmd.AddCommand(newStaffCommand(cli))
	cmd.AddCommand(newEventsCommand(cli))
	return cmd
}

// init loads the configuration and builds the logger.
func (cli *CLI) init() error {
	cfg, err := config.Load(cli.configPath)
	if err != nil {
		return err
	}
	cli.cfg = cfg
	cli.logger = initLogger(cfg.Debug)
	return nil
}

// initLogger initializes a Zap production logger, or a development one in debug mode.
func initLogger(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
