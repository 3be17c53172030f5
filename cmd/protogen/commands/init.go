package commands

import (
	"log/slog"

	"github.com/jianjungki/protogen/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(_ *Global, cli *CLI) error {
	if err := config.Init(cli.Config, i.Force); err != nil {
		return err
	}
	slog.Info("Wrote configuration file", "path", cli.Config)
	return nil
}
