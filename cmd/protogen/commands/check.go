package commands

import (
	"context"
	"fmt"

	"github.com/jianjungki/protogen/internal/config"
	"github.com/jianjungki/protogen/internal/protoc"
)

// CheckCmd implements the 'check' command: the toolchain precondition probe
// on its own, without touching any files.
type CheckCmd struct{}

func (c *CheckCmd) Run(_ *Global, cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	inv := &protoc.Invoker{Python: cfg.Generator.Python}
	if err := inv.CheckToolchain(context.Background()); err != nil {
		printToolchainHelp()
		return &ExitError{Code: 1, Err: err}
	}
	fmt.Println("grpc toolchain available")
	return nil
}
