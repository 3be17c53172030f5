package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jianjungki/protogen/internal/config"
	"github.com/jianjungki/protogen/internal/pipeline"
	perrors "github.com/jianjungki/protogen/internal/protoc/errors"
)

// GenerateCmd implements the 'generate' command: the full
// filter/protoc/patch pipeline. This is the default command.
type GenerateCmd struct{}

func (g *GenerateCmd) Run(_ *Global, cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	return runPipeline(context.Background(), cfg)
}

// runPipeline executes the pipeline and maps its outcome to an error the
// main package can translate into a process exit code.
func runPipeline(ctx context.Context, cfg *config.Config) error {
	outcome := pipeline.New(cfg).Run(ctx)
	if outcome.Err == nil {
		return nil
	}
	if errors.Is(outcome.Err, perrors.ErrToolchainNotFound) {
		printToolchainHelp()
	}
	return &ExitError{Code: outcome.ExitCode, Err: outcome.Err}
}

func printToolchainHelp() {
	fmt.Fprintln(os.Stderr, "Error: 'grpcio-tools' is not installed or not found in the current environment.")
	fmt.Fprintln(os.Stderr, "Please install the required dependencies by running: pip install -e .[protoc]")
}
