// protogen prepares the etcd proto definitions for the Python gRPC toolchain
// and drives code generation: it strips unsupported constructs from the
// schema, runs grpc.tools.protoc, and patches the generated imports so they
// resolve inside the etcd3.etcdrpc package.
package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/jianjungki/protogen/cmd/protogen/commands"
	"github.com/jianjungki/protogen/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("protogen"),
		kong.Description("Generate Python gRPC bindings from the etcd proto definitions"),
		kong.Vars{"version": version.Version},
	)

	if err := ctx.Run(&commands.Global{Logger: slog.Default()}, cli); err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		var ee *commands.ExitError
		if errors.As(err, &ee) {
			os.Exit(ee.Code)
		}
		os.Exit(1)
	}
}
