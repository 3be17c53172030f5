// Package protoc drives the external Python gRPC schema compiler.
//
// Generation shells out to `python -m grpc.tools.protoc`; nothing is compiled
// in-process. Output streams are captured, not streamed, and surfaced after
// the child exits.
package protoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	perrors "github.com/jianjungki/protogen/internal/protoc/errors"
)

// DefaultInterpreter is used when no interpreter is configured.
const DefaultInterpreter = "python3"

// PackageMarker is the file touched in the output directory so Python treats
// it as a package.
const PackageMarker = "__init__.py"

// Invoker runs grpc.tools.protoc over a fixed set of schema files.
type Invoker struct {
	// Python is the interpreter binary to invoke; DefaultInterpreter when empty.
	Python string
	// ProtoDir is the include directory holding the schema files.
	ProtoDir string
	// OutDir receives both the generated message code and the service stubs.
	OutDir string
	// Schemas are the schema file names, relative to ProtoDir, passed to
	// protoc in this exact order.
	Schemas []string
}

// Result captures the outcome of one protoc invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (inv *Invoker) interpreter() string {
	if inv.Python != "" {
		return inv.Python
	}
	return DefaultInterpreter
}

// CheckToolchain verifies the interpreter exists and can import
// grpc.tools.protoc. It performs no file mutation and is expected to run
// before any pipeline stage touches disk.
func (inv *Invoker) CheckToolchain(ctx context.Context) error {
	py := inv.interpreter()
	if _, err := exec.LookPath(py); err != nil {
		return fmt.Errorf("%w: %w", perrors.ErrToolchainNotFound, err)
	}

	// #nosec G204 -- fixed probe expression, interpreter comes from config
	cmd := exec.CommandContext(ctx, py, "-c", "from grpc.tools import protoc")
	if out, err := cmd.CombinedOutput(); err != nil {
		if msg := string(bytes.TrimSpace(out)); msg != "" {
			return fmt.Errorf("%w: %w: %s", perrors.ErrToolchainNotFound, err, msg)
		}
		return fmt.Errorf("%w: %w", perrors.ErrToolchainNotFound, err)
	}
	return nil
}

// PrepareOutputDir ensures the output directory exists and carries the
// package marker file. Both operations are idempotent.
func (inv *Invoker) PrepareOutputDir() error {
	if err := os.MkdirAll(inv.OutDir, 0o750); err != nil {
		return fmt.Errorf("ensure output directory: %w", err)
	}
	marker := filepath.Join(inv.OutDir, PackageMarker)
	f, err := os.OpenFile(marker, os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G304 -- path from config
	if err != nil {
		return fmt.Errorf("touch package marker: %w", err)
	}
	return f.Close()
}

// Args returns the argument list passed to the interpreter, in the literal
// order protoc is invoked with.
func (inv *Invoker) Args() []string {
	args := []string{
		"-m", "grpc.tools.protoc",
		"-I" + inv.ProtoDir,
		"--python_out=" + inv.OutDir,
		"--grpc_python_out=" + inv.OutDir,
	}
	for _, s := range inv.Schemas {
		args = append(args, filepath.Join(inv.ProtoDir, s))
	}
	return args
}

// Run executes protoc and blocks until the child process terminates. There is
// no timeout beyond ctx; a hung compiler hangs the caller.
//
// On a non-zero exit the Result still carries both captured streams and the
// child's exit code, and the returned error wraps ErrProtocFailed.
func (inv *Invoker) Run(ctx context.Context) (Result, error) {
	args := inv.Args()
	slog.Info("Running protoc", "command", inv.interpreter()+" "+strings.Join(args, " "))

	// #nosec G204 -- interpreter and paths come from validated config
	cmd := exec.CommandContext(ctx, inv.interpreter(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		res.ExitCode = 1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			res.ExitCode = ee.ExitCode()
		}
		return res, fmt.Errorf("%w: %w", perrors.ErrProtocFailed, err)
	}
	return res, nil
}
