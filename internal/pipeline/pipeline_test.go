package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jianjungki/protogen/internal/config"
	perrors "github.com/jianjungki/protogen/internal/protoc/errors"
)

const schemaInput = `syntax = "proto3";
import "gogoproto/gogo.proto";
import "google/api/annotations.proto";
import "etcd/mvcc/mvccpb/kv.proto";
import "etcd/auth/authpb/auth.proto";

service KV {
  rpc Range(RangeRequest) returns (RangeResponse) {
    option (google.api.http) = {
      post: "/v3/kv/range"
      body: "*"
    };
  }
}
`

// fakeProtoc emulates the Python interpreter: the toolchain probe (-c ...)
// succeeds, a generation run executes the given body with $out pointing at
// the --python_out directory.
func fakeProtoc(t *testing.T, body string) string {
	t.Helper()
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"-c\" ]; then exit 0; fi\n" +
		"out=\"\"\n" +
		"for arg in \"$@\"; do\n" +
		"  case \"$arg\" in\n" +
		"    --python_out=*) out=\"${arg#--python_out=}\" ;;\n" +
		"  esac\n" +
		"done\n" +
		body
	path := filepath.Join(t.TempDir(), "fake-python")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func testConfig(t *testing.T, python string) *config.Config {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "proto"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "proto", "rpc.proto"), []byte(schemaInput), 0o644))

	cfg := &config.Config{
		Root: root,
		Proto: config.ProtoConfig{
			Dir:    "proto",
			Schema: "rpc.proto",
			Files:  []string{"rpc.proto", "auth.proto", "kv.proto"},
		},
		Generator: config.GeneratorConfig{
			Python:  python,
			OutDir:  "etcdrpc",
			Package: "etcd3.etcdrpc",
		},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRun_FullPipeline(t *testing.T) {
	python := fakeProtoc(t, ""+
		"printf 'import auth_pb2 as auth__pb2\\nimport kv_pb2 as kv__pb2\\n' > \"$out/rpc_pb2.py\"\n"+
		"printf 'import grpc\\nimport rpc_pb2 as rpc__pb2\\n' > \"$out/rpc_pb2_grpc.py\"\n"+
		"echo generated\n")
	cfg := testConfig(t, python)

	outcome := New(cfg).Run(context.Background())
	require.NoError(t, outcome.Err)
	require.Equal(t, 0, outcome.ExitCode)

	// Schema filtered and persisted in place.
	schema, err := os.ReadFile(cfg.SchemaPath())
	require.NoError(t, err)
	require.NotContains(t, string(schema), "gogoproto")
	require.NotContains(t, string(schema), "annotations.proto")
	require.NotContains(t, string(schema), "google.api.http")
	require.Contains(t, string(schema), "import \"kv.proto\";")
	require.Contains(t, string(schema), "import \"auth.proto\";")

	// Package marker created.
	require.FileExists(t, filepath.Join(cfg.OutDir(), "__init__.py"))

	// Generated artifacts patched.
	pb2, err := os.ReadFile(filepath.Join(cfg.OutDir(), "rpc_pb2.py"))
	require.NoError(t, err)
	require.Equal(t, "from etcd3.etcdrpc import auth_pb2 as auth__pb2\nfrom etcd3.etcdrpc import kv_pb2 as kv__pb2\n", string(pb2))

	grpcStub, err := os.ReadFile(filepath.Join(cfg.OutDir(), "rpc_pb2_grpc.py"))
	require.NoError(t, err)
	require.Equal(t, "import grpc\nfrom etcd3.etcdrpc import rpc_pb2 as rpc__pb2\n", string(grpcStub))
}

func TestRun_GeneratorFailureHaltsPipeline(t *testing.T) {
	python := fakeProtoc(t, "echo 'rpc.proto: syntax error' >&2\nexit 3\n")
	cfg := testConfig(t, python)

	outcome := New(cfg).Run(context.Background())
	require.ErrorIs(t, outcome.Err, perrors.ErrProtocFailed)
	require.Equal(t, 3, outcome.ExitCode)
	require.Equal(t, StageGenerate, outcome.Stage)

	// Import patching never ran.
	require.NoFileExists(t, filepath.Join(cfg.OutDir(), "rpc_pb2.py"))

	// The schema mutation already happened; failure does not roll it back.
	schema, err := os.ReadFile(cfg.SchemaPath())
	require.NoError(t, err)
	require.NotContains(t, string(schema), "gogoproto")
}

func TestRun_MissingServiceStubIsWarning(t *testing.T) {
	python := fakeProtoc(t, "printf 'import auth_pb2\\nimport kv_pb2\\n' > \"$out/rpc_pb2.py\"\n")
	cfg := testConfig(t, python)

	outcome := New(cfg).Run(context.Background())
	require.NoError(t, outcome.Err)
	require.Equal(t, 0, outcome.ExitCode)

	pb2, err := os.ReadFile(filepath.Join(cfg.OutDir(), "rpc_pb2.py"))
	require.NoError(t, err)
	require.Equal(t, "from etcd3.etcdrpc import auth_pb2\nfrom etcd3.etcdrpc import kv_pb2\n", string(pb2))
}

func TestRun_MissingToolchainMutatesNothing(t *testing.T) {
	cfg := testConfig(t, "protogen-no-such-interpreter")

	outcome := New(cfg).Run(context.Background())
	require.ErrorIs(t, outcome.Err, perrors.ErrToolchainNotFound)
	require.Equal(t, 1, outcome.ExitCode)
	require.Equal(t, StageCheckToolchain, outcome.Stage)

	// Schema untouched and no output directory created.
	schema, err := os.ReadFile(cfg.SchemaPath())
	require.NoError(t, err)
	require.Equal(t, schemaInput, string(schema))
	require.NoDirExists(t, cfg.OutDir())
}

func TestRun_Rerunnable(t *testing.T) {
	python := fakeProtoc(t, ""+
		"printf 'import auth_pb2\\n' > \"$out/rpc_pb2.py\"\n"+
		"printf 'import rpc_pb2\\n' > \"$out/rpc_pb2_grpc.py\"\n")
	cfg := testConfig(t, python)

	first := New(cfg).Run(context.Background())
	require.Equal(t, 0, first.ExitCode)
	schemaOnce, err := os.ReadFile(cfg.SchemaPath())
	require.NoError(t, err)

	// A second run over the already-filtered schema is a no-op filter plus a
	// fresh generation; the schema must be byte-identical afterwards.
	second := New(cfg).Run(context.Background())
	require.Equal(t, 0, second.ExitCode)
	schemaTwice, err := os.ReadFile(cfg.SchemaPath())
	require.NoError(t, err)
	require.Equal(t, string(schemaOnce), string(schemaTwice))
}

func TestPatchFiles_DerivedFromSchemaList(t *testing.T) {
	cfg := testConfig(t, "python3")
	p := New(cfg)

	files := p.patchFiles()
	require.Len(t, files, 2)
	require.Equal(t, filepath.Join(cfg.OutDir(), "rpc_pb2.py"), files[0].Path)
	require.Equal(t, filepath.Join(cfg.OutDir(), "rpc_pb2_grpc.py"), files[1].Path)
	require.Equal(t, "import auth_pb2", files[0].Rules[0].Prefix)
	require.Equal(t, "from etcd3.etcdrpc import auth_pb2", files[0].Rules[0].Replacement)
	require.Equal(t, "import rpc_pb2", files[1].Rules[0].Prefix)
}
