package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load(DefaultPath)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(".", "src/etcd3/proto"), cfg.ProtoDir())
	require.Equal(t, filepath.Join(".", "src/etcd3/proto", "rpc.proto"), cfg.SchemaPath())
	require.Equal(t, filepath.Join(".", "src/etcd3/etcdrpc"), cfg.OutDir())
	require.Equal(t, "etcd3.etcdrpc", cfg.Generator.Package)
	require.Equal(t, []string{"rpc.proto", "auth.proto", "kv.proto"}, cfg.Proto.Files)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protogen.yaml")
	content := `
root: /workspace/etcd3
proto:
  dir: protos
  schema: service.proto
  files: [service.proto, common.proto]
generator:
  out_dir: gen
  package: myproj.gen
filter:
  - action: drop
    match: deprecated
  - action: substitute
    match: old/path.proto
    replace: path.proto
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/workspace/etcd3/protos", cfg.ProtoDir())
	require.Equal(t, "/workspace/etcd3/protos/service.proto", cfg.SchemaPath())
	require.Equal(t, "/workspace/etcd3/gen", cfg.OutDir())
	require.Equal(t, "myproj.gen", cfg.Generator.Package)
	require.Len(t, cfg.Filter, 2)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("PROTOGEN_TEST_ROOT", "/data/proj")
	path := filepath.Join(t.TempDir(), "protogen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root: ${PROTOGEN_TEST_ROOT}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/data/proj", cfg.Root)
}

func TestLoad_PythonEnvOverride(t *testing.T) {
	t.Setenv("PROTOGEN_PYTHON", "/opt/python/bin/python3")
	path := filepath.Join(t.TempDir(), "protogen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generator:\n  python: python3.11\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/opt/python/bin/python3", cfg.Generator.Python)
}

func TestValidate_FilterRules(t *testing.T) {
	cases := []struct {
		name string
		rule FilterRule
		ok   bool
	}{
		{"drop", FilterRule{Action: "drop", Match: "gogoproto"}, true},
		{"drop_block", FilterRule{Action: "drop_block", Match: "option", Lines: 3}, true},
		{"drop_block without lines", FilterRule{Action: "drop_block", Match: "option"}, false},
		{"substitute", FilterRule{Action: "substitute", Match: "a", Replace: "b"}, true},
		{"substitute without replace", FilterRule{Action: "substitute", Match: "a"}, false},
		{"unknown action", FilterRule{Action: "rewrite", Match: "a"}, false},
		{"empty match", FilterRule{Action: "drop"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Filter: []FilterRule{tc.rule}}
			cfg.applyDefaults()
			err := cfg.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestInit_RefusesOverwriteWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protogen.yaml")
	require.NoError(t, Init(path, false))
	require.FileExists(t, path)

	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	// The generated template must itself load cleanly.
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, defaultPackage, cfg.Generator.Package)
}
