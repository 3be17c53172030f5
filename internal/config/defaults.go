package config

import "os"

// Defaults mirror the standard python-etcd3 checkout layout.
const (
	defaultProtoDir = "src/etcd3/proto"
	defaultSchema   = "rpc.proto"
	defaultOutDir   = "src/etcd3/etcdrpc"
	defaultPackage  = "etcd3.etcdrpc"
)

func (c *Config) applyDefaults() {
	if c.Root == "" {
		c.Root = "."
	}
	if c.Proto.Dir == "" {
		c.Proto.Dir = defaultProtoDir
	}
	if c.Proto.Schema == "" {
		c.Proto.Schema = defaultSchema
	}
	if len(c.Proto.Files) == 0 {
		c.Proto.Files = []string{"rpc.proto", "auth.proto", "kv.proto"}
	}
	if c.Generator.OutDir == "" {
		c.Generator.OutDir = defaultOutDir
	}
	if c.Generator.Package == "" {
		c.Generator.Package = defaultPackage
	}
	// Interpreter priority: PROTOGEN_PYTHON > config > built-in default.
	// The empty value is resolved to python3 by the invoker.
	if py := os.Getenv("PROTOGEN_PYTHON"); py != "" {
		c.Generator.Python = py
	}
}
