// Package config loads and validates the protogen configuration.
//
// The tool must run with zero configuration against the standard project
// layout; a config file only overrides the defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file consulted when no --config flag is given.
const DefaultPath = "protogen.yaml"

// Config represents the application configuration.
type Config struct {
	// Root is the project root all relative paths resolve against.
	Root      string          `yaml:"root,omitempty"`
	Proto     ProtoConfig     `yaml:"proto"`
	Generator GeneratorConfig `yaml:"generator"`
	Filter    []FilterRule    `yaml:"filter,omitempty"`
}

// ProtoConfig describes the schema sources.
type ProtoConfig struct {
	// Dir is the include directory holding the schema files.
	Dir string `yaml:"dir"`
	// Schema is the file the line filter rewrites before generation.
	Schema string `yaml:"schema"`
	// Files are the schema files passed to protoc, in invocation order.
	// The first entry is the unit whose generated code gets its sibling
	// imports patched.
	Files []string `yaml:"files,omitempty"`
}

// GeneratorConfig describes the external generator and its output.
type GeneratorConfig struct {
	// Python is the interpreter used to run grpc.tools.protoc.
	// Overridable via PROTOGEN_PYTHON.
	Python string `yaml:"python,omitempty"`
	// OutDir receives both generated message code and service stubs.
	OutDir string `yaml:"out_dir"`
	// Package is the Python package path generated imports are qualified
	// with during patching.
	Package string `yaml:"package"`
}

// FilterRule is the YAML form of one line-filter table entry.
type FilterRule struct {
	Action  string `yaml:"action"` // "drop", "drop_block" or "substitute"
	Match   string `yaml:"match"`
	Lines   int    `yaml:"lines,omitempty"`   // drop_block only
	Replace string `yaml:"replace,omitempty"` // substitute only
}

// Load reads the configuration from configPath, applying .env files,
// defaults and validation.
//
// A missing file at the default path yields pure defaults so the tool works
// out of the box in a standard checkout; a missing file at an explicitly
// requested path is an error.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err) && configPath == DefaultPath:
		// Zero-config run.
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.Proto.Files) == 0 {
		return fmt.Errorf("proto.files must list at least one schema file")
	}
	for _, r := range c.Filter {
		switch r.Action {
		case "drop":
		case "drop_block":
			if r.Lines <= 0 {
				return fmt.Errorf("filter rule %q: drop_block requires lines > 0", r.Match)
			}
		case "substitute":
			if r.Replace == "" {
				return fmt.Errorf("filter rule %q: substitute requires a replace value", r.Match)
			}
		default:
			return fmt.Errorf("filter rule %q: unknown action %q", r.Match, r.Action)
		}
		if r.Match == "" {
			return fmt.Errorf("filter rule with action %q: match must not be empty", r.Action)
		}
	}
	return nil
}

// ProtoDir returns the include directory resolved against Root.
func (c *Config) ProtoDir() string { return c.resolve(c.Proto.Dir) }

// SchemaPath returns the absolute path of the schema file to filter.
func (c *Config) SchemaPath() string { return filepath.Join(c.ProtoDir(), c.Proto.Schema) }

// OutDir returns the generator output directory resolved against Root.
func (c *Config) OutDir() string { return c.resolve(c.Generator.OutDir) }

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Root, path)
}

// Init writes a config file populated with the defaults, so users have a
// complete template to edit.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	cfg := &Config{}
	cfg.applyDefaults()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
