// Package pipeline orchestrates the schema generation run.
//
// Stages execute strictly in sequence: filter the schema, persist it, invoke
// the external generator, patch the generated imports. A generator failure
// halts the run before patching and carries the generator's own exit code;
// missing artifacts during patching are warnings, not failures.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jianjungki/protogen/internal/config"
	"github.com/jianjungki/protogen/internal/filter"
	"github.com/jianjungki/protogen/internal/logfields"
	"github.com/jianjungki/protogen/internal/patch"
	"github.com/jianjungki/protogen/internal/protoc"
	"github.com/jianjungki/protogen/internal/schemafile"
)

// StageName identifies one pipeline stage in logs and outcomes.
type StageName string

const (
	StageCheckToolchain StageName = "check_toolchain"
	StageFilterSchema   StageName = "filter_schema"
	StagePersistSchema  StageName = "persist_schema"
	StageGenerate       StageName = "generate"
	StagePatchImports   StageName = "patch_imports"
)

// Outcome is the terminal result of a pipeline run.
//
// ExitCode is what the process should exit with: 0 on success, the
// generator's own exit code on generator failure, 1 on setup or I/O failure.
type Outcome struct {
	ExitCode int
	Stage    StageName // stage that failed; empty on success
	Err      error
}

// Pipeline runs the filter, persist, generate and patch stages in order for
// one configuration.
type Pipeline struct {
	cfg     *config.Config
	invoker *protoc.Invoker
	rules   []filter.Rule
	runID   string
}

// New assembles a pipeline from the configuration. Each pipeline carries a
// fresh run ID that tags every log line of the run.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg: cfg,
		invoker: &protoc.Invoker{
			Python:   cfg.Generator.Python,
			ProtoDir: cfg.ProtoDir(),
			OutDir:   cfg.OutDir(),
			Schemas:  cfg.Proto.Files,
		},
		rules: rulesFromConfig(cfg),
		runID: uuid.NewString(),
	}
}

// RunID returns the identifier tagging this run's log lines.
func (p *Pipeline) RunID() string { return p.runID }

// Run executes the full pipeline. It never calls os.Exit; the caller maps the
// Outcome to a process exit code.
func (p *Pipeline) Run(ctx context.Context) Outcome {
	log := slog.With(logfields.RunID(p.runID))

	// The toolchain probe runs before any stage touches disk, so a missing
	// toolchain never leaves a half-mutated schema behind.
	if err := p.invoker.CheckToolchain(ctx); err != nil {
		return Outcome{ExitCode: 1, Stage: StageCheckToolchain, Err: err}
	}

	var raw, lines []string
	err := p.runStage(log, StageFilterSchema, func() error {
		var err error
		raw, err = schemafile.ReadLines(p.cfg.SchemaPath())
		if err != nil {
			return err
		}
		lines = filter.Apply(raw, p.rules)
		return nil
	})
	if err != nil {
		return Outcome{ExitCode: 1, Stage: StageFilterSchema, Err: err}
	}

	err = p.runStage(log, StagePersistSchema, func() error {
		// An already-filtered schema yields identical lines; skipping the
		// write keeps watch mode from retriggering on its own output.
		if strings.Join(lines, "") == strings.Join(raw, "") {
			log.Debug("Schema already filtered, skipping write", logfields.Schema(p.cfg.SchemaPath()))
			return nil
		}
		return schemafile.WriteLines(p.cfg.SchemaPath(), lines)
	})
	if err != nil {
		return Outcome{ExitCode: 1, Stage: StagePersistSchema, Err: err}
	}

	var res protoc.Result
	err = p.runStage(log, StageGenerate, func() error {
		if err := p.invoker.PrepareOutputDir(); err != nil {
			return err
		}
		var runErr error
		res, runErr = p.invoker.Run(ctx)
		return runErr
	})
	if err != nil {
		// Surface both captured streams verbatim for diagnostics.
		if res.Stdout != "" {
			fmt.Fprintln(os.Stdout, res.Stdout)
		}
		if res.Stderr != "" {
			fmt.Fprintln(os.Stderr, res.Stderr)
		}
		code := res.ExitCode
		if code == 0 {
			code = 1
		}
		return Outcome{ExitCode: code, Stage: StageGenerate, Err: err}
	}
	if res.Stdout != "" {
		fmt.Fprintln(os.Stdout, res.Stdout)
	}
	if res.Stderr != "" {
		log.Warn("protoc reported warnings", "stderr", res.Stderr)
	}

	err = p.runStage(log, StagePatchImports, func() error {
		return patch.Apply(p.patchFiles())
	})
	if err != nil {
		return Outcome{ExitCode: 1, Stage: StagePatchImports, Err: err}
	}

	log.Info("Proto files generated successfully")
	return Outcome{}
}

func (p *Pipeline) runStage(log *slog.Logger, name StageName, fn func() error) error {
	start := time.Now()
	log.Info("Stage starting", logfields.Stage(string(name)))
	err := fn()
	dur := logfields.DurationMS(float64(time.Since(start)) / float64(time.Millisecond))
	if err != nil {
		log.Error("Stage failed", logfields.Stage(string(name)), dur, logfields.Error(err))
		return err
	}
	log.Info("Stage completed", logfields.Stage(string(name)), dur)
	return nil
}

// rulesFromConfig converts configured filter rules into the filter table,
// falling back to the built-in etcd rule set when none are configured.
func rulesFromConfig(cfg *config.Config) []filter.Rule {
	if len(cfg.Filter) == 0 {
		return filter.DefaultRules()
	}
	rules := make([]filter.Rule, 0, len(cfg.Filter))
	for _, r := range cfg.Filter {
		switch r.Action {
		case "drop":
			rules = append(rules, filter.Drop(r.Match))
		case "drop_block":
			rules = append(rules, filter.DropBlock(r.Match, r.Lines))
		case "substitute":
			rules = append(rules, filter.Substitute(r.Match, r.Replace))
		}
	}
	return rules
}

// patchFiles derives the artifact patch set from the schema list: the main
// unit's message module imports every sibling unit's module, and the main
// unit's service-stub module imports the message module.
func (p *Pipeline) patchFiles() []patch.File {
	pkg := p.cfg.Generator.Package
	mainMod := moduleName(p.cfg.Proto.Files[0])

	var siblings []patch.Rule
	for _, f := range p.cfg.Proto.Files[1:] {
		mod := moduleName(f)
		siblings = append(siblings, patch.Rule{
			Prefix:      "import " + mod,
			Replacement: "from " + pkg + " import " + mod,
		})
	}

	return []patch.File{
		{
			Path:  filepath.Join(p.cfg.OutDir(), mainMod+".py"),
			Rules: siblings,
		},
		{
			Path: filepath.Join(p.cfg.OutDir(), mainMod+"_grpc.py"),
			Rules: []patch.Rule{{
				Prefix:      "import " + mainMod,
				Replacement: "from " + pkg + " import " + mainMod,
			}},
		},
	}
}

// moduleName maps a schema file name to its generated Python module stem,
// e.g. rpc.proto -> rpc_pb2.
func moduleName(schema string) string {
	return strings.TrimSuffix(filepath.Base(schema), ".proto") + "_pb2"
}
