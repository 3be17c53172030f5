package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jianjungki/protogen/internal/config"
)

// WatchCmd implements the 'watch' command: regenerate whenever a schema file
// in the proto directory changes.
type WatchCmd struct {
	Debounce time.Duration `help:"Delay after the last change before regenerating" default:"2s"`
}

func (w *WatchCmd) Run(_ *Global, cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(cfg.ProtoDir()); err != nil {
		return fmt.Errorf("watch proto directory %s: %w", cfg.ProtoDir(), err)
	}
	slog.Info("Watching for schema changes", "dir", cfg.ProtoDir(), "debounce", w.Debounce)

	changed := make(chan struct{}, 1)
	go w.watchLoop(ctx, watcher, changed)

	// Initial run so the watcher starts from generated state. Failures keep
	// the watcher alive; the next change retries.
	w.regenerate(ctx, cfg)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping watcher")
			return nil
		case <-changed:
			w.regenerate(ctx, cfg)
			// The run itself rewrote the schema in place; swallow the
			// notification that write produced before rearming.
			select {
			case <-changed:
			default:
			}
		}
	}
}

func (w *WatchCmd) regenerate(ctx context.Context, cfg *config.Config) {
	if err := runPipeline(ctx, cfg); err != nil {
		slog.Error("Regeneration failed", "error", err)
	}
}

// watchLoop debounces raw filesystem events into single change notifications.
func (w *WatchCmd) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changed chan<- struct{}) {
	var timer *time.Timer
	notify := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isSchemaEvent(event) {
				continue
			}
			slog.Debug("Schema change detected", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.AfterFunc(w.Debounce, notify)
			} else {
				timer.Reset(w.Debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", "error", err)
		}
	}
}

func isSchemaEvent(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, ".proto") {
		return false
	}
	return event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename)
}
