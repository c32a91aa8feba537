package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/weftwork/weft/internal/cli/config"
	"github.com/weftwork/weft/internal/cli/ui"
	"github.com/weftwork/weft/internal/watch"
	"github.com/weftwork/weft/internal/web"
	"github.com/weftwork/weft/loader"
)

const shutdownGrace = 5 * time.Second

type serveOptions struct {
	host    string
	port    int
	noWatch bool
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the loaded tree over HTTP with live reload",
		Long: color.CyanString(`Run the dev server: load the project's metadata documents, serve the
finished tree as JSON on a local port, and push a reload event to
connected clients whenever a source document changes on disk.

Endpoints: /api/tree, /api/objects, /api/objects/{name}, /api/types,
/api/stats, /healthz, and /ws for the websocket reload channel.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "bind address (default from weft.yaml)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "listen port (default from weft.yaml)")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "serve without watching for changes")

	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	host := cfg.Serve.Host
	if opts.host != "" {
		host = opts.host
	}
	port := cfg.Serve.Port
	if opts.port != 0 {
		port = opts.port
	}

	reg, err := newCatalog()
	if err != nil {
		return err
	}

	store, err := web.NewStore(func() (*loader.Loader, error) {
		ld, _, err := loadProject(reg, cfg, "serve")
		return ld, err
	})
	if err != nil {
		return err
	}
	if err := store.Reload(); err != nil {
		ui.WriteLoadError(cmd.ErrOrStderr(), err, color.NoColor)
		return fmt.Errorf("initial load failed")
	}

	srv, err := web.New(web.Config{Host: host, Port: port}, reg, store, logger())
	if err != nil {
		return err
	}

	if !opts.noWatch {
		watcher, err := watch.New(watch.Config{
			Roots:    watchRoots(cfg),
			Patterns: cfg.Watch.Patterns,
			Ignored:  cfg.Watch.Ignored,
		}, srv.OnChange, logger())
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.WriteSuccess(cmd.OutOrStdout(),
		fmt.Sprintf("serving metadata on http://%s", srv.Addr()),
		color.NoColor)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// watchRoots maps the config's source entries to the directories the
// watcher should cover. File entries watch their parent directory.
func watchRoots(cfg *config.Config) []string {
	seen := make(map[string]struct{})
	var roots []string
	for _, entry := range cfg.Sources {
		root := entry
		if info, err := os.Stat(entry); err != nil || !info.IsDir() {
			root = filepath.Dir(entry)
		}
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}
