package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nick-dorsch/planner/internal/config"
	"github.com/nick-dorsch/planner/internal/planner"
	"github.com/nick-dorsch/planner/internal/storage"
	"github.com/nick-dorsch/planner/internal/ui"
)

// app carries the global flags and the session opened for a command.
type app struct {
	dir     string
	verbose bool

	logger *slog.Logger
	cfg    *config.Config
	store  storage.Store
	svc    *planner.Service
	close  func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "planner",
		Short: "Planner - hierarchical tasks with weekly, monthly and yearly views",
		Long: `Planner keeps a list of tasks and subtasks in a local CSV file or SQLite
database and can mirror it to a spreadsheet web app, a blob container or Neo4j.

Run without arguments to pick a command from a menu.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = newLogger(a.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMenu(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.dir, "dir", "C", ".", "Project directory containing .planner/")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging on stderr")

	root.AddCommand(
		newInitCmd(a),
		newAddCmd(a),
		newSubCmd(a),
		newEditCmd(a),
		newToggleCmd(a),
		newRmCmd(a),
		newListCmd(a),
		newStatsCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newHistoryCmd(a),
		newBrowseCmd(a),
		newWebCmd(a),
		newMCPCmd(a),
	)
	return root
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (a *app) runMenu(cmd *cobra.Command) error {
	selected, err := ui.RunMenu()
	if err != nil {
		return fmt.Errorf("failed to run menu: %w", err)
	}
	if selected == "" {
		return nil
	}

	sub, _, err := cmd.Find([]string{selected})
	if err != nil || sub == cmd {
		return fmt.Errorf("unknown command: %s", selected)
	}
	sub.SetContext(cmd.Context())
	return sub.RunE(sub, nil)
}

// open loads the config, the store and the task forest for a.dir.
func (a *app) open(ctx context.Context) error {
	if a.logger == nil {
		a.logger = newLogger(a.verbose)
	}

	cfg, err := config.Load(a.dir)
	if err != nil {
		return err
	}
	store, closeStore, err := cfg.OpenStore(ctx, a.dir, a.logger)
	if err != nil {
		return err
	}

	svc := planner.New(store, planner.WithLogger(a.logger), planner.WithSchema(cfg.Schema()))
	if _, err := svc.Load(ctx); err != nil {
		a.logger.Warn("starting with an empty task list", "error", err)
		if st, ok := store.(*storage.SyncStore); ok && st.Held() {
			a.logger.Warn("changes stay local until tasks load again", "remotes", len(st.Remotes))
		}
	}

	a.cfg = cfg
	a.store = store
	a.svc = svc
	a.close = closeStore
	a.logger.Debug("opened planner", "dir", a.dir, "store", store.Name(), "tasks", svc.Tasks().Len())
	return nil
}

// shutdown flushes pending saves and releases the store.
func (a *app) shutdown() error {
	if a.svc == nil {
		return nil
	}
	saveErr := a.svc.Close()
	closeErr := a.close()
	a.svc = nil

	return errors.Join(localOnly(saveErr), closeErr)
}

// localOnly drops remote sync failures. The local copy was written and the
// service has already logged what went wrong remotely.
func localOnly(err error) error {
	var remote *storage.RemoteError
	if errors.As(err, &remote) {
		return nil
	}
	return err
}

// withService wraps a command body with open and shutdown.
func (a *app) withService(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.open(cmd.Context()); err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, a.shutdown())
		}()
		return fn(cmd, args)
	}
}
