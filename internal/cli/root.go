// Package cli wires the annotate commands.
package cli

import (
	"context"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tgienger/annotate/internal/config"
	"github.com/tgienger/annotate/internal/db"
	"github.com/tgienger/annotate/internal/logging"
	"github.com/tgienger/annotate/internal/metrics"
	"github.com/tgienger/annotate/internal/models"
	"github.com/tgienger/annotate/internal/records"
	"github.com/tgienger/annotate/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BuildInfo is set from ldflags in main
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// app carries state shared by every command
type app struct {
	build      BuildInfo
	configPath string
	logLevel   string
	asJSON     bool

	cfg    *config.Config
	log    *logrus.Logger
	closer io.Closer

	db  *db.DB
	svc *service.Service
	// registry and collector are set when the service was opened with Prometheus metrics.
	registry  *prometheus.Registry
	collector metrics.Collector

	out io.Writer
}

// Execute runs the command line and releases every resource it opened
func Execute(ctx context.Context, build BuildInfo, args []string) error {
	a := &app{build: build, out: os.Stdout}
	root := a.rootCmd()
	root.SetArgs(args)
	defer a.teardown()
	return root.ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	build := a.build
	root := &cobra.Command{
		Use:           "annotate",
		Short:         "Coordinate multi-worker labeling of JSONL record sets",
		Version:       build.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			return a.setup(cmd.ErrOrStderr())
		},
	}
	root.SetVersionTemplate("annotate {{.Version}} (commit: " + build.Commit + ", built: " + build.Date + ")\n")

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", os.Getenv(config.EnvPrefix+"CONFIG"), "path to a YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "override the configured log level")
	flags.BoolVar(&a.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		a.migrateCmd(),
		a.ingestCmd(),
		a.tasksCmd(),
		a.partitionCmd(),
		a.assignCmd(),
		a.saveCmd(),
		a.getCmd(),
		a.progressCmd(),
		a.rollupCmd(),
		a.statsCmd(),
		a.leaderboardCmd(),
		a.exportCmd(),
		a.userCmd(),
		a.serveCmd(),
		a.tuiCmd(),
	)
	return root
}

func (a *app) setup(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	log, closer, err := logging.New(cfg.Log, stderr)
	if err != nil {
		return err
	}
	a.cfg, a.log, a.closer = cfg, log, closer
	return nil
}

func (a *app) teardown() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
	if a.closer != nil {
		a.closer.Close()
		a.closer = nil
	}
}

// open connects the stores. Unless migrating, a database with pending
// migrations is refused.
func (a *app) open(withMetrics bool) (*service.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	database, err := a.openDB()
	if err != nil {
		return nil, err
	}
	if err := database.CheckSchema(); err != nil {
		return nil, err
	}

	store, err := records.NewStore(a.cfg.RecordsDir, a.log)
	if err != nil {
		return nil, err
	}
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}

	opts := []service.Option{service.WithLogger(a.log)}
	if withMetrics {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.collector = metrics.NewPrometheus(a.registry, "annotate")
		opts = append(opts, service.WithMetrics(a.collector))
	}

	a.svc = service.New(database, store, service.Config{
		OperatorInvite:   a.cfg.Invites.OperatorCode,
		WorkerInvite:     a.cfg.Invites.WorkerCode,
		LeaderboardLimit: a.cfg.Leaderboard.DefaultLimit,
		StatsLocation:    loc,
		StatsWindowDays:  a.cfg.Stats.WindowDays,
	}, opts...)
	return a.svc, nil
}

func (a *app) openDB() (*db.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	database, err := db.New(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a.db = database
	return database, nil
}

// userRef resolves a username or id to a user id. Unknown references are
// returned unchanged so ledger queries still work for ids without a user row.
func (a *app) userRef(svc *service.Service, ref string) (string, error) {
	u, err := svc.ResolveUser(ref)
	if errors.Is(err, models.ErrUnknownUser) {
		return ref, nil
	}
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return errors.WithStack(enc.Encode(v))
}
