package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bjarke-xyz/fmh/internal/app"
	"github.com/bjarke-xyz/fmh/internal/config"
	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/internal/repository/db"
	"github.com/bjarke-xyz/fmh/pkg/event"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type rootOptions struct {
	viper   *viper.Viper
	offline bool
}

// NewRootCmd builds the fmh command tree. Flags are also read from FMH_*
// environment variables.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{viper: viper.New()}
	root := &cobra.Command{
		Use:   "fmh",
		Short: "fmh claims and news",
		Long: `fmh serves the claims and news api and gives command line access to
the same claim cards and news lists.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().String("db", "", "sqlite database file (default $DB_CONN_STR or fmh.db)")
	_ = opts.viper.BindPFlag("db", root.PersistentFlags().Lookup("db"))
	opts.viper.SetEnvPrefix("FMH")
	opts.viper.AutomaticEnv()

	root.AddCommand(serveCmd(opts), migrateCmd(opts), newsCmd(opts), claimCmd(opts))
	return root
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func (o *rootOptions) config() (*config.Config, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath := o.viper.GetString("db"); dbPath != "" {
		cfg.DbConnStr = dbPath
	}
	if o.viper.IsSet("port") {
		cfg.Port = o.viper.GetInt("port")
	}
	return cfg, nil
}

// openApp opens and migrates the database and wires the repositories. The
// returned func closes the database.
func (o *rootOptions) openApp() (*core.AppContext, func(), error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening db: %w", err)
	}
	closeDb := func() {
		db.Close(cfg)
	}
	if err := db.Migrate("up", conn.DB); err != nil {
		closeDb()
		return nil, nil, fmt.Errorf("failed to migrate: %w", err)
	}
	appContext, err := app.AppContext(cfg)
	if err != nil {
		closeDb()
		return nil, nil, err
	}
	if o.offline {
		appContext.Deps.NewsSource = nil
	}
	return appContext, closeDb, nil
}

// report prints the success signal, or fails with the failure signal. A nil
// success means the operation succeeds silently.
func report(out io.Writer, fired map[*event.Event]bool, success *event.Event, failure *event.Event) error {
	if fired[failure] {
		return errors.New(failure.Name())
	}
	if success == nil {
		return nil
	}
	if !fired[success] {
		return errors.New("no signal received")
	}
	fmt.Fprintln(out, success.Name())
	return nil
}

func intArg(name string, arg string) (int, error) {
	val, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid %v %q", name, arg)
	}
	return val, nil
}

// parseDate accepts a date, an RFC3339 timestamp or epoch millis.
func parseDate(s string) (int64, error) {
	if millis, err := strconv.ParseInt(s, 10, 64); err == nil {
		return millis, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("invalid date %q", s)
}

func formatMillis(millis int64) string {
	return time.UnixMilli(millis).UTC().Format("2006-01-02 15:04")
}
