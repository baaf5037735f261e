package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nhle/messagelist/internal/model"
	"github.com/nhle/messagelist/internal/store"
)

// rootOptions holds the persistent flags and what PersistentPreRunE derives
// from them.
type rootOptions struct {
	configPath string
	folder     string
	database   string
	logLevel   string

	cfg *model.AppConfig
}

// New returns the messagelist command tree.
func New() *cobra.Command {
	ro := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "messagelist",
		Short: "Threaded, grouped views of a mail folder in the terminal.",
		Long: `messagelist keeps mail folders in a local SQLite database and shows
them as a tree: messages grouped by date or correspondent and threaded by
their Message-Id, References and subject.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ro.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&ro.configPath, "config", "c", model.DefaultConfigPath(),
		"Path to the configuration file.")
	cmd.PersistentFlags().StringVarP(&ro.folder, "folder", "f", "",
		"Folder to work on (defaults to the configured folder).")
	cmd.PersistentFlags().StringVar(&ro.database, "db", "",
		"Path to the message database (defaults to the configured one).")
	cmd.PersistentFlags().StringVar(&ro.logLevel, "log-level", "",
		"Log level: debug, info, warn or error.")

	addCommands(cmd, ro)
	return cmd
}

// addCommands registers every subcommand on topLevel.
func addCommands(topLevel *cobra.Command, ro *rootOptions) {
	addTUI(topLevel, ro)
	addImport(topLevel, ro)
	addDump(topLevel, ro)
	addFolders(topLevel, ro)
	addSync(topLevel, ro)
	addLogin(topLevel, ro)
	addConfigure(topLevel, ro)
}

// load reads the configuration and applies the flag overrides.
func (ro *rootOptions) load() error {
	cfg, err := model.LoadConfig(ro.configPath)
	if err != nil {
		return err
	}
	if ro.folder != "" {
		cfg.Folder = ro.folder
	}
	if ro.database != "" {
		cfg.Database = ro.database
	}
	if ro.logLevel != "" {
		cfg.Log.Level = ro.logLevel
	}
	ro.cfg = cfg
	return nil
}

// openStore opens the configured database, creating its directory.
func (ro *rootOptions) openStore() (*store.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(ro.cfg.Database), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	return store.NewSQLiteStore(ro.cfg.Database)
}

// openFolder opens the store and loads the configured folder from it.
func (ro *rootOptions) openFolder(ctx context.Context, log *logrus.Entry) (*store.SQLiteStore, *store.Folder, error) {
	s, err := ro.openStore()
	if err != nil {
		return nil, nil, err
	}
	f, err := store.OpenFolder(ctx, s, ro.cfg.Folder, log)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, f, nil
}

// logger builds the logger described by the log section. Without a log
// file, interactive commands discard log output and the others write it to
// stderr. The returned func closes the log file.
func (ro *rootOptions) logger(interactive bool, stderr io.Writer) (*logrus.Entry, func(), error) {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level := logrus.InfoLevel
	if ro.cfg.Log.Level != "" {
		var err error
		if level, err = logrus.ParseLevel(ro.cfg.Log.Level); err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
	}
	l.SetLevel(level)

	path := ro.cfg.Log.File
	if path == "" {
		if interactive {
			l.SetOutput(io.Discard)
		} else {
			l.SetOutput(stderr)
		}
		return logrus.NewEntry(l), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	l.SetOutput(f)
	return logrus.NewEntry(l), func() { f.Close() }, nil
}
