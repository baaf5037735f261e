package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// SourceConfig holds the configuration for a single IMAP source.
type SourceConfig struct {
	// ID is the unique identifier for this source instance. It is also the
	// keyring key suffix under which the password is stored.
	ID string `mapstructure:"id" yaml:"id"`

	// Name is the user-defined label for this source instance.
	Name string `mapstructure:"name" yaml:"name"`

	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`

	// Mailbox is the remote mailbox to poll (INBOX when empty).
	Mailbox string `mapstructure:"mailbox" yaml:"mailbox"`

	// Folder is the local folder new messages are stored into.
	Folder string `mapstructure:"folder" yaml:"folder"`

	// Enabled controls whether this source is actively polled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// PollIntervalSec is how often (in seconds) to fetch updates.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// FetchLimit caps the number of newest messages fetched per poll.
	FetchLimit int `mapstructure:"fetch_limit" yaml:"fetch_limit"`
}

// AggregationConfig names the grouping and threading policies by their
// textual identifiers (see core.ParseGrouping and friends).
type AggregationConfig struct {
	Grouping     string `mapstructure:"grouping" yaml:"grouping"`
	GroupExpand  string `mapstructure:"group_expand" yaml:"group_expand"`
	Threading    string `mapstructure:"threading" yaml:"threading"`
	ThreadLeader string `mapstructure:"thread_leader" yaml:"thread_leader"`
	ThreadExpand string `mapstructure:"thread_expand" yaml:"thread_expand"`
	FillStrategy string `mapstructure:"fill_strategy" yaml:"fill_strategy"`
}

// SortConfig names the group and message sort orders.
type SortConfig struct {
	Groups           string `mapstructure:"groups" yaml:"groups"`
	GroupDirection   string `mapstructure:"group_direction" yaml:"group_direction"`
	Messages         string `mapstructure:"messages" yaml:"messages"`
	MessageDirection string `mapstructure:"message_direction" yaml:"message_direction"`
}

// ThreadingConfig holds the subject-threading time window.
type ThreadingConfig struct {
	SubjectMinGap time.Duration `mapstructure:"subject_min_gap" yaml:"subject_min_gap"`
	SubjectMaxGap time.Duration `mapstructure:"subject_max_gap" yaml:"subject_max_gap"`
}

// LogConfig controls the logrus logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database    string            `mapstructure:"database" yaml:"database"`
	Folder      string            `mapstructure:"folder" yaml:"folder"`
	Aggregation AggregationConfig `mapstructure:"aggregation" yaml:"aggregation"`
	Sort        SortConfig        `mapstructure:"sort" yaml:"sort"`
	Threading   ThreadingConfig   `mapstructure:"threading" yaml:"threading"`
	Sources     []SourceConfig    `mapstructure:"sources" yaml:"sources"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

// Default subject-threading window.
const (
	DefaultSubjectMinGap = 120 * time.Second
	DefaultSubjectMaxGap = 6 * 7 * 24 * time.Hour
)

// configDir returns ~/.config/messagelist, falling back to the working
// directory when the home directory cannot be determined.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "messagelist")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/messagelist/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: filepath.Join(configDir(), "messages.db"),
		Folder:   "INBOX",
		Aggregation: AggregationConfig{
			Grouping:     "date_range",
			GroupExpand:  "recent",
			Threading:    "perfect_references_subject",
			ThreadLeader: "topmost",
			ThreadExpand: "unread",
			FillStrategy: "interactivity",
		},
		Sort: SortConfig{
			Groups:           "date_time_most_recent",
			GroupDirection:   "descending",
			Messages:         "date_time",
			MessageDirection: "descending",
		},
		Threading: ThreadingConfig{
			SubjectMinGap: DefaultSubjectMinGap,
			SubjectMaxGap: DefaultSubjectMaxGap,
		},
		Sources: []SourceConfig{},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(configDir(), "messagelist.log"),
		},
	}
}

// setDefaults mirrors DefaultAppConfig into v so that missing keys resolve
// to sensible values.
func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("database", d.Database)
	v.SetDefault("folder", d.Folder)
	v.SetDefault("aggregation.grouping", d.Aggregation.Grouping)
	v.SetDefault("aggregation.group_expand", d.Aggregation.GroupExpand)
	v.SetDefault("aggregation.threading", d.Aggregation.Threading)
	v.SetDefault("aggregation.thread_leader", d.Aggregation.ThreadLeader)
	v.SetDefault("aggregation.thread_expand", d.Aggregation.ThreadExpand)
	v.SetDefault("aggregation.fill_strategy", d.Aggregation.FillStrategy)
	v.SetDefault("sort.groups", d.Sort.Groups)
	v.SetDefault("sort.group_direction", d.Sort.GroupDirection)
	v.SetDefault("sort.messages", d.Sort.Messages)
	v.SetDefault("sort.message_direction", d.Sort.MessageDirection)
	v.SetDefault("threading.subject_min_gap", d.Threading.SubjectMinGap)
	v.SetDefault("threading.subject_max_gap", d.Threading.SubjectMaxGap)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
// Environment variables prefixed with MESSAGELIST_ override file values.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("messagelist")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Apply defaults for each source entry.
	for i := range cfg.Sources {
		if cfg.Sources[i].PollIntervalSec == 0 {
			cfg.Sources[i].PollIntervalSec = 120
		}
		if cfg.Sources[i].Mailbox == "" {
			cfg.Sources[i].Mailbox = "INBOX"
		}
		if cfg.Sources[i].Folder == "" {
			cfg.Sources[i].Folder = cfg.Folder
		}
		if cfg.Sources[i].FetchLimit == 0 {
			cfg.Sources[i].FetchLimit = 200
		}
		if !cfg.Sources[i].Enabled {
			// Viper unmarshals missing bools as false; treat unset as true.
			key := fmt.Sprintf("sources.%d.enabled", i)
			if !v.IsSet(key) {
				cfg.Sources[i].Enabled = true
			}
		}
	}

	if cfg.Threading.SubjectMinGap < 0 || cfg.Threading.SubjectMaxGap <= 0 {
		return nil, fmt.Errorf(
			"invalid subject threading window %s..%s in %s",
			cfg.Threading.SubjectMinGap, cfg.Threading.SubjectMaxGap, path,
		)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("folder", cfg.Folder)
	v.Set("aggregation", cfg.Aggregation)
	v.Set("sort", cfg.Sort)
	v.Set("threading.subject_min_gap", cfg.Threading.SubjectMinGap.String())
	v.Set("threading.subject_max_gap", cfg.Threading.SubjectMaxGap.String())
	v.Set("sources", cfg.Sources)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
