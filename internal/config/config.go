package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// PipelineConfig is the process-wide set of recognised safety flags and
// tunables from the pipeline config contract. A reload swaps the whole
// struct atomically so no in-flight operation observes a half-updated
// value.
type PipelineConfig struct {
	Enabled           bool
	ShadowMode        bool
	MutationsFrozen   bool
	AllowUpdateDelete bool
	GraphEnabled      bool

	AutonomousEnabled bool
	AutonomousFrozen  bool

	SemanticContradictionEnabled bool

	RerankerEnabled      bool
	RerankerTopN         int
	RerankerTimeoutMs    int
	ExtractionTimeoutMs  int
	MinFactConfidenceForWrite float64
	GraphBoostWeight     float64

	WorkerPollMs          int
	WorkerMaxRetries      int
	LeaseTimeoutMs        int
	MaintenanceIntervalMs int

	TombstoneRetentionMs    int64
	HistoryRetentionMs      int64
	CompletedJobRetentionMs int64
	DeadJobRetentionMs      int64
	BatchLimit              int
}

func defaults() PipelineConfig {
	return PipelineConfig{
		Enabled:                   true,
		ShadowMode:                false,
		MutationsFrozen:           false,
		AllowUpdateDelete:         true,
		GraphEnabled:              true,
		AutonomousEnabled:         true,
		AutonomousFrozen:          false,
		SemanticContradictionEnabled: false,
		RerankerEnabled:           false,
		RerankerTopN:              20,
		RerankerTimeoutMs:         3000,
		ExtractionTimeoutMs:       30000,
		MinFactConfidenceForWrite: 0.5,
		GraphBoostWeight:          0,
		WorkerPollMs:              2000,
		WorkerMaxRetries:          5,
		LeaseTimeoutMs:            60000,
		MaintenanceIntervalMs:     3600000,
		TombstoneRetentionMs:      30 * 24 * 3600 * 1000,
		HistoryRetentionMs:        90 * 24 * 3600 * 1000,
		CompletedJobRetentionMs:   7 * 24 * 3600 * 1000,
		DeadJobRetentionMs:        14 * 24 * 3600 * 1000,
		BatchLimit:                500,
	}
}

// Loader owns the viper instance, the filesystem watch, and the
// currently-active config, published through an atomic.Pointer so
// readers never block on and never observe a torn in-progress reload.
type Loader struct {
	v       *viper.Viper
	current atomic.Pointer[PipelineConfig]
	watcher *fsnotify.Watcher
	log     zerolog.Logger
}

// NewLoader locates and loads the config for agentsDir. Only the first
// config file found is read, searching agentsDir, then the user config
// dir, then the home dir; environment variables prefixed SIGNET_ override
// values from that file. There is no flag layer.
// agentsDir is checked first so a workspace-local `.signet/config.yaml`
// wins over anything global.
func NewLoader(agentsDir string, log zerolog.Logger) (*Loader, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	d := defaults()
	setViperDefaults(v, d)

	configFileSet := locateConfigFile(v, agentsDir)

	v.SetEnvPrefix("SIGNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	l := &Loader{v: v, log: log.With().Str("component", "config").Logger()}
	cfg := buildConfig(v)
	l.current.Store(&cfg)

	if configFileSet {
		if err := l.watch(v.ConfigFileUsed()); err != nil {
			l.log.Warn().Err(err).Msg("config hot-reload disabled, falling back to load-once")
		}
	}

	return l, nil
}

func locateConfigFile(v *viper.Viper, agentsDir string) bool {
	if agentsDir != "" {
		path := filepath.Join(agentsDir, "config.yaml")
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			return true
		}
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		path := filepath.Join(configDir, "signet", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			return true
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".signet", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			return true
		}
	}
	return false
}

func setViperDefaults(v *viper.Viper, d PipelineConfig) {
	v.SetDefault("enabled", d.Enabled)
	v.SetDefault("shadow_mode", d.ShadowMode)
	v.SetDefault("mutations_frozen", d.MutationsFrozen)
	v.SetDefault("allow_update_delete", d.AllowUpdateDelete)
	v.SetDefault("graph_enabled", d.GraphEnabled)
	v.SetDefault("autonomous_enabled", d.AutonomousEnabled)
	v.SetDefault("autonomous_frozen", d.AutonomousFrozen)
	v.SetDefault("semantic_contradiction_enabled", d.SemanticContradictionEnabled)
	v.SetDefault("reranker_enabled", d.RerankerEnabled)
	v.SetDefault("reranker_top_n", d.RerankerTopN)
	v.SetDefault("reranker_timeout_ms", d.RerankerTimeoutMs)
	v.SetDefault("extraction_timeout_ms", d.ExtractionTimeoutMs)
	v.SetDefault("min_fact_confidence_for_write", d.MinFactConfidenceForWrite)
	v.SetDefault("graph_boost_weight", d.GraphBoostWeight)
	v.SetDefault("worker_poll_ms", d.WorkerPollMs)
	v.SetDefault("worker_max_retries", d.WorkerMaxRetries)
	v.SetDefault("lease_timeout_ms", d.LeaseTimeoutMs)
	v.SetDefault("maintenance_interval_ms", d.MaintenanceIntervalMs)
	v.SetDefault("tombstone_retention_ms", d.TombstoneRetentionMs)
	v.SetDefault("history_retention_ms", d.HistoryRetentionMs)
	v.SetDefault("completed_job_retention_ms", d.CompletedJobRetentionMs)
	v.SetDefault("dead_job_retention_ms", d.DeadJobRetentionMs)
	v.SetDefault("batch_limit", d.BatchLimit)
}

func buildConfig(v *viper.Viper) PipelineConfig {
	return PipelineConfig{
		Enabled:                      v.GetBool("enabled"),
		ShadowMode:                   v.GetBool("shadow_mode"),
		MutationsFrozen:              v.GetBool("mutations_frozen"),
		AllowUpdateDelete:            v.GetBool("allow_update_delete"),
		GraphEnabled:                 v.GetBool("graph_enabled"),
		AutonomousEnabled:            v.GetBool("autonomous_enabled"),
		AutonomousFrozen:             v.GetBool("autonomous_frozen"),
		SemanticContradictionEnabled: v.GetBool("semantic_contradiction_enabled"),
		RerankerEnabled:              v.GetBool("reranker_enabled"),
		RerankerTopN:                 v.GetInt("reranker_top_n"),
		RerankerTimeoutMs:            v.GetInt("reranker_timeout_ms"),
		ExtractionTimeoutMs:          v.GetInt("extraction_timeout_ms"),
		MinFactConfidenceForWrite:    v.GetFloat64("min_fact_confidence_for_write"),
		GraphBoostWeight:             v.GetFloat64("graph_boost_weight"),
		WorkerPollMs:                 v.GetInt("worker_poll_ms"),
		WorkerMaxRetries:             v.GetInt("worker_max_retries"),
		LeaseTimeoutMs:               v.GetInt("lease_timeout_ms"),
		MaintenanceIntervalMs:        v.GetInt("maintenance_interval_ms"),
		TombstoneRetentionMs:         v.GetInt64("tombstone_retention_ms"),
		HistoryRetentionMs:           v.GetInt64("history_retention_ms"),
		CompletedJobRetentionMs:      v.GetInt64("completed_job_retention_ms"),
		DeadJobRetentionMs:           v.GetInt64("dead_job_retention_ms"),
		BatchLimit:                   v.GetInt("batch_limit"),
	}
}

// Current returns the currently active config. Safe to call from any
// goroutine; never blocks.
func (l *Loader) Current() *PipelineConfig {
	return l.current.Load()
}

// watch debounces fsnotify events on the config file and reloads+swaps
// the active config after 300ms of quiet, the way the teacher's
// FileWatcher debounces JSONL/git-ref changes before firing its callback.
func (l *Loader) watch(configPath string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(configPath)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch config directory: %w", err)
	}
	l.watcher = w

	debounced := newDebouncer(300*time.Millisecond, func() {
		if err := l.v.ReadInConfig(); err != nil {
			l.log.Warn().Err(err).Msg("config reload failed, keeping previous values")
			return
		}
		cfg := buildConfig(l.v)
		l.current.Store(&cfg)
		l.log.Info().Msg("config reloaded")
	})

	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) == filepath.Clean(configPath) {
					debounced.trigger()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.log.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()

	return nil
}

// Close stops the filesystem watch.
func (l *Loader) Close() error {
	if l.watcher == nil {
		return nil
	}
	return l.watcher.Close()
}
