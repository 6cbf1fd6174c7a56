package tavla

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the tavla search engine.
type Config struct {
	// StorePath is the full path to the SQLite index file.
	StorePath string `json:"store_path" yaml:"store_path" mapstructure:"store_path"`

	// ParserParallelism bounds the Bulk Writer's parser worker pool.
	// Defaults to min(16, runtime.NumCPU()).
	ParserParallelism int `json:"parser_parallelism" yaml:"parser_parallelism" mapstructure:"parser_parallelism"`

	// DocBatch is the number of document rows accumulated before a flush.
	DocBatch int `json:"doc_batch" yaml:"doc_batch" mapstructure:"doc_batch"`

	// SegmentBatch is the number of segment rows accumulated before a flush.
	SegmentBatch int `json:"segment_batch" yaml:"segment_batch" mapstructure:"segment_batch"`

	// DocsPerTx is how many documents the Bulk Writer commits per transaction.
	DocsPerTx int `json:"docs_per_tx" yaml:"docs_per_tx" mapstructure:"docs_per_tx"`

	// QueueSize bounds the channel between parser workers and the writer.
	QueueSize int `json:"queue_size" yaml:"queue_size" mapstructure:"queue_size"`

	// ServerAddr is the listen address used by cmd/server.
	ServerAddr string `json:"server_addr" yaml:"server_addr" mapstructure:"server_addr"`

	// RegexCacheSize bounds the optional compiled-regex cache (0 disables it).
	RegexCacheSize int `json:"regex_cache_size" yaml:"regex_cache_size" mapstructure:"regex_cache_size"`
}

// DefaultConfig returns a Config with sensible defaults for a local build.
func DefaultConfig() Config {
	return Config{
		StorePath:         "tavla.db",
		ParserParallelism: defaultParallelism(),
		DocBatch:          1000,
		SegmentBatch:      30000,
		DocsPerTx:         1000,
		QueueSize:         2000,
		ServerAddr:        ":8080",
		RegexCacheSize:    256,
	}
}

func defaultParallelism() int {
	n := runtime.NumCPU()
	if n > 16 {
		return 16
	}
	if n < 1 {
		return 1
	}
	return n
}

// LoadConfig layers env > YAML file > defaults into a Config (it reads no
// command-line flags; the cmd/ binaries apply their own flags on top of the
// result), grounded on the teacher pack's spf13/viper config-manager pattern
// (jackzampolin-shelf's internal/config.Manager.initViper): env vars are
// read under the TAVLA_ prefix, cfgFile is optional (a missing file is not
// an error), and the result is validated before being returned.
func LoadConfig(cfgFile string) (Config, error) {
	defaults := DefaultConfig()

	v := viper.New()
	v.SetDefault("store_path", defaults.StorePath)
	v.SetDefault("parser_parallelism", defaults.ParserParallelism)
	v.SetDefault("doc_batch", defaults.DocBatch)
	v.SetDefault("segment_batch", defaults.SegmentBatch)
	v.SetDefault("docs_per_tx", defaults.DocsPerTx)
	v.SetDefault("queue_size", defaults.QueueSize)
	v.SetDefault("server_addr", defaults.ServerAddr)
	v.SetDefault("regex_cache_size", defaults.RegexCacheSize)

	v.SetEnvPrefix("TAVLA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("tavla: reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("tavla: parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.StorePath == "" {
		return ErrInvalidConfig
	}
	if c.ParserParallelism <= 0 {
		c.ParserParallelism = defaultParallelism()
	}
	if c.DocBatch <= 0 {
		c.DocBatch = 1000
	}
	if c.SegmentBatch <= 0 {
		c.SegmentBatch = 30000
	}
	if c.DocsPerTx <= 0 {
		c.DocsPerTx = 1000
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 2000
	}
	return nil
}
