package eventbus

import (
	"os"
	"regexp"
	"time"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

// compileTopicPattern compiles a topic pattern cap key the same way a
// caller building a *regexp.Regexp key for Subscribe would,
// wrapping the failure with the offending pattern for context.
func compileTopicPattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Annotatef(err, "invalid topic pattern %q", pattern)
	}
	return re, nil
}

// Config is the YAML-loadable counterpart to the functional Options
// below: a convenience composition over operations the spec already
// names (setDefaultCacheSize, setCacheSizeForTopic, the reaper
// thresholds), never a new semantic of its own.
type Config struct {
	// DefaultCacheSize is the cache cap used when no class or topic cap
	// resolves to anything more specific.
	DefaultCacheSize int `yaml:"default_cache_size"`

	// TopicCacheSizes sets exact-topic cache caps.
	TopicCacheSizes map[string]int `yaml:"topic_cache_sizes"`

	// TopicPatternCacheSizes sets cache caps keyed by a regular
	// expression over topic names (spec §4.4's TopicPattern dimension).
	TopicPatternCacheSizes map[string]int `yaml:"topic_pattern_cache_sizes"`

	// Reaper tuning. Nil/zero fields leave the corresponding threshold
	// disabled, matching spec §4.5 ("all three nullable").
	ReaperHighWater int            `yaml:"reaper_high_water"`
	ReaperLowWater  int            `yaml:"reaper_low_water"`
	ReaperPeriod    *time.Duration `yaml:"reaper_period"`

	// TimingThreshold enables the Timing Monitor when non-nil.
	TimingThreshold *time.Duration `yaml:"timing_threshold"`
	// TimingSelfSubscribe mirrors spec §4.6's self-subscribe flag.
	TimingSelfSubscribe bool `yaml:"timing_self_subscribe"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "reading eventbus config %q", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Annotatef(err, "parsing eventbus config %q", path)
	}
	return &cfg, nil
}

// Apply pushes every setting in cfg onto svc, via the same setter
// operations a caller could invoke directly.
func (cfg *Config) Apply(svc *Service) error {
	svc.SetDefaultCacheSize(cfg.DefaultCacheSize)

	for topic, size := range cfg.TopicCacheSizes {
		svc.SetCacheSizeForTopic(topic, size)
	}

	for pattern, size := range cfg.TopicPatternCacheSizes {
		re, err := compileTopicPattern(pattern)
		if err != nil {
			return errors.Annotatef(err, "compiling topic pattern cap %q", pattern)
		}
		svc.SetCacheSizeForTopicPattern(re, size)
	}

	if cfg.ReaperHighWater > 0 {
		hw := cfg.ReaperHighWater
		svc.SetCleanupStartThreshold(&hw)
	}
	if cfg.ReaperLowWater > 0 {
		lw := cfg.ReaperLowWater
		svc.SetCleanupStopThreshold(&lw)
	}
	if cfg.ReaperPeriod != nil {
		svc.SetCleanupPeriod(cfg.ReaperPeriod)
	}

	if cfg.TimingThreshold != nil {
		return svc.ConfigureTimingMonitor(cfg.TimingThreshold, cfg.TimingSelfSubscribe)
	}
	return nil
}
