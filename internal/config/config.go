package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"stakenode/internal/ots"
	"stakenode/internal/receipt"
)

const EnvPrefix = "STAKENODE_"

type Config struct {
	// MessageQSize is the per-class capacity of the message receipt cache.
	MessageQSize  int    `yaml:"message_q_size"`
	KeyTreeHeight int    `yaml:"key_tree_height"`
	KeyPath       string `yaml:"key_path"`
	VerifyWorkers int    `yaml:"verify_workers"`
	LogLevel      string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		MessageQSize:  receipt.DefaultCapacity,
		KeyTreeHeight: 10,
		KeyPath:       filepath.Join("data", "node_key.json"),
		VerifyWorkers: runtime.NumCPU(),
		LogLevel:      "info",
	}
}

// Load reads path (if non-empty) over the defaults, then applies STAKENODE_*
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config")
		}
		if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	ints := map[string]*int{
		"MESSAGE_Q_SIZE":  &c.MessageQSize,
		"KEY_TREE_HEIGHT": &c.KeyTreeHeight,
		"VERIFY_WORKERS":  &c.VerifyWorkers,
	}
	for name, dst := range ints {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(err, "env %s%s", EnvPrefix, name)
		}
		*dst = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvPrefix + "KEY_PATH")); v != "" {
		c.KeyPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPrefix + "LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	return nil
}

func (c Config) Validate() error {
	if c.MessageQSize <= 0 {
		return errors.Errorf("message_q_size must be positive, got %d", c.MessageQSize)
	}
	if c.KeyTreeHeight <= 0 || c.KeyTreeHeight > ots.MaxHeight {
		return errors.Errorf("key_tree_height must be in 1..%d, got %d", ots.MaxHeight, c.KeyTreeHeight)
	}
	if c.VerifyWorkers <= 0 {
		return errors.Errorf("verify_workers must be positive, got %d", c.VerifyWorkers)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	return nil
}

// SetupLogging applies LogLevel to the standard logrus logger.
func (c Config) SetupLogging() {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
