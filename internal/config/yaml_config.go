package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBlacklist lists generic high-authority domains that are never outreach candidates.
var DefaultBlacklist = []string{
	"youtube.com",
	"facebook.com",
	"twitter.com",
	"linkedin.com",
	"wikipedia.org",
	"reddit.com",
	"pinterest.com",
	"instagram.com",
}

// YAMLConfig represents the structure of the config.yaml file.
// Lists and schedules that are easier to manage in YAML than env vars.
type YAMLConfig struct {
	Outreach  OutreachConfig  `yaml:"outreach"`
	RankCheck RankCheckConfig `yaml:"rank_check"`
	Jobs      JobsConfig      `yaml:"jobs"`
}

// OutreachConfig tunes the outreach target finder.
type OutreachConfig struct {
	Blacklist      []string `yaml:"blacklist"`
	MaxCompetitors int      `yaml:"max_competitors"`
	MaxTargets     int      `yaml:"max_targets"`
	SERPDepth      int      `yaml:"serp_depth"`
	ReferringLimit int      `yaml:"referring_limit"`
}

// RankCheckConfig sets defaults for SERP rank checks.
type RankCheckConfig struct {
	Device string `yaml:"device"`
	Depth  int    `yaml:"depth"`
}

// JobsConfig defines background job schedules.
type JobsConfig struct {
	RankCheckInterval time.Duration `yaml:"rank_check_interval"`
	GSCSyncInterval   time.Duration `yaml:"gsc_sync_interval"`
	GSCSyncDays       int           `yaml:"gsc_sync_days"`
}

// LoadYAMLConfig loads the YAML configuration file.
// Path is determined by CONFIG_FILE env var, defaulting to "config.yaml".
// A missing file yields the defaults.
func LoadYAMLConfig() (*YAMLConfig, error) {
	return LoadYAMLConfigFile(getEnv("CONFIG_FILE", "config.yaml"))
}

// LoadYAMLConfigFile loads the YAML configuration from path and applies defaults.
func LoadYAMLConfigFile(path string) (*YAMLConfig, error) {
	var cfg YAMLConfig

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *YAMLConfig) applyDefaults() {
	if c.Outreach.Blacklist == nil {
		c.Outreach.Blacklist = append([]string(nil), DefaultBlacklist...)
	}
	if c.Outreach.MaxCompetitors <= 0 {
		c.Outreach.MaxCompetitors = 5
	}
	if c.Outreach.MaxTargets <= 0 {
		c.Outreach.MaxTargets = 10
	}
	if c.Outreach.SERPDepth <= 0 {
		c.Outreach.SERPDepth = 20
	}
	if c.Outreach.ReferringLimit <= 0 {
		c.Outreach.ReferringLimit = 500
	}
	if c.RankCheck.Device == "" {
		c.RankCheck.Device = "desktop"
	}
	if c.RankCheck.Depth <= 0 {
		c.RankCheck.Depth = 100
	}
	if c.Jobs.RankCheckInterval <= 0 {
		c.Jobs.RankCheckInterval = 24 * time.Hour
	}
	if c.Jobs.GSCSyncInterval <= 0 {
		c.Jobs.GSCSyncInterval = 24 * time.Hour
	}
	if c.Jobs.GSCSyncDays <= 0 {
		c.Jobs.GSCSyncDays = 7
	}
}
