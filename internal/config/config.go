package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"inviteguard"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" env-default:"false"`
	ApiKey  string `yaml:"api_key" env-default:""`
	ChatID  int64  `yaml:"chat_id" env-default:"0"`
}

type StripeConfig struct {
	APIKey        string `yaml:"api_key" env-default:""`
	WebhookSecret string `yaml:"webhook_secret" env-default:""`
}

type GatewayConfig struct {
	BaseURL string `yaml:"base_url" env-default:""`
	Token   string `yaml:"token" env-default:""`
}

// GuildDefaults seed the settings row for guilds seen for the first time.
type GuildDefaults struct {
	JoinBurstCount     int    `yaml:"join_burst_count" env-default:"7"`
	JoinBurstWindowSec int    `yaml:"join_burst_window_sec" env-default:"10"`
	MinAccountAgeHours int    `yaml:"min_account_age_hours" env-default:"72"`
	AutoKickYoung      bool   `yaml:"auto_kick_young" env-default:"false"`
	LinkSpamThreshold  int    `yaml:"link_spam_threshold" env-default:"3"`
	LinkSpamWindowSec  int    `yaml:"link_spam_window_sec" env-default:"30"`
	LockdownSlowmode   int    `yaml:"lockdown_slowmode_sec" env-default:"15"`
	QuarantineRole     string `yaml:"quarantine_role" env-default:"Quarantine"`
}

type SecurityConfig struct {
	TimeoutMinutes int `yaml:"timeout_minutes" env-default:"30"`
}

type Config struct {
	Env      string         `yaml:"env" env-default:"local"`
	Listen   Listen         `yaml:"listen"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Telegram TelegramConfig `yaml:"telegram"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Defaults GuildDefaults  `yaml:"defaults"`
	Security SecurityConfig `yaml:"security"`
	Cache    struct {
		Size int `yaml:"size" env-default:"4096"`
	} `yaml:"cache"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
