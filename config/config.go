package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/relaybot/core/config"
)

// RelayConfig describes the operator side of the bot: where customer
// cards go and who may act as operator.
type RelayConfig struct {
	// ManagerChatID is the chat that receives customer cards and relayed
	// customer messages. Usually a private chat or small group.
	ManagerChatID int64 `yaml:"manager_chat_id" envconfig:"MANAGER_CHAT_ID"`
	// ManagerIDs lists user ids allowed to act as operator.
	ManagerIDs []int64 `yaml:"manager_ids" envconfig:"MANAGER_IDS"`
	// LinkCapacity bounds the reply-link table; 0 -> built-in default.
	LinkCapacity int `yaml:"link_capacity" envconfig:"RELAY_LINK_CAPACITY"`
}

// FlowConfig tunes the scripted questionnaire.
type FlowConfig struct {
	// ReminderDelaySeconds is the silence window before a reminder fires.
	ReminderDelaySeconds int `yaml:"reminder_delay_seconds" envconfig:"FLOW_REMINDER_DELAY_SECONDS"`
	// OfferPhotoURL is the house photo attached to the offer step.
	OfferPhotoURL string `yaml:"offer_photo_url" envconfig:"FLOW_OFFER_PHOTO_URL"`
}

// Config aggregates core settings with the relay bot specifics.
type Config struct {
	Core  coreconfig.Config `yaml:",inline"`
	Relay RelayConfig       `yaml:"relay"`
	Flow  FlowConfig        `yaml:"flow"`
}

const (
	defaultReminderDelaySeconds = 300
	defaultOfferPhotoURL        = "https://i.imgur.com/4M34hi2.jpg"
)

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults. Missing operator
// settings are fatal: the bot cannot relay anything without them.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return err
	}

	if cfg.Relay.ManagerChatID == 0 {
		return fmt.Errorf("relay.manager_chat_id is required")
	}
	if len(cfg.Relay.ManagerIDs) == 0 {
		return fmt.Errorf("relay.manager_ids must list at least one operator")
	}
	if cfg.Relay.LinkCapacity < 0 {
		return fmt.Errorf("relay.link_capacity must be >= 0")
	}

	if cfg.Flow.ReminderDelaySeconds < 0 {
		return fmt.Errorf("flow.reminder_delay_seconds must be >= 0")
	}
	if cfg.Flow.ReminderDelaySeconds == 0 {
		cfg.Flow.ReminderDelaySeconds = defaultReminderDelaySeconds
	}
	if cfg.Flow.OfferPhotoURL == "" {
		cfg.Flow.OfferPhotoURL = defaultOfferPhotoURL
	}
	return nil
}
