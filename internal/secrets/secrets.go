// Package secrets resolves credentials that are absent from the environment
// and config file from the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zalando/go-keyring"

	"github.com/jgoulah/poemcast/internal/config"
)

const serviceName = "poemcast"

// Store reads and writes named secrets
type Store interface {
	Get(name string) (string, error)
	Set(name, value string) error
}

// Keychain is a Store backed by the system keychain
type Keychain struct{}

// Get retrieves a secret from the system keychain.
func (Keychain) Get(name string) (string, error) {
	return keyring.Get(serviceName, name)
}

// Set stores a secret in the system keychain.
func (Keychain) Set(name, value string) error {
	return keyring.Set(serviceName, name, value)
}

// fields maps each secret's environment name to its slot in the config
func fields(cfg *config.Config) map[string]*string {
	return map[string]*string{
		"OPENAI_API_KEY":     &cfg.AI.OpenAIAPIKey,
		"COHERE_API_KEY":     &cfg.AI.CohereAPIKey,
		"ANTHROPIC_API_KEY":  &cfg.AI.AnthropicAPIKey,
		"SLACK_BOT_TOKEN":    &cfg.Slack.BotToken,
		"BLUESKY_PASSWORD":   &cfg.Bluesky.Password,
		"TELEGRAM_BOT_TOKEN": &cfg.Telegram.BotToken,
		"MQTT_PASSWORD":      &cfg.MQTT.Password,
	}
}

// Names returns the secret names the keychain may hold
func Names() []string {
	var names []string
	for name := range fields(&config.Config{}) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is a recognised secret
func Known(name string) bool {
	_, ok := fields(&config.Config{})[name]
	return ok
}

// Fill sets every empty secret in cfg from the store and returns the names it
// filled. A missing entry or an unavailable keychain leaves the value empty.
func Fill(cfg *config.Config, store Store) []string {
	var filled []string
	for _, name := range Names() {
		dst := fields(cfg)[name]
		if *dst != "" {
			continue
		}
		v, err := store.Get(name)
		if err != nil || v == "" {
			continue
		}
		*dst = v
		filled = append(filled, name)
	}
	return filled
}

// Lookup returns a stored secret, translating a missing entry into a readable error
func Lookup(store Store, name string) (string, error) {
	if !Known(name) {
		return "", fmt.Errorf("unknown secret: %s", name)
	}
	v, err := store.Get(name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("secret %s is not stored in the keychain", name)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s from keychain: %w", name, err)
	}
	return v, nil
}
