// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/genvex/tunnel/internal/registers"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if len(cfg.Devices) == 0 {
		return fmt.Errorf("config: no devices configured")
	}

	seenID := make(map[string]bool)

	for _, d := range cfg.Devices {
		if d.ID == "" {
			return fmt.Errorf("config: device entry missing id")
		}
		if seenID[d.ID] {
			return fmt.Errorf("config: duplicate device id %q", d.ID)
		}
		seenID[d.ID] = true

		if d.IP == "" && !d.Discover {
			return fmt.Errorf("device %q: must set either ip or discover", d.ID)
		}
		if d.IP != "" && d.Discover {
			return fmt.Errorf("device %q: ip and discover are mutually exclusive", d.ID)
		}
		if d.Email == "" {
			return fmt.Errorf("device %q: email is required", d.ID)
		}
		if _, err := registers.ByModelName(d.Model); err != nil {
			return fmt.Errorf("device %q: %w", d.ID, err)
		}
		if d.Port < 0 {
			return fmt.Errorf("device %q: port must not be negative", d.ID)
		}
		if d.PollIntervalMs < 0 {
			return fmt.Errorf("device %q: poll_interval_ms must not be negative", d.ID)
		}
		if d.MaxConsecutiveErrors < 0 {
			return fmt.Errorf("device %q: max_consecutive_errors must not be negative", d.ID)
		}
		if d.Discovery.TimeoutMs < 0 || d.Discovery.Retries < 0 || d.Discovery.RetryIntervalMs < 0 {
			return fmt.Errorf("device %q: discovery timing fields must not be negative", d.ID)
		}
		if d.Connect.Retries < 0 || d.Connect.RetryIntervalMs < 0 {
			return fmt.Errorf("device %q: connect timing fields must not be negative", d.ID)
		}
	}

	if cfg.History.Enabled && cfg.History.Path == "" {
		return fmt.Errorf("config: history.enabled is true but history.path is empty")
	}

	return nil
}
