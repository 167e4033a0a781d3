// internal/config/normalize.go
package config

// Default timing values applied by Normalize, mirroring
// internal/session and internal/discovery's own package defaults
// (SPEC_FULL.md section 10.2).
const (
	defaultPort                 = 5570
	defaultPollIntervalMs       = 30000
	defaultMaxConsecutiveErrors = 3

	defaultDiscoveryTimeoutMs       = 5000
	defaultDiscoveryRetries         = 3
	defaultDiscoveryRetryIntervalMs = 1000

	defaultConnectRetries         = 5
	defaultConnectRetryIntervalMs = 1000
)

// Normalize applies post-validation defaulting.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	for i := range cfg.Devices {
		d := &cfg.Devices[i]

		if d.Port == 0 {
			d.Port = defaultPort
		}
		if d.PollIntervalMs == 0 {
			d.PollIntervalMs = defaultPollIntervalMs
		}
		if d.MaxConsecutiveErrors == 0 {
			d.MaxConsecutiveErrors = defaultMaxConsecutiveErrors
		}

		if d.Discovery.TimeoutMs == 0 {
			d.Discovery.TimeoutMs = defaultDiscoveryTimeoutMs
		}
		if d.Discovery.Retries == 0 {
			d.Discovery.Retries = defaultDiscoveryRetries
		}
		if d.Discovery.RetryIntervalMs == 0 {
			d.Discovery.RetryIntervalMs = defaultDiscoveryRetryIntervalMs
		}

		if d.Connect.Retries == 0 {
			d.Connect.Retries = defaultConnectRetries
		}
		if d.Connect.RetryIntervalMs == 0 {
			d.Connect.RetryIntervalMs = defaultConnectRetryIntervalMs
		}
	}
}
