package config

import "time"

type TransportConfig interface {
	GetRequestTimeout() time.Duration
}

type Transport struct{}

var _ TransportConfig = Transport{}

// GetRequestTimeout bounds every identity-provider exchange. A timed out request is a failed request.
func (Transport) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(GetEnv("REQUEST_TIMEOUT", "15s"))
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}
