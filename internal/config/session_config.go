package config

import (
	"path/filepath"
	"time"
)

type SessionConfig interface {
	GetSessionFile() string
	GetMaxSessionAge() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetSessionFile() string {
	return filepath.Join(EnvVars{}.GetDataFolder(), "session.db")
}

// GetMaxSessionAge is only consulted for tokens that carry no exp claim.
func (Session) GetMaxSessionAge() time.Duration {
	return 48 * time.Hour
}
