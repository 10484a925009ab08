package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	TransportConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIURL() string
	GetDataFolder() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Transport
	Session
}

func New() Config {
	return mainConfig{}
}

// LoadDotEnv loads variables from the given .env files into the process environment.
// Missing files are ignored so a bare environment still works.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	present := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}
