package env

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	LogLevel  string `env:"CMDMGR_LOG_LEVEL,default=info"`
	DebugHTTP bool   `env:"CMDMGR_DEBUG_HTTP"`

	// Trace logs every decoded message handled by the servers
	Trace bool `env:"CMDMGR_TRACE"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
