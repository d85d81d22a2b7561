package engines

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	StaleTimeout  time.Duration `envconfig:"ENGINE_STALE_TIMEOUT" default:"30s"`
	SweepInterval time.Duration `envconfig:"ENGINE_SWEEP_INTERVAL" default:"10s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
