package worker

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Concurrency  int           `envconfig:"WORKER_CONCURRENCY" default:"5"`
	BackoffBase  time.Duration `envconfig:"WORKER_BACKOFF_BASE" default:"1s"`
	DequeueBlock time.Duration `envconfig:"WORKER_DEQUEUE_BLOCK" default:"5s"`
	MoveInterval time.Duration `envconfig:"WORKER_MOVE_INTERVAL" default:"1s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
