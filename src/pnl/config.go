package pnl

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Offset into the hour at which the hourly snapshot job runs, so the
	// current-hour window is nearly complete when it is captured.
	HourlyOffset time.Duration `envconfig:"PNL_HOURLY_OFFSET" default:"55m"`
	// Offset past midnight UTC at which the daily rollup runs.
	DailyOffset time.Duration `envconfig:"PNL_DAILY_OFFSET" default:"5m"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
