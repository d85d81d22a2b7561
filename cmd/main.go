package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"tradingrelay/src/database"
	"tradingrelay/src/engines"
	"tradingrelay/src/pnl"
	"tradingrelay/src/repository"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Relay CMD"
	app.Usage = "Operational commands for the trading-engine relay"

	app.Commands = []cli.Command{
		aggregateDailyCMD,
		sweepCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	aggregateDailyCMD = cli.Command{
		Name:        "aggregate-daily",
		Usage:       "run the daily PnL rollup now",
		Action:      aggregateDailyAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Roll the previous day's hourly PnL snapshots into daily (and weekly) snapshots`,
	}
	sweepCMD = cli.Command{
		Name:        "sweep",
		Usage:       "run one stale-engine sweep",
		Action:      sweepAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Mark engines without a recent heartbeat as offline`,
	}
)

func aggregateDailyAction(_ *cli.Context) error {
	logrus.Info("Starting daily aggregation CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to database")
		return err
	}

	service := pnl.NewService(
		repository.NewTradeRepository(),
		repository.NewBotRepository(),
		repository.NewPnlRepository(),
	)

	if err := service.RunDailyAggregation(context.Background()); err != nil {
		logrus.WithError(err).Error("Daily aggregation failed")
		return err
	}

	return nil
}

func sweepAction(_ *cli.Context) error {
	logrus.Info("Starting stale sweep CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to database")
		return err
	}

	tracker := engines.NewTracker(repository.NewEngineRepository(), engines.GetConfig())

	count, err := tracker.CheckStale(context.Background())
	if err != nil {
		logrus.WithError(err).Error("Stale sweep failed")
		return err
	}

	logrus.WithField("count", count).Info("Stale sweep completed")
	return nil
}
