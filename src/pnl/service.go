package pnl

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradingrelay/src/model"
	"tradingrelay/src/repository"
)

// Currency rates to USD equivalent. USDC and USDT are treated as 1:1 with
// USD; unknown currencies default to 1.0 until the table is extended.
var currencyRatesToUsd = map[string]decimal.Decimal{
	"USDC": decimal.NewFromInt(1),
	"USDT": decimal.NewFromInt(1),
	"USD":  decimal.NewFromInt(1),
}

func toUsd(amount decimal.Decimal, currency string) decimal.Decimal {
	rate, ok := currencyRatesToUsd[currency]
	if !ok {
		rate = decimal.NewFromInt(1)
	}
	return amount.Mul(rate)
}

// Service reduces raw trades into hourly PnL snapshots and rolls hourly
// snapshots into daily and weekly ones. Every write is an upsert by the
// snapshot composite key, so re-running any window is idempotent.
type Service struct {
	trades    *repository.TradeRepository
	bots      *repository.BotRepository
	snapshots *repository.PnlRepository
	now       func() time.Time
}

func NewService(trades *repository.TradeRepository, bots *repository.BotRepository, snapshots *repository.PnlRepository) *Service {
	return &Service{
		trades:    trades,
		bots:      bots,
		snapshots: snapshots,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type tradeMetrics struct {
	RealizedPnl    float64
	RealizedPnlUsd float64
	TotalVolume    float64
	TotalVolumeUsd float64
	TradeCount     int
	WinCount       int
	LossCount      int
	WinRate        float64
	AvgWin         float64
	AvgLoss        float64
	Fees           float64
	FeesUsd        float64
}

// calculateTradeMetrics reduces one group of trades. It is a pure function
// of the trade set, which is what makes hourly snapshots reproducible.
func calculateTradeMetrics(trades []model.Trade) tradeMetrics {
	var (
		realizedPnl    = decimal.Zero
		realizedPnlUsd = decimal.Zero
		totalVolume    = decimal.Zero
		totalVolumeUsd = decimal.Zero
		totalFees      = decimal.Zero
		totalFeesUsd   = decimal.Zero
		totalWinPnl    = decimal.Zero
		totalLossPnl   = decimal.Zero
		winCount       int
		lossCount      int
	)

	for _, trade := range trades {
		currency := trade.Currency
		if currency == "" {
			currency = "USDC"
		}

		pnl := decimal.NewFromFloat(trade.RealizedPnl)
		volume := decimal.NewFromFloat(trade.Size).Mul(decimal.NewFromFloat(trade.Price))
		fee := decimal.NewFromFloat(trade.Fee)

		realizedPnl = realizedPnl.Add(pnl)
		realizedPnlUsd = realizedPnlUsd.Add(toUsd(pnl, currency))
		totalVolume = totalVolume.Add(volume)
		totalVolumeUsd = totalVolumeUsd.Add(toUsd(volume, currency))
		totalFees = totalFees.Add(fee)
		totalFeesUsd = totalFeesUsd.Add(toUsd(fee, currency))

		switch {
		case pnl.IsPositive():
			winCount++
			totalWinPnl = totalWinPnl.Add(pnl)
		case pnl.IsNegative():
			lossCount++
			totalLossPnl = totalLossPnl.Add(pnl.Abs())
		}
	}

	tradeCount := len(trades)
	winRate := decimal.Zero
	if tradeCount > 0 {
		winRate = decimal.NewFromInt(int64(winCount)).
			Div(decimal.NewFromInt(int64(tradeCount))).
			Round(4)
	}

	avgWin := decimal.Zero
	if winCount > 0 {
		avgWin = totalWinPnl.Div(decimal.NewFromInt(int64(winCount)))
	}
	avgLoss := decimal.Zero
	if lossCount > 0 {
		avgLoss = totalLossPnl.Div(decimal.NewFromInt(int64(lossCount)))
	}

	return tradeMetrics{
		RealizedPnl:    realizedPnl.InexactFloat64(),
		RealizedPnlUsd: realizedPnlUsd.InexactFloat64(),
		TotalVolume:    totalVolume.InexactFloat64(),
		TotalVolumeUsd: totalVolumeUsd.InexactFloat64(),
		TradeCount:     tradeCount,
		WinCount:       winCount,
		LossCount:      lossCount,
		WinRate:        winRate.InexactFloat64(),
		AvgWin:         avgWin.InexactFloat64(),
		AvgLoss:        avgLoss.InexactFloat64(),
		Fees:           totalFees.InexactFloat64(),
		FeesUsd:        totalFeesUsd.InexactFloat64(),
	}
}

func (m tradeMetrics) snapshot(entityType, entityID, exchange, currency string, timestamp time.Time, isPaper bool) *model.PnlSnapshot {
	return &model.PnlSnapshot{
		EntityType:     entityType,
		EntityID:       entityID,
		Exchange:       exchange,
		Period:         model.PnlPeriodHour,
		Timestamp:      timestamp,
		IsPaper:        isPaper,
		Currency:       currency,
		RealizedPnl:    m.RealizedPnl,
		RealizedPnlUsd: m.RealizedPnlUsd,
		TotalPnl:       m.RealizedPnl,
		TotalPnlUsd:    m.RealizedPnlUsd,
		TotalVolume:    m.TotalVolume,
		TotalVolumeUsd: m.TotalVolumeUsd,
		TradeCount:     m.TradeCount,
		WinCount:       m.WinCount,
		LossCount:      m.LossCount,
		WinRate:        m.WinRate,
		AvgWin:         m.AvgWin,
		AvgLoss:        m.AvgLoss,
		Fees:           m.Fees,
		FeesUsd:        m.FeesUsd,
	}
}

// CreateHourlySnapshots builds per-bot, per-exchange and global snapshots for
// the current hour window. Returns the number of snapshots written.
func (s *Service) CreateHourlySnapshots(ctx context.Context) (int, error) {
	hourStart := s.now().Truncate(time.Hour)
	hourEnd := hourStart.Add(time.Hour)

	trades, err := s.trades.FindInWindow(ctx, hourStart, hourEnd)
	if err != nil {
		return 0, err
	}
	if len(trades) == 0 {
		logger.Debug("[pnl] No trades in current hour, skipping snapshot")
		return 0, nil
	}

	var snapshots []*model.PnlSnapshot

	// Per-bot snapshots. The bot record supplies exchange and paper mode;
	// trades for unknown bots are skipped.
	tradesByBot := make(map[string][]model.Trade)
	for _, trade := range trades {
		tradesByBot[trade.BotID] = append(tradesByBot[trade.BotID], trade)
	}

	botIDs := make([]string, 0, len(tradesByBot))
	for botID := range tradesByBot {
		botIDs = append(botIDs, botID)
	}
	bots, err := s.bots.FindByBotIDs(ctx, botIDs)
	if err != nil {
		return 0, err
	}
	botByID := make(map[string]model.Bot, len(bots))
	for _, bot := range bots {
		botByID[bot.BotID] = bot
	}

	for botID, botTrades := range tradesByBot {
		bot, ok := botByID[botID]
		if !ok {
			continue
		}

		currency := botTrades[0].Currency
		if currency == "" {
			currency = "USDC"
		}

		metrics := calculateTradeMetrics(botTrades)
		snapshots = append(snapshots, metrics.snapshot(
			model.PnlEntityBot, botID, bot.Exchange, currency,
			hourStart, bot.Mode == model.BotModePaper,
		))
	}

	// Per-exchange snapshots.
	tradesByExchange := make(map[string][]model.Trade)
	for _, trade := range trades {
		tradesByExchange[trade.Exchange] = append(tradesByExchange[trade.Exchange], trade)
	}
	for exchange, exchangeTrades := range tradesByExchange {
		metrics := calculateTradeMetrics(exchangeTrades)
		snapshots = append(snapshots, metrics.snapshot(
			model.PnlEntityExchange, exchange, exchange, "USDC",
			hourStart, false,
		))
	}

	// Global snapshot over everything.
	globalMetrics := calculateTradeMetrics(trades)
	snapshots = append(snapshots, globalMetrics.snapshot(
		model.PnlEntityTotal, "global", "all", "USDC",
		hourStart, false,
	))

	for _, snapshot := range snapshots {
		if err := s.snapshots.Upsert(ctx, snapshot); err != nil {
			return 0, err
		}
	}

	logger.WithField("count", len(snapshots)).Info("[pnl] Hourly snapshots created")
	return len(snapshots), nil
}

// AggregateSnapshots rolls the 1h snapshots of one entity in [start, end)
// into a single snapshot of the target period. Additive fields are summed;
// the win rate is recomputed from the summed counts, never averaged.
func (s *Service) AggregateSnapshots(
	ctx context.Context,
	entityType, entityID, exchange, targetPeriod string,
	start, end time.Time,
	isPaper bool,
) error {
	hourlies, err := s.snapshots.FindHourly(ctx, entityType, entityID, exchange, isPaper, start, end)
	if err != nil {
		return err
	}
	if len(hourlies) == 0 {
		return nil
	}

	var (
		realizedPnl    = decimal.Zero
		realizedPnlUsd = decimal.Zero
		totalVolume    = decimal.Zero
		totalVolumeUsd = decimal.Zero
		totalFees      = decimal.Zero
		totalFeesUsd   = decimal.Zero
		tradeCount     int
		winCount       int
		lossCount      int
	)

	for _, h := range hourlies {
		realizedPnl = realizedPnl.Add(decimal.NewFromFloat(h.RealizedPnl))
		realizedPnlUsd = realizedPnlUsd.Add(decimal.NewFromFloat(h.RealizedPnlUsd))
		totalVolume = totalVolume.Add(decimal.NewFromFloat(h.TotalVolume))
		totalVolumeUsd = totalVolumeUsd.Add(decimal.NewFromFloat(h.TotalVolumeUsd))
		totalFees = totalFees.Add(decimal.NewFromFloat(h.Fees))
		totalFeesUsd = totalFeesUsd.Add(decimal.NewFromFloat(h.FeesUsd))
		tradeCount += h.TradeCount
		winCount += h.WinCount
		lossCount += h.LossCount
	}

	winRate := decimal.Zero
	if tradeCount > 0 {
		winRate = decimal.NewFromInt(int64(winCount)).
			Div(decimal.NewFromInt(int64(tradeCount))).
			Round(4)
	}

	return s.snapshots.Upsert(ctx, &model.PnlSnapshot{
		EntityType:     entityType,
		EntityID:       entityID,
		Exchange:       exchange,
		Period:         targetPeriod,
		Timestamp:      start,
		IsPaper:        isPaper,
		Currency:       "USDC",
		RealizedPnl:    realizedPnl.InexactFloat64(),
		RealizedPnlUsd: realizedPnlUsd.InexactFloat64(),
		TotalPnl:       realizedPnl.InexactFloat64(),
		TotalPnlUsd:    realizedPnlUsd.InexactFloat64(),
		TotalVolume:    totalVolume.InexactFloat64(),
		TotalVolumeUsd: totalVolumeUsd.InexactFloat64(),
		TradeCount:     tradeCount,
		WinCount:       winCount,
		LossCount:      lossCount,
		WinRate:        winRate.InexactFloat64(),
		Fees:           totalFees.InexactFloat64(),
		FeesUsd:        totalFeesUsd.InexactFloat64(),
	})
}

// RunDailyAggregation rolls the previous day's hourly snapshots into 1d
// snapshots for every entity observed in that day. On Mondays it additionally
// rolls the previous seven days into a 1w snapshot.
func (s *Service) RunDailyAggregation(ctx context.Context) error {
	now := s.now()
	dayStart := now.Truncate(24 * time.Hour)
	prevDayStart := dayStart.Add(-24 * time.Hour)

	keys, err := s.snapshots.FindHourlyEntityKeys(ctx, prevDayStart, dayStart)
	if err != nil {
		return err
	}

	for _, k := range keys {
		if err := s.AggregateSnapshots(ctx,
			k.EntityType, k.EntityID, k.Exchange, model.PnlPeriodDay,
			prevDayStart, dayStart, k.IsPaper,
		); err != nil {
			return err
		}
	}

	if now.Weekday() == time.Monday {
		weekStart := prevDayStart.Add(-6 * 24 * time.Hour)
		for _, k := range keys {
			if err := s.AggregateSnapshots(ctx,
				k.EntityType, k.EntityID, k.Exchange, model.PnlPeriodWeek,
				weekStart, dayStart, k.IsPaper,
			); err != nil {
				return err
			}
		}
	}

	logger.WithFields(map[string]interface{}{
		"entities": len(keys),
		"day":      prevDayStart.Format(time.RFC3339),
	}).Info("[pnl] Daily aggregation done")

	return nil
}
