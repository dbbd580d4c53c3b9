package backtest

import (
	"log/slog"
	"time"

	"tradebench/internal/domain"
)

// simulator holds the mutable capital/position/equity state of exactly one
// run. The engine builds a fresh simulator per Run call, so state can never
// leak between runs and concurrent runs never share an instance.
type simulator struct {
	cfg Config
	log *slog.Logger

	cash   float64
	open   *domain.Position
	closed []domain.Position
	equity []domain.EquityPoint
}

func newSimulator(cfg Config, log *slog.Logger) *simulator {
	return &simulator{
		cfg:  cfg,
		log:  log,
		cash: cfg.InitialCapital,
	}
}

// apply processes one signal and records an equity snapshot. Buys while in a
// position, sells while flat, and unaffordable entries are skipped with a log
// entry, never an error.
func (s *simulator) apply(sig domain.Signal) {
	switch sig.Type {
	case domain.SignalBuy:
		s.openPosition(sig)
	case domain.SignalSell:
		s.closePosition(sig)
	}
	s.markEquity(sig.Date, sig.Price)
}

func (s *simulator) openPosition(sig domain.Signal) {
	if s.open != nil {
		s.log.Warn("already in position, skipping buy signal", "date", sig.Date)
		return
	}

	available := s.cash * s.cfg.PositionSizePct
	entryPrice := sig.Price*(1+s.cfg.SlippagePct) + s.cfg.Slippage

	// quantity*entryPrice*(1+commissionPct) + commission <= available
	costPerShare := entryPrice * (1 + s.cfg.CommissionPct)
	quantity := int64((available - s.cfg.Commission) / costPerShare)

	if quantity <= 0 {
		s.log.Warn("insufficient capital to buy", "date", sig.Date, "price", sig.Price)
		return
	}

	entryValue := float64(quantity) * entryPrice
	commission := s.cfg.Commission + entryValue*s.cfg.CommissionPct

	if entryValue+commission > s.cash {
		s.log.Warn("insufficient capital for trade", "date", sig.Date, "cost", entryValue+commission)
		return
	}

	s.cash -= entryValue + commission
	s.open = &domain.Position{
		EntryDate:      sig.Date,
		EntryPrice:     entryPrice,
		Quantity:       quantity,
		Side:           domain.PositionSideLong,
		Status:         domain.PositionOpen,
		EntryValue:     entryValue,
		CommissionPaid: commission,
	}

	s.log.Info("opened position",
		"quantity", quantity, "entry_price", entryPrice, "cash", s.cash)
}

func (s *simulator) closePosition(sig domain.Signal) {
	if s.open == nil {
		s.log.Warn("no open position to close", "date", sig.Date)
		return
	}

	exitPrice := sig.Price*(1-s.cfg.SlippagePct) - s.cfg.Slippage
	exitValue := float64(s.open.Quantity) * exitPrice
	exitCommission := s.cfg.Commission + exitValue*s.cfg.CommissionPct

	s.cash += exitValue - exitCommission

	totalCommission := s.open.CommissionPaid + exitCommission
	pnl := exitValue - s.open.EntryValue - totalCommission
	pnlPct := pnl / s.open.EntryValue * 100

	date := sig.Date
	s.open.ExitDate = &date
	s.open.ExitPrice = &exitPrice
	s.open.ExitValue = &exitValue
	s.open.PnL = &pnl
	s.open.PnLPct = &pnlPct
	s.open.Status = domain.PositionClosed
	s.open.CommissionPaid = totalCommission

	s.log.Info("closed position",
		"quantity", s.open.Quantity, "exit_price", exitPrice,
		"pnl", pnl, "pnl_pct", pnlPct, "cash", s.cash)

	s.closed = append(s.closed, *s.open)
	s.open = nil
}

// markEquity appends one equity-curve point at the signal's date, valuing
// any open position at the signal's price.
func (s *simulator) markEquity(date time.Time, price float64) {
	value := s.cash
	if s.open != nil {
		value += float64(s.open.Quantity) * price
	}

	s.equity = append(s.equity, domain.EquityPoint{
		Date:      date,
		Equity:    value,
		Cash:      s.cash,
		Return:    value - s.cfg.InitialCapital,
		ReturnPct: (value - s.cfg.InitialCapital) / s.cfg.InitialCapital * 100,
	})
}

// positions returns every position touched during the run, closed trades
// first, then the still-open position if one remains.
func (s *simulator) positions() []domain.Position {
	out := make([]domain.Position, 0, len(s.closed)+1)
	out = append(out, s.closed...)
	if s.open != nil {
		out = append(out, *s.open)
	}
	return out
}
