// orchestrator.go
package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"auto_traider_go/config"
	"auto_traider_go/engine"
	"auto_traider_go/logs"
	"auto_traider_go/market"
	"auto_traider_go/notify"
	"auto_traider_go/profit"
	"auto_traider_go/state"

	"github.com/google/uuid"
)

// Orchestrator wires the market, the decision engine and the telegram
// channel together and drives them from a single polling loop. All
// engine state is owned by that loop's goroutine; nothing here takes a
// lock around decisions.
type Orchestrator struct {
	cfg        *config.Config
	mkt        market.Market
	advancer   market.Advancer
	eng        *engine.Engine
	sink       *notify.Sink
	channel    *notify.TelegramClient
	poller     *notify.CommandPoller
	accountant *profit.Accountant
	stateMgr   state.StateManagerInterface
	runID      string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	replayDone bool
}

func NewOrchestrator(cfg *config.Config, envCfg *config.EnvConfig, stateFilePath string) (*Orchestrator, error) {
	var (
		mkt market.Market
		err error
	)
	switch cfg.Market.Source {
	case "sim":
		logs.Warnf("<<<<<<<<<< Running against the simulated market >>>>>>>>>>")
		mkt = market.NewSimMarket(cfg.Market.Seed, cfg.Market.StartingCapital, cfg.Market.GoodNames)
	case "replay":
		mkt, err = market.NewReplayMarket(cfg.Market.ReplayFile, cfg.Market.StartingCapital)
		if err != nil {
			return nil, fmt.Errorf("failed to open replay market: %w", err)
		}
		logs.Infof("Replaying recorded market tape from %s", cfg.Market.ReplayFile)
	default:
		return nil, fmt.Errorf("unsupported market source %q", cfg.Market.Source)
	}

	stateMgr, err := state.NewStateManager(stateFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state manager: %w", err)
	}
	logs.Infof("State manager initialized, state will be persisted to: %s", stateFilePath)

	if v := stateMgr.SettingsVersion(); v != config.SettingsVersion {
		if v != "" {
			logs.Infof("Settings schema upgraded from %s to %s.", v, config.SettingsVersion)
		}
		if err := stateMgr.SetSettingsVersion(config.SettingsVersion); err != nil {
			return nil, fmt.Errorf("failed to persist settings version: %w", err)
		}
	}

	channel := notify.NewTelegramClient(
		envCfg.TelegramToken,
		envCfg.TelegramChatID,
		time.Duration(cfg.Telegram.PollTimeoutSeconds)*time.Second,
	)
	if cfg.Telegram.Enabled && !channel.Enabled() {
		logs.Warn("Telegram is enabled in config but TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID are not set; notifications stay off.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:        cfg,
		mkt:        mkt,
		eng:        engine.New(mkt),
		sink:       notify.NewSink(),
		channel:    channel,
		accountant: profit.NewAccountant(),
		stateMgr:   stateMgr,
		runID:      uuid.NewString()[:8],
		ctx:        ctx,
		cancel:     cancel,
	}
	if adv, ok := mkt.(market.Advancer); ok {
		o.advancer = adv
	}

	o.poller = notify.NewCommandPoller(channel, stateMgr)
	o.poller.Handle("/prices", o.pricesReport)
	o.poller.Handle("/pnl", o.pnlReport)

	return o, nil
}

func (o *Orchestrator) Start() {
	logs.Infof("Auto Traider session %s starting.", o.runID)
	o.sendAsync(fmt.Sprintf("Auto Traider started (session %s).", o.runID))

	o.wg.Add(1)
	go o.run()
}

// run is the cooperative polling loop: one ticker drives the logic pass,
// the command poll on its own cadence, and the heartbeat.
func (o *Orchestrator) run() {
	defer o.wg.Done()

	ticker := time.NewTicker(time.Duration(o.cfg.Normal.TickIntervalSeconds) * time.Second)
	defer ticker.Stop()

	pollInterval := time.Duration(o.cfg.Normal.CommandPollSeconds) * time.Second
	heartbeatInterval := time.Duration(o.cfg.Normal.HeartbeatIntervalMinutes) * time.Minute
	lastPoll := time.Now()
	lastHeartbeat := time.Now()

	for {
		select {
		case <-o.ctx.Done():
			logs.Info("Orchestrator received stop signal, exiting loop.")
			return
		case <-ticker.C:
			o.runLogicPass()

			if o.telegramOn() && time.Since(lastPoll) >= pollInterval {
				o.poller.Poll()
				lastPoll = time.Now()
			}
			if time.Since(lastHeartbeat) >= heartbeatInterval {
				logs.Info("[Heartbeat] Decision loop still running...")
				lastHeartbeat = time.Now()
			}
		}
	}
}

// runLogicPass advances the market (when we own its clock), takes a
// snapshot and hands it to the engine. A missing snapshot skips the
// whole pass with state untouched.
func (o *Orchestrator) runLogicPass() {
	if o.advancer != nil {
		o.advancer.Advance()
	}

	snap, err := o.mkt.Snapshot()
	if err != nil {
		if rm, ok := o.mkt.(*market.ReplayMarket); ok && rm.Exhausted() {
			if !o.replayDone {
				logs.Warn("[Orchestrator] Replay tape exhausted; holding position state until shutdown.")
				o.replayDone = true
			}
			return
		}
		logs.Errorf("[Orchestrator] Market snapshot unavailable, skipping tick: %v", err)
		return
	}

	events := o.eng.OnTick(o.ctx, snap, o.cfg.Strategy)
	for _, ev := range events {
		switch ev.Type {
		case engine.EventBuy:
			o.accountant.RecordTrade(profit.Trade{GoodID: ev.GoodID, Name: ev.Name, Side: "BUY", Price: ev.Price, Qty: ev.Qty})
		case engine.EventPartialSell, engine.EventSell:
			o.accountant.RecordTrade(profit.Trade{GoodID: ev.GoodID, Name: ev.Name, Side: "SELL", Price: ev.Price, Qty: ev.Qty})
		}
		o.sink.Collect(ev, o.cfg.Strategy)
	}
	if msg, ok := o.sink.Flush(o.cfg.Strategy, time.Now()); ok {
		o.sendAsync(msg)
	}
}

// sendAsync dispatches a notification without blocking the decision
// path. Failures are logged and dropped.
func (o *Orchestrator) sendAsync(text string) {
	if !o.telegramOn() {
		return
	}
	go func() {
		if err := o.channel.Send(text); err != nil {
			logs.Errorf("[Orchestrator] notification send failed: %v", err)
		}
	}()
}

func (o *Orchestrator) telegramOn() bool {
	return o.cfg.Telegram.Enabled && o.channel.Enabled()
}

// pricesReport builds the /prices command response.
func (o *Orchestrator) pricesReport() string {
	snap, err := o.mkt.Snapshot()
	if err != nil {
		return "Market is inactive."
	}
	lines := make([]string, 0, len(snap.Goods))
	for _, g := range snap.Goods {
		lines = append(lines, fmt.Sprintf("%s: $%.2f", g.Name, g.Price))
	}
	return "Current prices:\n" + strings.Join(lines, "\n")
}

// pnlReport builds the /pnl command response.
func (o *Orchestrator) pnlReport() string {
	return fmt.Sprintf("Realized PnL: %.2f (session %s, %d open positions)",
		o.accountant.RealizedPNL(), o.runID, o.eng.Ledger().Len())
}

func (o *Orchestrator) Stop() {
	logs.Info("Received close signal, starting graceful shutdown...")
	o.cancel()
	o.wg.Wait()

	logs.Info("--- Final summary ---")
	logs.Infof("Session %s realized PnL: %.4f", o.runID, o.accountant.RealizedPNL())
	logs.Infof("Open positions at shutdown: %d", o.eng.Ledger().Len())
	logs.Info("---------------------")
	logs.Info("All services stopped successfully.")
}
