// Package pipeline turns a completed message window into per-signal verdicts
// through four ordered stages: balance precondition, validation, trust and
// the threshold gate. Each Signal short-circuits on its first failing stage.
package pipeline

import (
	"context"
	"math"

	"go.uber.org/zap"

	"alphawatch/internal/models"
)

// ReasoningCapability is the external language-model surface the pipeline
// leans on. Failures are treated as "no signal" or "validation failed",
// never propagated.
type ReasoningCapability interface {
	// ExtractSignals derives zero or more token calls from a window.
	ExtractSignals(ctx context.Context, window []models.RawMessage) ([]models.Signal, error)
	// Corroborate sources fresh social evidence about a signal's token.
	Corroborate(ctx context.Context, signal models.Signal) ([]string, error)
	// Classify derives a sentiment for a token from the evidence.
	Classify(ctx context.Context, evidence []string, token string) (string, error)
}

// MarketDataCapability provides historical time series for a token.
type MarketDataCapability interface {
	HistoricalSeries(ctx context.Context, token string) (*models.MarketSeries, error)
}

// BalanceCapability answers whether the account can fund a buy or holds
// enough of a token to sell.
type BalanceCapability interface {
	HasFunding(ctx context.Context) (bool, error)
	HasHolding(ctx context.Context, token string) (bool, error)
}

// ActionCapability executes the downstream action for a gated signal.
type ActionCapability interface {
	Execute(ctx context.Context, signal models.Signal) error
}

// AuditLog records every stage transition. Best-effort: a recording failure
// must never abort the stage it is logging.
type AuditLog interface {
	Record(ctx context.Context, stage string, input, output any) error
}

// Result pairs a Signal with its terminal verdict.
type Result struct {
	Signal  models.Signal  `json:"signal"`
	Verdict models.Verdict `json:"verdict"`
}

// Pipeline is stateless across runs; verdict history lives only in the
// audit log.
type Pipeline struct {
	reasoning ReasoningCapability
	market    MarketDataCapability
	balance   BalanceCapability
	action    ActionCapability
	audit     AuditLog
	logger    *zap.Logger
	threshold float64
}

func New(
	reasoning ReasoningCapability,
	market MarketDataCapability,
	balance BalanceCapability,
	action ActionCapability,
	audit AuditLog,
	threshold float64,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		reasoning: reasoning,
		market:    market,
		balance:   balance,
		action:    action,
		audit:     audit,
		logger:    logger,
		threshold: threshold,
	}
}

// Process runs one flushed window through the pipeline. Signals are handled
// independently: one signal failing a stage does not stop the others.
func (p *Pipeline) Process(ctx context.Context, window []models.RawMessage) []Result {
	signals, err := p.reasoning.ExtractSignals(ctx, window)
	if err != nil {
		p.record(ctx, "signal_extraction", window, "extraction failed: "+err.Error())
		return []Result{{Verdict: models.VerdictNoAction}}
	}
	p.record(ctx, "signal_extraction", window, signals)

	if len(signals) == 0 {
		p.record(ctx, "signal_extraction", signals, "no tokens detected")
		return []Result{{Verdict: models.VerdictNoAction}}
	}

	results := make([]Result, 0, len(signals))
	for _, signal := range signals {
		verdict := p.processSignal(ctx, signal)
		results = append(results, Result{Signal: signal, Verdict: verdict})
	}
	return results
}

// signalState carries intermediate stage output forward: the corroborated
// sentiment out of validation, the pnl score out of trust.
type signalState struct {
	sentiment string
	pnl       float64
}

type stage struct {
	name string
	run  func(ctx context.Context, signal models.Signal, state *signalState) (models.Verdict, bool)
}

// stages returns the ordered stage list a signal walks through. A stage
// returning done=true terminates the signal with its verdict.
func (p *Pipeline) stages() []stage {
	return []stage{
		{name: "balance_precondition", run: p.balanceStage},
		{name: "validation", run: p.validationStage},
		{name: "trust", run: p.trustStage},
		{name: "gate", run: p.gateStage},
	}
}

func (p *Pipeline) processSignal(ctx context.Context, signal models.Signal) models.Verdict {
	state := &signalState{}
	for _, st := range p.stages() {
		verdict, done := st.run(ctx, signal, state)
		if done {
			return verdict
		}
	}
	// The gate stage always terminates; reaching here means a stage list bug.
	p.logger.Error("Pipeline fell through all stages", zap.String("token", signal.Token))
	return models.VerdictNoAction
}

func (p *Pipeline) balanceStage(ctx context.Context, signal models.Signal, _ *signalState) (models.Verdict, bool) {
	switch signal.Sentiment {
	case models.SentimentPositive:
		// A buy needs funding currency.
		ok, err := p.balance.HasFunding(ctx)
		if err != nil {
			p.record(ctx, "check_funding_balance", signal, "balance check failed: "+err.Error())
			return models.VerdictInsufficientBalance, true
		}
		p.record(ctx, "check_funding_balance", signal, ok)
		if !ok {
			return models.VerdictInsufficientBalance, true
		}
	case models.SentimentNegative:
		// A sell needs the token itself.
		ok, err := p.balance.HasHolding(ctx, signal.Token)
		if err != nil {
			p.record(ctx, "check_token_balance", signal, "balance check failed: "+err.Error())
			return models.VerdictInsufficientBalance, true
		}
		p.record(ctx, "check_token_balance", signal, ok)
		if !ok {
			return models.VerdictInsufficientBalance, true
		}
	default:
		p.record(ctx, "balance_precondition", signal, "unknown sentiment: "+signal.Sentiment)
		return models.VerdictValidationFailed, true
	}
	return "", false
}

func (p *Pipeline) validationStage(ctx context.Context, signal models.Signal, state *signalState) (models.Verdict, bool) {
	evidence, err := p.reasoning.Corroborate(ctx, signal)
	if err != nil {
		p.record(ctx, "corroborate", signal, "corroboration failed: "+err.Error())
		return models.VerdictValidationFailed, true
	}
	p.record(ctx, "corroborate", signal, evidence)

	sentiment, err := p.reasoning.Classify(ctx, evidence, signal.Token)
	if err != nil {
		p.record(ctx, "classify_evidence", signal, "classification failed: "+err.Error())
		return models.VerdictValidationFailed, true
	}
	p.record(ctx, "classify_evidence", signal, sentiment)

	if sentiment != signal.Sentiment {
		p.record(ctx, "validation", signal, "sentiment does not match")
		return models.VerdictValidationFailed, true
	}
	p.record(ctx, "validation", signal, "sentiment matches")
	state.sentiment = sentiment
	return "", false
}

func (p *Pipeline) trustStage(ctx context.Context, signal models.Signal, state *signalState) (models.Verdict, bool) {
	series, err := p.market.HistoricalSeries(ctx, signal.Token)
	if err != nil {
		p.record(ctx, "historical_series", signal, "market data failed: "+err.Error())
		return models.VerdictUntrustedSignal, true
	}
	p.record(ctx, "historical_series", signal, series)

	trends := DetectTrends(series)
	p.record(ctx, "detect_trends", signal, trends)

	// The price trend must agree with the direction the sentiment implies.
	if trends.Prices != signal.Sentiment {
		p.record(ctx, "trust", map[string]any{
			"signal": signal,
			"trends": trends,
		}, "sentiment and trends do not match")
		return models.VerdictUntrustedSignal, true
	}

	state.pnl = PnlPotential(series)
	p.record(ctx, "pnl_potential", signal, state.pnl)
	return "", false
}

func (p *Pipeline) gateStage(ctx context.Context, signal models.Signal, state *signalState) (models.Verdict, bool) {
	if math.Abs(state.pnl) < p.threshold {
		p.record(ctx, "gate", signal, "pnl potential is too low")
		return models.VerdictBelowThreshold, true
	}

	if err := p.action.Execute(ctx, signal); err != nil {
		p.record(ctx, "execute_action", signal, "action failed: "+err.Error())
		return models.VerdictNoAction, true
	}
	p.record(ctx, "execute_action", signal, "action invoked")
	return models.VerdictActionInvoked, true
}

// record writes an audit entry and swallows failure after logging it once.
func (p *Pipeline) record(ctx context.Context, stage string, input, output any) {
	if err := p.audit.Record(ctx, stage, input, output); err != nil {
		p.logger.Warn("Failed to record audit entry",
			zap.String("stage", stage),
			zap.Error(err))
	}
}
