package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alphawatch/internal/models"
)

type fakeReasoning struct {
	signals      []models.Signal
	extractErr   error
	evidence     []string
	corroborErr  error
	sentiment    string
	classifyErr  error
	corroborated int
}

func (f *fakeReasoning) ExtractSignals(_ context.Context, _ []models.RawMessage) ([]models.Signal, error) {
	return f.signals, f.extractErr
}

func (f *fakeReasoning) Corroborate(_ context.Context, _ models.Signal) ([]string, error) {
	f.corroborated++
	return f.evidence, f.corroborErr
}

func (f *fakeReasoning) Classify(_ context.Context, _ []string, _ string) (string, error) {
	return f.sentiment, f.classifyErr
}

type fakeMarket struct {
	series *models.MarketSeries
	err    error
	calls  int
}

func (f *fakeMarket) HistoricalSeries(_ context.Context, _ string) (*models.MarketSeries, error) {
	f.calls++
	return f.series, f.err
}

type fakeBalance struct {
	funding     bool
	fundingErr  error
	holding     bool
	holdingErr  error
	fundingCall int
	holdingCall int
}

func (f *fakeBalance) HasFunding(_ context.Context) (bool, error) {
	f.fundingCall++
	return f.funding, f.fundingErr
}

func (f *fakeBalance) HasHolding(_ context.Context, _ string) (bool, error) {
	f.holdingCall++
	return f.holding, f.holdingErr
}

type fakeAction struct {
	err     error
	calls   int
	signals []models.Signal
}

func (f *fakeAction) Execute(_ context.Context, signal models.Signal) error {
	f.calls++
	f.signals = append(f.signals, signal)
	return f.err
}

type fakeAudit struct {
	mu      sync.Mutex
	stages  []string
	failing bool
}

func (f *fakeAudit) Record(_ context.Context, stage string, _, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages = append(f.stages, stage)
	if f.failing {
		return errors.New("audit store down")
	}
	return nil
}

func positiveSignal() models.Signal {
	return models.Signal{
		Token:      "ABC",
		Texts:      []string{"ABC is going to the moon", "loaded up on ABC"},
		Sentiment:  models.SentimentPositive,
		Confidence: 0.8,
	}
}

func risingSeries() *models.MarketSeries {
	return &models.MarketSeries{
		Prices:       []float64{100, 105, 110, 115},
		MarketCaps:   []float64{1000, 1000, 1000, 1000},
		TotalVolumes: []float64{500, 500, 500, 500},
	}
}

func window() []models.RawMessage {
	msgs := make([]models.RawMessage, 10)
	for i := range msgs {
		msgs[i] = models.RawMessage{
			SourceName:     "Degen Lounge",
			SubChannelName: "alpha-calls",
			SenderName:     "anon",
			Text:           "ABC looking strong",
			UserID:         "u1",
		}
	}
	return msgs
}

type fixture struct {
	reasoning *fakeReasoning
	market    *fakeMarket
	balance   *fakeBalance
	action    *fakeAction
	audit     *fakeAudit
	pipeline  *Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		reasoning: &fakeReasoning{
			signals:   []models.Signal{positiveSignal()},
			evidence:  []string{"ABC fundamentals look great", "ABC team shipping"},
			sentiment: models.SentimentPositive,
		},
		market:  &fakeMarket{series: risingSeries()},
		balance: &fakeBalance{funding: true, holding: true},
		action:  &fakeAction{},
		audit:   &fakeAudit{},
	}
	f.pipeline = New(f.reasoning, f.market, f.balance, f.action, f.audit, 10, zap.NewNop())
	return f
}

func TestActionInvokedEndToEnd(t *testing.T) {
	f := newFixture()
	// +15% on flat cap and volume => pnl potential 15, above the gate.
	f.market.series.Prices = []float64{100, 105, 110, 115}

	results := f.pipeline.Process(context.Background(), window())

	require.Len(t, results, 1)
	assert.Equal(t, models.VerdictActionInvoked, results[0].Verdict)
	assert.Equal(t, 1, f.action.calls, "action fired exactly once")
	assert.Equal(t, positiveSignal(), f.action.signals[0])
}

func TestBelowThreshold(t *testing.T) {
	f := newFixture()
	// +4% => pnl potential 4, below the gate of 10.
	f.market.series.Prices = []float64{100, 101, 102, 104}

	results := f.pipeline.Process(context.Background(), window())

	require.Len(t, results, 1)
	assert.Equal(t, models.VerdictBelowThreshold, results[0].Verdict)
	assert.Zero(t, f.action.calls, "action never called below threshold")
}

func TestNoSignalsMeansNoAction(t *testing.T) {
	f := newFixture()
	f.reasoning.signals = nil

	results := f.pipeline.Process(context.Background(), window())

	require.Len(t, results, 1)
	assert.Equal(t, models.VerdictNoAction, results[0].Verdict)
	assert.Zero(t, f.balance.fundingCall)
	assert.Zero(t, f.action.calls)
}

func TestExtractionFailureTreatedAsNoSignal(t *testing.T) {
	f := newFixture()
	f.reasoning.extractErr = errors.New("model timeout")

	results := f.pipeline.Process(context.Background(), window())

	require.Len(t, results, 1)
	assert.Equal(t, models.VerdictNoAction, results[0].Verdict)
}

func TestInsufficientFundingShortCircuits(t *testing.T) {
	f := newFixture()
	f.balance.funding = false

	results := f.pipeline.Process(context.Background(), window())

	require.Len(t, results, 1)
	assert.Equal(t, models.VerdictInsufficientBalance, results[0].Verdict)
	assert.Zero(t, f.reasoning.corroborated, "validation never entered")
	assert.Zero(t, f.market.calls, "trust never entered")
	assert.Zero(t, f.action.calls)
}

func TestNegativeSignalChecksHolding(t *testing.T) {
	f := newFixture()
	sig := positiveSignal()
	sig.Sentiment = models.SentimentNegative
	f.reasoning.signals = []models.Signal{sig}
	f.reasoning.sentiment = models.SentimentNegative
	f.balance.holding = false

	results := f.pipeline.Process(context.Background(), window())

	require.Len(t, results, 1)
	assert.Equal(t, models.VerdictInsufficientBalance, results[0].Verdict)
	assert.Equal(t, 1, f.balance.holdingCall)
	assert.Zero(t, f.balance.fundingCall, "negative sentiment never checks funding")
}

func TestValidationMismatch(t *testing.T) {
	f := newFixture()
	f.reasoning.sentiment = models.SentimentNegative // disagrees with the claim

	results := f.pipeline.Process(context.Background(), window())

	require.Len(t, results, 1)
	assert.Equal(t, models.VerdictValidationFailed, results[0].Verdict)
	assert.Zero(t, f.market.calls)
	assert.Zero(t, f.action.calls)
}

func TestCorroborationFailureIsValidationFailure(t *testing.T) {
	f := newFixture()
	f.reasoning.corroborErr = errors.New("model timeout")

	results := f.pipeline.Process(context.Background(), window())

	require.Len(t, results, 1)
	assert.Equal(t, models.VerdictValidationFailed, results[0].Verdict)
}

func TestTrendDisagreementIsUntrusted(t *testing.T) {
	f := newFixture()
	f.market.series = &models.MarketSeries{
		Prices:       []float64{115, 110, 105, 100}, // falling against a positive claim
		MarketCaps:   []float64{1000, 1000, 1000, 1000},
		TotalVolumes: []float64{500, 500, 500, 500},
	}

	results := f.pipeline.Process(context.Background(), window())

	require.Len(t, results, 1)
	assert.Equal(t, models.VerdictUntrustedSignal, results[0].Verdict)
	assert.Zero(t, f.action.calls, "action never invoked on trend disagreement")
}

func TestMarketDataFailureIsUntrusted(t *testing.T) {
	f := newFixture()
	f.market.err = errors.New("feed unavailable")

	results := f.pipeline.Process(context.Background(), window())

	require.Len(t, results, 1)
	assert.Equal(t, models.VerdictUntrustedSignal, results[0].Verdict)
}

func TestSignalsProceedIndependently(t *testing.T) {
	f := newFixture()
	bad := positiveSignal()
	bad.Token = "XYZ"
	bad.Sentiment = models.SentimentNegative // fails the holding check below
	f.reasoning.signals = []models.Signal{bad, positiveSignal()}
	f.balance.holding = false
	f.market.series.Prices = []float64{100, 105, 110, 115}

	results := f.pipeline.Process(context.Background(), window())

	require.Len(t, results, 2)
	assert.Equal(t, models.VerdictInsufficientBalance, results[0].Verdict)
	assert.Equal(t, models.VerdictActionInvoked, results[1].Verdict)
}

func TestAuditFailureNeverAbortsStages(t *testing.T) {
	f := newFixture()
	f.audit.failing = true
	f.market.series.Prices = []float64{100, 105, 110, 115}

	results := f.pipeline.Process(context.Background(), window())

	require.Len(t, results, 1)
	assert.Equal(t, models.VerdictActionInvoked, results[0].Verdict)
	assert.NotEmpty(t, f.audit.stages, "stages were still audited")
}

func TestEveryStageTransitionAudited(t *testing.T) {
	f := newFixture()
	f.market.series.Prices = []float64{100, 105, 110, 115}

	f.pipeline.Process(context.Background(), window())

	f.audit.mu.Lock()
	defer f.audit.mu.Unlock()
	assert.Contains(t, f.audit.stages, "signal_extraction")
	assert.Contains(t, f.audit.stages, "check_funding_balance")
	assert.Contains(t, f.audit.stages, "corroborate")
	assert.Contains(t, f.audit.stages, "classify_evidence")
	assert.Contains(t, f.audit.stages, "validation")
	assert.Contains(t, f.audit.stages, "historical_series")
	assert.Contains(t, f.audit.stages, "detect_trends")
	assert.Contains(t, f.audit.stages, "pnl_potential")
	assert.Contains(t, f.audit.stages, "execute_action")
}

func TestActionFailureAudited(t *testing.T) {
	f := newFixture()
	f.market.series.Prices = []float64{100, 105, 110, 115}
	f.action.err = errors.New("executor rejected order")

	results := f.pipeline.Process(context.Background(), window())

	require.Len(t, results, 1)
	assert.NotEqual(t, models.VerdictActionInvoked, results[0].Verdict)
}
