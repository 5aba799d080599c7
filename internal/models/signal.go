package models

// Sentiment values a Signal (or a corroboration pass) can carry.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
)

// Signal is one token call extracted from a message window: the token being
// discussed, the message snippets that support the call, the claimed
// sentiment and how confident the extraction is.
type Signal struct {
	Token      string   `json:"token"`
	Texts      []string `json:"texts"`
	Sentiment  string   `json:"sentiment"`
	Confidence float64  `json:"confidence"`
}

// Verdict is the terminal outcome of running one Signal through the decision
// pipeline. Every Signal gets exactly one.
type Verdict string

const (
	VerdictNoAction            Verdict = "no_action"
	VerdictInsufficientBalance Verdict = "insufficient_balance"
	VerdictValidationFailed    Verdict = "validation_failed"
	VerdictUntrustedSignal     Verdict = "untrusted_signal"
	VerdictBelowThreshold      Verdict = "below_threshold"
	VerdictActionInvoked       Verdict = "action_invoked"
)

// MarketSeries is a historical time series for a token, aligned by index.
type MarketSeries struct {
	Prices       []float64 `json:"prices"`
	MarketCaps   []float64 `json:"market_caps"`
	TotalVolumes []float64 `json:"total_volumes"`
}
