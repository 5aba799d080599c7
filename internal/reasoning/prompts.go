package reasoning

import (
	"encoding/json"
	"fmt"

	"alphawatch/internal/models"
)

func buildExtractPrompt(window []models.RawMessage) (string, error) {
	payload, err := json.Marshal(window)
	if err != nil {
		return "", fmt.Errorf("failed to marshal window: %w", err)
	}

	return fmt.Sprintf(`You are an analyst reading a batch of chat messages from a crypto trading group.
Identify every token that the participants are calling out as a trade opportunity.

For each token, collect the exact message texts that mention it and judge the
overall sentiment of those messages.

Rules:
- Only include tokens that are explicitly named (ticker or contract address).
- "sentiment" must be exactly "positive" or "negative".
- "confidence" is a number from 0 to 1.
- If no token is being called out, return an empty array.

Respond with JSON only, no prose, in this shape:
[{"token": "...", "texts": ["..."], "sentiment": "positive", "confidence": 0.9}]

Messages:
%s`, payload), nil
}

func buildCorroboratePrompt(signal models.Signal) string {
	return fmt.Sprintf(`Find recent social media posts from the last 24 hours that discuss the crypto token %q.
Return the post texts verbatim.

Respond with JSON only, no prose, in this shape:
{"tweets": ["...", "..."]}

If you cannot find any posts, return {"tweets": []}.`, signal.Token)
}

func buildClassifyPrompt(evidence []string, token string) (string, error) {
	payload, err := json.Marshal(evidence)
	if err != nil {
		return "", fmt.Errorf("failed to marshal evidence: %w", err)
	}

	return fmt.Sprintf(`You are given social media posts about the crypto token %q.
Decide whether the overall sentiment toward the token is positive or negative.

Respond with JSON only, no prose, in this shape:
{"sentiment": "positive"}

"sentiment" must be exactly "positive" or "negative".

Posts:
%s`, token, payload), nil
}
