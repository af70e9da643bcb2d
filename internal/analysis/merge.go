package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	jsonFence = regexp.MustCompile("(?i)```json\\r?\\n?([\\s\\S]*?)\\n?```")

	// an optional info string such as "jsonc" or "JSON" is skipped
	anyFence = regexp.MustCompile("```[\\w+.-]*[ \\t]*\\r?\\n?([\\s\\S]*?)\\n?```")

	errNoFence   = errors.New("no fenced block")
	errNotObject = errors.New("reply is not a JSON object")
)

var fallbackRecommendations = []string{
	"Review your spending regularly",
	"Set realistic budgets",
	"Track all expenses",
}

const fallbackTaxInsights = "Consult a tax professional for personalized advice"

// parseStrategy tries to read Insights out of a reply.
type parseStrategy func(reply string) (Insights, error)

// parseChain is tried in order; the first strategy that succeeds wins.
var parseChain = []parseStrategy{
	fenced(jsonFence),
	fenced(anyFence),
	wholeReply,
}

// ParseInsights extracts narrative sections from a summarizer reply. A reply
// that cannot be read as a JSON object degrades to the raw text plus generic tips.
func ParseInsights(reply string) Insights {
	for _, try := range parseChain {
		if in, err := try(reply); err == nil {
			return in
		}
	}
	return Insights{
		SpendingPatterns: reply,
		Recommendations:  append([]string(nil), fallbackRecommendations...),
		TaxInsights:      fallbackTaxInsights,
	}
}

func fenced(re *regexp.Regexp) parseStrategy {
	return func(reply string) (Insights, error) {
		matches := re.FindAllStringSubmatch(reply, -1)
		if matches == nil {
			return Insights{}, errNoFence
		}
		err := errNotObject
		for _, m := range matches {
			var in Insights
			if in, err = decodeInsights(m[1]); err == nil {
				return in, nil
			}
		}
		return Insights{}, err
	}
}

func wholeReply(reply string) (Insights, error) {
	return decodeInsights(reply)
}

// sections mirrors the keys requested in the prompt. Values stay raw so a
// model returning an object or number where text was asked still parses.
type sections struct {
	SpendingPatterns     json.RawMessage `json:"spending_patterns"`
	BudgetAnalysis       json.RawMessage `json:"budget_analysis"`
	Recommendations      json.RawMessage `json:"recommendations"`
	TaxInsights          json.RawMessage `json:"tax_insights"`
	SavingsOpportunities json.RawMessage `json:"savings_opportunities"`
}

func decodeInsights(text string) (Insights, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return Insights{}, errNotObject
	}
	var s sections
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return Insights{}, err
	}
	return Insights{
		SpendingPatterns:     asText(s.SpendingPatterns),
		BudgetAnalysis:       asText(s.BudgetAnalysis),
		Recommendations:      asList(s.Recommendations),
		TaxInsights:          asText(s.TaxInsights),
		SavingsOpportunities: asText(s.SavingsOpportunities),
	}, nil
}

func asText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func asList(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		if s := asText(raw); s != "" {
			return []string{s}
		}
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := asText(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Merge combines model insights with the locally computed facts. Alerts and
// statistics always come from local computation.
func Merge(in Insights, alerts []FraudAlert, stats Statistics) SpendingAnalysis {
	if alerts == nil {
		alerts = []FraudAlert{}
	}
	recs := in.Recommendations
	if recs == nil {
		recs = []string{}
	}
	return SpendingAnalysis{
		SpendingPatterns:     in.SpendingPatterns,
		BudgetAnalysis:       in.BudgetAnalysis,
		Recommendations:      recs,
		TaxInsights:          in.TaxInsights,
		SavingsOpportunities: in.SavingsOpportunities,
		FraudAlerts:          alerts,
		Statistics:           &stats,
	}
}

// Placeholder is returned when a user has no expenses yet.
func Placeholder() SpendingAnalysis {
	return SpendingAnalysis{
		SpendingPatterns: "Not enough data to analyze spending patterns yet.",
		FraudAlerts:      []FraudAlert{},
		Recommendations:  []string{"Start tracking your expenses to get personalized insights!"},
		TaxInsights:      "Add more expenses to get tax-related insights.",
	}
}
