package analysis

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"budgetbee/internal/core"
)

const sampleReply = `{
  "spending_patterns": "Most spending goes to food on weekends.",
  "budget_analysis": "Food budget is at 49%.",
  "recommendations": ["Cook at home", "Use a transit card"],
  "tax_insights": "Commuting costs may be deductible.",
  "savings_opportunities": "Dining out."
}`

func TestParseInsightsFencedEqualsUnwrapped(t *testing.T) {
	plain := ParseInsights(sampleReply)
	if plain.SpendingPatterns != "Most spending goes to food on weekends." {
		t.Fatalf("unexpected plain parse: %+v", plain)
	}

	wrappers := map[string]string{
		"json fence":        "Here you go:\n```json\n" + sampleReply + "\n```\nThanks!",
		"bare fence":        "```\n" + sampleReply + "\n```",
		"json fence inline": "```json" + sampleReply + "```",
		"upper json fence":  "```JSON\n" + sampleReply + "\n```",
		"other label":       "```jsonc\n" + sampleReply + "\n```",
		"crlf json fence":   "```json\r\n" + sampleReply + "\r\n```",
		"second fence":      "Example:\n```\nnot json\n```\nResult:\n```\n" + sampleReply + "\n```",
		"padded":            "\n\n  " + sampleReply + "  \n",
	}
	for name, reply := range wrappers {
		t.Run(name, func(t *testing.T) {
			got := ParseInsights(reply)
			if !reflect.DeepEqual(got, plain) {
				t.Fatalf("got %+v\nwant %+v", got, plain)
			}
		})
	}
}

func TestParseInsightsFallsThroughBrokenJSONFence(t *testing.T) {
	// The labelled fence holds broken JSON; the whole reply is not JSON either.
	reply := "```json\n{not json}\n```"
	got := ParseInsights(reply)
	if got.SpendingPatterns != reply {
		t.Fatalf("expected raw reply in spending patterns, got %q", got.SpendingPatterns)
	}
}

func TestParseInsightsUnparseableReply(t *testing.T) {
	reply := "You spend a lot on food. Try cooking more."
	got := ParseInsights(reply)

	want := Insights{
		SpendingPatterns: reply,
		Recommendations:  []string{"Review your spending regularly", "Set realistic budgets", "Track all expenses"},
		TaxInsights:      "Consult a tax professional for personalized advice",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}

	// The fallback list must not be shared between calls.
	got.Recommendations[0] = "mutated"
	if ParseInsights(reply).Recommendations[0] != "Review your spending regularly" {
		t.Fatalf("fallback recommendations were mutated")
	}
}

func TestParseInsightsLenientValues(t *testing.T) {
	reply := `{"spending_patterns": {"top": "Food"}, "recommendations": "Spend less", "tax_insights": null, "savings_opportunities": 42}`
	got := ParseInsights(reply)
	if got.SpendingPatterns != `{"top":"Food"}` {
		t.Fatalf("spending patterns = %q", got.SpendingPatterns)
	}
	if !reflect.DeepEqual(got.Recommendations, []string{"Spend less"}) {
		t.Fatalf("recommendations = %#v", got.Recommendations)
	}
	if got.TaxInsights != "" || got.SavingsOpportunities != "42" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseInsightsRejectsNonObject(t *testing.T) {
	for _, reply := range []string{`["a","b"]`, `"just a string"`, `42`} {
		got := ParseInsights(reply)
		if got.SpendingPatterns != reply || got.TaxInsights != fallbackTaxInsights {
			t.Fatalf("reply %q should fall back, got %+v", reply, got)
		}
	}
}

func TestMergeLocalFactsWin(t *testing.T) {
	expenses := []core.Expense{exp("a", 1000, core.Food, 4), exp("b", 1000, core.Food, 3), exp("d", 1000, core.Food, 2), exp("c", 9001, core.Bills, 1)}
	stats := Aggregate(expenses)
	alerts := DetectAnomalies(expenses, stats)

	reply := "```json\n" + `{
  "spending_patterns": "ok",
  "recommendations": ["a"],
  "tax_insights": "t",
  "fraud_alerts": [{"id": "fake", "reason": "model says so"}],
  "statistics": {"total_spent": 1, "avg_expense": 1, "transaction_count": 99}
}` + "\n```"

	result := Merge(ParseInsights(reply), alerts, stats)
	b, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}

	fa := out["fraud_alerts"].([]any)
	if len(fa) != 1 || fa[0].(map[string]any)["id"] != "c" {
		t.Fatalf("fraud alerts were not the local ones: %v", fa)
	}
	st := out["statistics"].(map[string]any)
	if st["total_spent"].(float64) != 120.01 || st["transaction_count"].(float64) != 4 {
		t.Fatalf("statistics were not the local ones: %v", st)
	}
	if strings.Contains(string(b), "model says so") {
		t.Fatalf("model fraud alerts leaked into output: %s", b)
	}
}

func TestPlaceholderShape(t *testing.T) {
	b, err := json.Marshal(Placeholder())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"spending_patterns":"Not enough data to analyze spending patterns yet.","recommendations":["Start tracking your expenses to get personalized insights!"],"tax_insights":"Add more expenses to get tax-related insights.","fraud_alerts":[]}`
	if string(b) != want {
		t.Fatalf("got  %s\nwant %s", b, want)
	}
}
