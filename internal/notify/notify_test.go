package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mailgun/mailgun-go/v4"

	"budgetbee/internal/core"
	"budgetbee/internal/log"
)

type fakeSender struct {
	from, subject, text string
	to                  []string
	sent                int
	err                 error
}

func (f *fakeSender) NewMessage(from, subject, text string, to ...string) *mailgun.Message {
	f.from, f.subject, f.text, f.to = from, subject, text, to
	return mailgun.NewMailgun("mg.example.com", "key").NewMessage(from, subject, text, to...)
}

func (f *fakeSender) Send(context.Context, *mailgun.Message) (string, string, error) {
	f.sent++
	return "Queued. Thank you.", "<id@mg>", f.err
}

func alert(level core.AlertLevel, spent int64) BudgetAlert {
	return BudgetAlert{
		UserID:   "u1",
		Email:    "me@example.com",
		Currency: "EUR",
		Level:    level,
		Budget: core.Budget{
			ID: "b1", Category: core.Food, Period: core.Monthly,
			Limit: core.Money{Cents: 20000}, Spent: core.Money{Cents: spent}, AlertThreshold: 80,
		},
	}
}

func TestSubjectAndBody(t *testing.T) {
	warn := alert(core.AlertWarning, 17000)
	if got := Subject(warn); got != "Budget Bee: Food budget at 85%" {
		t.Fatalf("subject = %q", got)
	}
	body := Body(warn)
	if !strings.Contains(body, "Your monthly Food budget has used €170.00 of €200.00 (85%).") {
		t.Fatalf("body = %q", body)
	}
	if !strings.Contains(body, "Approaching limit - €30.00 remaining.") {
		t.Fatalf("body missing status line: %q", body)
	}

	over := alert(core.AlertExceeded, 25000)
	if got := Subject(over); got != "Budget Bee: Food budget exceeded" {
		t.Fatalf("subject = %q", got)
	}
	if !strings.Contains(Body(over), "Over budget by €50.00.") {
		t.Fatalf("body = %q", Body(over))
	}
}

func TestMailgunNotifier(t *testing.T) {
	fs := &fakeSender{}
	n := newMailgunNotifier(fs, "Budget Bee <alerts@example.com>", nil)

	if err := n.NotifyBudget(context.Background(), alert(core.AlertWarning, 17000)); err != nil {
		t.Fatalf("NotifyBudget: %v", err)
	}
	if fs.sent != 1 || len(fs.to) != 1 || fs.to[0] != "me@example.com" || fs.from != "Budget Bee <alerts@example.com>" {
		t.Fatalf("unexpected send %+v", fs)
	}

	noEmail := alert(core.AlertWarning, 17000)
	noEmail.Email = ""
	if err := n.NotifyBudget(context.Background(), noEmail); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}

	fs.err = errors.New("401 forbidden")
	if err := n.NotifyBudget(context.Background(), alert(core.AlertExceeded, 25000)); err == nil {
		t.Fatal("expected send error")
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(log.New(log.Config{Output: &buf}))
	if err := n.NotifyBudget(context.Background(), alert(core.AlertExceeded, 25000)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "budget exceeded") || !strings.Contains(buf.String(), "alert_level=exceeded") {
		t.Fatalf("log = %q", buf.String())
	}
}
