// Package notify delivers budget alerts to users.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"budgetbee/internal/core"
	"budgetbee/internal/log"
)

const sendTimeout = 10 * time.Second

// ErrNoRecipient means the user has no known email address yet.
var ErrNoRecipient = errors.New("notify: no recipient address")

// BudgetAlert describes one budget crossing an alert level.
type BudgetAlert struct {
	UserID   string
	Email    string
	Currency string
	Budget   core.Budget
	Level    core.AlertLevel
}

type Notifier interface {
	NotifyBudget(ctx context.Context, a BudgetAlert) error
}

// Subject renders the email subject line.
func Subject(a BudgetAlert) string {
	if a.Level == core.AlertExceeded {
		return fmt.Sprintf("Budget Bee: %s budget exceeded", a.Budget.Category)
	}
	return fmt.Sprintf("Budget Bee: %s budget at %d%%", a.Budget.Category, percentOf(a.Budget))
}

// Body renders the plain text email body.
func Body(a BudgetAlert) string {
	symbol := core.Currencies[a.Currency]
	if symbol == "" {
		symbol = "$"
	}
	v := a.Budget.View(symbol)

	var b strings.Builder
	fmt.Fprintf(&b, "Your %s %s budget has used %s%s of %s%s (%d%%).\n",
		a.Budget.Period, a.Budget.Category, symbol, a.Budget.Spent, symbol, a.Budget.Limit, percentOf(a.Budget))
	if v.Message != "" {
		b.WriteString(v.Message + ".\n")
	}
	b.WriteString("\nOpen Budget Bee to review your recent expenses.\n")
	return b.String()
}

func percentOf(b core.Budget) int {
	if b.Limit.Cents <= 0 {
		return 0
	}
	return int(b.Spent.Cents * 100 / b.Limit.Cents)
}

// mailSender is the part of the Mailgun client used here.
type mailSender interface {
	NewMessage(from, subject, text string, to ...string) *mailgun.Message
	Send(ctx context.Context, m *mailgun.Message) (string, string, error)
}

// MailgunNotifier emails alerts through Mailgun.
type MailgunNotifier struct {
	mg     mailSender
	sender string
	logger *log.Logger
}

func NewMailgunNotifier(domain, apiKey, sender string, logger *log.Logger) *MailgunNotifier {
	return newMailgunNotifier(mailgun.NewMailgun(domain, apiKey), sender, logger)
}

func newMailgunNotifier(mg mailSender, sender string, logger *log.Logger) *MailgunNotifier {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MailgunNotifier{mg: mg, sender: sender, logger: logger.WithComponent(log.ComponentNotify)}
}

func (n *MailgunNotifier) NotifyBudget(ctx context.Context, a BudgetAlert) error {
	if strings.TrimSpace(a.Email) == "" {
		return ErrNoRecipient
	}

	text := Body(a)
	message := n.mg.NewMessage(n.sender, Subject(a), text, a.Email)
	message.SetHtml("<p>" + strings.ReplaceAll(html.EscapeString(strings.TrimSpace(text)), "\n", "<br>") + "</p>")

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, id, err := n.mg.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}
	n.logger.InfoContext(ctx, "Budget alert email sent",
		log.FieldUserID, a.UserID,
		log.FieldBudgetID, a.Budget.ID,
		log.FieldAlertLevel, a.Level,
		"mailgun_id", id,
		"mailgun_response", resp)
	return nil
}

// LogNotifier only logs alerts. It is used when no mail provider is configured.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LogNotifier{logger: logger.WithComponent(log.ComponentNotify)}
}

func (n *LogNotifier) NotifyBudget(ctx context.Context, a BudgetAlert) error {
	n.logger.WarnContext(ctx, Subject(a),
		log.FieldUserID, a.UserID,
		log.FieldBudgetID, a.Budget.ID,
		log.FieldCategory, a.Budget.Category,
		log.FieldAlertLevel, a.Level,
		log.FieldAmountCents, a.Budget.Spent.Cents)
	return nil
}
