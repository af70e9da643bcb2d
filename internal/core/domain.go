package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Entertainment Category = "Entertainment"
	Shopping      Category = "Shopping"
	Bills         Category = "Bills"
	Other         Category = "Other"
)

const (
	Weekly    PeriodType = "weekly"
	Monthly   PeriodType = "monthly"
	Quarterly PeriodType = "quarterly"
	Yearly    PeriodType = "yearly"
	Custom    PeriodType = "custom"
)

// DefaultAlertThreshold is the percentage of a budget limit at which a warning fires.
const DefaultAlertThreshold = 80

const dateLayout = "2006-01-02"

type (
	Category   string
	PeriodType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID            string   `json:"id"`
		UserID        string   `json:"user_id"`
		Title         string   `json:"title"`
		Amount        Money    `json:"amount"`
		Category      Category `json:"category"`
		Date          Date     `json:"date"`
		Description   string   `json:"description,omitempty"`
		PaymentMethod string   `json:"payment_method,omitempty"`
	}

	Budget struct {
		ID             string     `json:"id"`
		UserID         string     `json:"user_id"`
		Category       Category   `json:"category"`
		Limit          Money      `json:"limit_amount"`
		Period         PeriodType `json:"period_type"`
		AlertThreshold int        `json:"alert_threshold"`
		Spent          Money      `json:"spent"` // derived on read
		Active         bool       `json:"is_active"`
	}

	Profile struct {
		UserID   string `json:"user_id"`
		Email    string `json:"email,omitempty"`
		Currency string `json:"currency"`
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidPeriod   = errors.New("invalid period type")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrEmptyTitle      = errors.New("empty title")
	ErrMissingOwner    = errors.New("missing owner")
)

// Categories lists the allowed categories in display order.
var Categories = []Category{Food, Transport, Entertainment, Shopping, Bills, Other}

// ParseCategory maps a label onto one of the allowed categories.
// Matching ignores case and surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w %q: must be one of %v", ErrInvalidCategory, s, Categories)
}

func (c Category) Validate() error {
	for _, known := range Categories {
		if c == known {
			return nil
		}
	}
	return fmt.Errorf("%w %q", ErrInvalidCategory, string(c))
}

func ParsePeriod(s string) (PeriodType, error) {
	p := PeriodType(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return Monthly, nil
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

func (p PeriodType) Validate() error {
	switch p {
	case Weekly, Monthly, Quarterly, Yearly, Custom:
		return nil
	default:
		return fmt.Errorf("%w %q", ErrInvalidPeriod, string(p))
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a calendar date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w %q: expected YYYY-MM-DD", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	// Accept full timestamps too, keeping only the calendar day.
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrMissingOwner
	}
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Category.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(e.Description) > 1000 {
		return errors.New("description too long (max 1000 characters)")
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrMissingOwner
	}
	if err := b.Category.Validate(); err != nil {
		return err
	}
	if err := b.Limit.Validate(); err != nil {
		return err
	}
	if err := b.Period.Validate(); err != nil {
		return err
	}
	if b.AlertThreshold < 1 || b.AlertThreshold > 100 {
		return fmt.Errorf("invalid alert threshold %d: must be between 1 and 100", b.AlertThreshold)
	}
	return nil
}

// Currencies maps supported currency codes to their display symbol.
var Currencies = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
	"JPY": "¥",
	"AUD": "A$",
	"CAD": "C$",
}

func ParseCurrency(s string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if _, ok := Currencies[code]; !ok {
		return "", fmt.Errorf("%w %q", ErrInvalidCurrency, s)
	}
	return code, nil
}
