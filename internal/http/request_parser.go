// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"budgetbee/internal/core"
	"budgetbee/internal/services"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using the
// current month for anything missing. Out-of-range values are an error.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1900 || y > 9999 {
			return params, fmt.Errorf("%w: invalid year %q", services.ErrValidation, v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return params, fmt.Errorf("%w: invalid month %q", services.ErrValidation, v)
		}
		params.Month = m
	}

	return params, nil
}

// ParseLimit reads ?limit=, clamped to [1, max].
func ParseLimit(query url.Values, def, max int) int {
	v, err := strconv.Atoi(strings.TrimSpace(query.Get("limit")))
	if err != nil || v < 1 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// pathID returns the {id} URL parameter when it is a well-formed UUID.
func pathID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: invalid id %q", services.ErrValidation, id)
	}
	return id, nil
}

// decodeJSON reads a single JSON object from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", services.ErrValidation)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body too large", services.ErrValidation)
		default:
			return fmt.Errorf("%w: %v", services.ErrValidation, err)
		}
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// expenseInput is the body accepted by expense create/update.
type expenseInput struct {
	Title         string     `json:"title"`
	Amount        core.Money `json:"amount"`
	Category      string     `json:"category"`
	Date          *core.Date `json:"date"`
	Description   string     `json:"description"`
	PaymentMethod string     `json:"payment_method"`
}

// toExpense normalizes the input. A missing date means today.
func (in expenseInput) toExpense(now time.Time) (core.Expense, error) {
	cat, err := core.ParseCategory(in.Category)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %v", services.ErrValidation, err)
	}
	date := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if in.Date != nil {
		date = *in.Date
	}
	return core.Expense{
		Title:         sanitizeInput(in.Title),
		Amount:        in.Amount,
		Category:      cat,
		Date:          date,
		Description:   sanitizeInput(in.Description),
		PaymentMethod: sanitizeInput(in.PaymentMethod),
	}, nil
}

// budgetInput is the body accepted by budget create/update.
type budgetInput struct {
	Category       string     `json:"category"`
	Limit          core.Money `json:"limit_amount"`
	Period         string     `json:"period_type"`
	AlertThreshold int        `json:"alert_threshold"`
	Active         *bool      `json:"is_active"`
}

func (in budgetInput) toBudget() (core.Budget, error) {
	cat, err := core.ParseCategory(in.Category)
	if err != nil {
		return core.Budget{}, fmt.Errorf("%w: %v", services.ErrValidation, err)
	}
	period, err := core.ParsePeriod(in.Period)
	if err != nil {
		return core.Budget{}, fmt.Errorf("%w: %v", services.ErrValidation, err)
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return core.Budget{
		Category:       cat,
		Limit:          in.Limit,
		Period:         period,
		AlertThreshold: in.AlertThreshold,
		Active:         active,
	}, nil
}

type profileInput struct {
	Currency string `json:"currency"`
}
