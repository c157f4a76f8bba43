package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

type (
	Frequency string

	Severity string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Member struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Avatar string `json:"avatar,omitempty"`
	}

	Category struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Icon string `json:"icon,omitempty"`
	}

	// Rule maps a description keyword to a category. Rules are evaluated
	// in list order, first match wins, case-insensitive substring match.
	Rule struct {
		ID         string `json:"id"`
		Keyword    string `json:"keyword"`
		CategoryID string `json:"categoryId"`
	}

	// Split is one member's share of a single expense, in cents.
	Split struct {
		MemberID string `json:"memberId"`
		Amount   Money  `json:"amountCents"`
	}

	Expense struct {
		ID          string  `json:"id"`
		Description string  `json:"description"`
		Amount      Money   `json:"amountCents"`
		Date        Date    `json:"date"`
		PayerID     string  `json:"payerId"`
		CategoryID  string  `json:"categoryId"`
		Splits      []Split `json:"splits"`
	}

	// ExpenseDraft is the write-path input before an id is assigned.
	// Imported drafts come from statement parsing; they may enter with a
	// single full-amount payer split instead of a balanced split list.
	ExpenseDraft struct {
		Description string  `json:"description"`
		Amount      Money   `json:"amountCents"`
		Date        Date    `json:"date"`
		PayerID     string  `json:"payerId"`
		CategoryID  string  `json:"categoryId"`
		Splits      []Split `json:"splits"`
		Imported    bool    `json:"imported,omitempty"`
	}

	// Budget is a monthly ceiling for one category. At most one per category.
	Budget struct {
		CategoryID string `json:"categoryId"`
		Amount     Money  `json:"amountCents"`
	}

	// BucketGoal is a savings target. Saved only increases via transfers.
	BucketGoal struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Target Money  `json:"targetCents"`
		Saved  Money  `json:"savedCents"`
	}

	// Trip scopes its own expense list, disjoint from the household list.
	Trip struct {
		ID       string    `json:"id"`
		Name     string    `json:"name"`
		Start    Date      `json:"startDate"`
		End      Date      `json:"endDate"`
		Budget   Money     `json:"budgetCents"`
		Expenses []Expense `json:"expenses"`
	}

	Subscription struct {
		ID          string    `json:"id"`
		Description string    `json:"description"`
		Amount      Money     `json:"amountCents"`
		Frequency   Frequency `json:"frequency"`
		NextDue     Date      `json:"nextDue"`
		CategoryID  string    `json:"categoryId"`
	}

	// Notification is append-only; only the read flag mutates after creation.
	Notification struct {
		ID        string    `json:"id"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
		Severity  Severity  `json:"severity"`
		Read      bool      `json:"read"`
	}

	Settings struct {
		MonthlyIncome Money  `json:"monthlyIncomeCents"`
		EmailAlerts   bool   `json:"emailAlerts"`
		Currency      string `json:"currency"`
	}

	// Household is the aggregate root: the full snapshot the store loads
	// and the engine operates on.
	Household struct {
		Members       []Member       `json:"members"`
		Categories    []Category     `json:"categories"`
		Rules         []Rule         `json:"rules"`
		Expenses      []Expense      `json:"expenses"`
		Budgets       []Budget       `json:"budgets"`
		Goals         []BucketGoal   `json:"goals"`
		Trips         []Trip         `json:"trips"`
		Subscriptions []Subscription `json:"subscriptions"`
		Notifications []Notification `json:"notifications"`
		Settings      Settings       `json:"settings"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyKeyword       = errors.New("empty keyword")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidDateRange   = errors.New("end date before start date")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrUnknownPayer       = errors.New("unknown payer")
	ErrUnknownMember      = errors.New("unknown member")
	ErrSplitMismatch      = errors.New("splits do not sum to expense amount")
	ErrInvalidFrequency   = errors.New("invalid frequency")
	ErrDuplicateBudget    = errors.New("duplicate budget for category")
	ErrUnknownGoal        = errors.New("unknown goal")
	ErrUnknownTrip        = errors.New("unknown trip")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month 1-12
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(dateLayout)
}

// MarshalJSON renders the date-only form, or null for the zero date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", d.Time.Format(dateLayout))), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	if str == "" || str == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, str)
	if err != nil {
		return ErrInvalidDate
	}
	d.Time = t
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d ExpenseDraft) Validate(h *Household) error {
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(d.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(d.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if err := d.Date.Validate(); err != nil {
		return err
	}
	if _, ok := h.CategoryByID(d.CategoryID); !ok {
		return ErrUnknownCategory
	}
	if _, ok := h.MemberByID(d.PayerID); !ok {
		return ErrUnknownPayer
	}
	for _, s := range d.Splits {
		if _, ok := h.MemberByID(s.MemberID); !ok {
			return ErrUnknownMember
		}
	}
	// Imported rows may carry a partial split list; authored drafts must balance.
	if !d.Imported && SumSplits(d.Splits) != d.Amount.Cents {
		return ErrSplitMismatch
	}
	return nil
}

func (s Subscription) Validate() error {
	if len(strings.TrimSpace(s.Description)) == 0 {
		return ErrEmptyDescription
	}
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	switch s.Frequency {
	case Weekly, Monthly, Yearly:
	default:
		return ErrInvalidFrequency
	}
	if err := s.NextDue.Validate(); err != nil {
		return err
	}
	return nil
}

// MemberByID looks up a member by id.
func (h *Household) MemberByID(id string) (Member, bool) {
	for _, m := range h.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// CategoryByID looks up a category by id.
func (h *Household) CategoryByID(id string) (Category, bool) {
	for _, c := range h.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// BudgetFor returns the budget for a category, if one is set.
func (h *Household) BudgetFor(categoryID string) (Budget, bool) {
	for _, b := range h.Budgets {
		if b.CategoryID == categoryID {
			return b, true
		}
	}
	return Budget{}, false
}

// GoalByID looks up a bucket goal by id.
func (h *Household) GoalByID(id string) (BucketGoal, bool) {
	for _, g := range h.Goals {
		if g.ID == id {
			return g, true
		}
	}
	return BucketGoal{}, false
}

// TripByID looks up a trip by id.
func (h *Household) TripByID(id string) (Trip, bool) {
	for _, t := range h.Trips {
		if t.ID == id {
			return t, true
		}
	}
	return Trip{}, false
}

// FallbackCategory returns the category unmatched or rejected rows land
// in. A category named "Other" wins; otherwise the first category.
func (h *Household) FallbackCategory() (Category, bool) {
	for _, c := range h.Categories {
		if strings.EqualFold(c.Name, "Other") {
			return c, true
		}
	}
	if len(h.Categories) > 0 {
		return h.Categories[0], true
	}
	return Category{}, false
}
