package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
)

// ReplaceRules swaps the keyword rule list wholesale. Rules keep their
// submitted order; evaluation is first match wins.
func (e *Engine) ReplaceRules(ctx context.Context, rules []core.Rule) error {
	h, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load household: %w", err)
	}

	for i := range rules {
		rules[i].Keyword = strings.TrimSpace(rules[i].Keyword)
		if rules[i].Keyword == "" {
			return core.ErrEmptyKeyword
		}
		if _, ok := h.CategoryByID(rules[i].CategoryID); !ok {
			return core.ErrUnknownCategory
		}
		if rules[i].ID == "" {
			rules[i].ID = uuid.NewString()
		}
	}

	return e.store.ReplaceRules(ctx, rules)
}

// ReplaceBudgets swaps the budget list wholesale. At most one budget per
// category, every amount positive.
func (e *Engine) ReplaceBudgets(ctx context.Context, budgets []core.Budget) error {
	h, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load household: %w", err)
	}

	seen := make(map[string]bool, len(budgets))
	for _, b := range budgets {
		if _, ok := h.CategoryByID(b.CategoryID); !ok {
			return core.ErrUnknownCategory
		}
		if err := b.Amount.Validate(); err != nil {
			return err
		}
		if seen[b.CategoryID] {
			return core.ErrDuplicateBudget
		}
		seen[b.CategoryID] = true
	}

	return e.store.ReplaceBudgets(ctx, budgets)
}

// ReplaceGoals swaps the bucket goal list wholesale. Saved amounts only
// move through TransferToGoal: existing goals keep their stored progress
// and new goals start at zero, whatever the caller sent.
func (e *Engine) ReplaceGoals(ctx context.Context, goals []core.BucketGoal) error {
	h, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load household: %w", err)
	}

	for i := range goals {
		goals[i].Name = strings.TrimSpace(goals[i].Name)
		if goals[i].Name == "" {
			return core.ErrEmptyName
		}
		if err := goals[i].Target.Validate(); err != nil {
			return err
		}
		if existing, ok := h.GoalByID(goals[i].ID); ok {
			goals[i].Saved = existing.Saved
		} else {
			goals[i].Saved = core.Money{}
			if goals[i].ID == "" {
				goals[i].ID = uuid.NewString()
			}
		}
	}

	return e.store.ReplaceGoals(ctx, goals)
}

// ReplaceTrips swaps trip metadata wholesale. Expense lists are owned by
// AddTripExpense: existing trips keep their stored expenses and new
// trips start empty.
func (e *Engine) ReplaceTrips(ctx context.Context, trips []core.Trip) error {
	h, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load household: %w", err)
	}

	for i := range trips {
		trips[i].Name = strings.TrimSpace(trips[i].Name)
		if trips[i].Name == "" {
			return core.ErrEmptyName
		}
		if err := trips[i].Start.Validate(); err != nil {
			return err
		}
		if err := trips[i].End.Validate(); err != nil {
			return err
		}
		if trips[i].End.Time.Before(trips[i].Start.Time) {
			return core.ErrInvalidDateRange
		}
		if trips[i].Budget.Cents < 0 {
			return core.ErrInvalidAmount
		}
		if existing, ok := h.TripByID(trips[i].ID); ok {
			trips[i].Expenses = existing.Expenses
		} else {
			trips[i].Expenses = []core.Expense{}
			if trips[i].ID == "" {
				trips[i].ID = uuid.NewString()
			}
		}
	}

	return e.store.ReplaceTrips(ctx, trips)
}

// ReplaceSubscriptions swaps the subscription list wholesale.
func (e *Engine) ReplaceSubscriptions(ctx context.Context, subs []core.Subscription) error {
	h, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load household: %w", err)
	}

	for i := range subs {
		subs[i].Description = strings.TrimSpace(subs[i].Description)
		if err := subs[i].Validate(); err != nil {
			return err
		}
		if _, ok := h.CategoryByID(subs[i].CategoryID); !ok {
			return core.ErrUnknownCategory
		}
		if subs[i].ID == "" {
			subs[i].ID = uuid.NewString()
		}
	}

	return e.store.ReplaceSubscriptions(ctx, subs)
}

// UpdateSettings saves household settings. A zero income means unset;
// the currency code falls back to EUR.
func (e *Engine) UpdateSettings(ctx context.Context, s core.Settings) error {
	if s.MonthlyIncome.Cents < 0 {
		return core.ErrInvalidAmount
	}
	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
	if s.Currency == "" {
		s.Currency = "EUR"
	}
	return e.store.SaveSettings(ctx, s)
}

// TransferToGoal moves money into a bucket goal. Saved only ever
// increases; overshooting the target is allowed.
func (e *Engine) TransferToGoal(ctx context.Context, goalID string, amount core.Money) (*core.BucketGoal, error) {
	if amount.Cents <= 0 {
		return nil, core.ErrInvalidAmount
	}

	h, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load household: %w", err)
	}
	goal, ok := h.GoalByID(goalID)
	if !ok {
		return nil, core.ErrUnknownGoal
	}

	before := goal.Saved.Cents
	goal.Saved.Cents += amount.Cents
	if err := e.store.UpdateGoalSaved(ctx, goalID, goal.Saved); err != nil {
		return nil, fmt.Errorf("update goal saved: %w", err)
	}

	notifications := []core.Notification{newNotification(
		fmt.Sprintf("Moved %s into %s", amount.DecimalString(), goal.Name),
		core.SeveritySuccess,
	)}
	if before < goal.Target.Cents && goal.Saved.Cents >= goal.Target.Cents {
		notifications = append(notifications, newNotification(
			fmt.Sprintf("Goal reached: %s is fully funded", goal.Name),
			core.SeveritySuccess,
		))
	}
	e.appendNotifications(ctx, notifications)

	return &goal, nil
}

// AddTripExpense validates a draft and appends it to one trip's scoped
// expense list. Crossing the trip budget raises warnings only; a trip
// has no hard ceiling. The budget here covers the whole trip, not a
// calendar month.
func (e *Engine) AddTripExpense(ctx context.Context, tripID string, draft core.ExpenseDraft) (*core.Expense, []core.Notification, error) {
	h, err := e.store.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load household: %w", err)
	}
	trip, ok := h.TripByID(tripID)
	if !ok {
		return nil, nil, core.ErrUnknownTrip
	}

	draft.Splits = core.DropZeroSplits(draft.Splits)
	if err := draft.Validate(h); err != nil {
		return nil, nil, err
	}

	expense := core.Expense{
		ID:          uuid.NewString(),
		Description: strings.TrimSpace(draft.Description),
		Amount:      draft.Amount,
		Date:        draft.Date,
		PayerID:     draft.PayerID,
		CategoryID:  draft.CategoryID,
		Splits:      draft.Splits,
	}

	notifications := tripBudgetNotifications(trip, draft.Amount)

	if err := e.store.AppendTripExpense(ctx, tripID, expense); err != nil {
		return nil, nil, fmt.Errorf("append trip expense: %w", err)
	}

	e.appendNotifications(ctx, notifications)
	e.publishAlerts(ctx, h, notifications)

	return &expense, notifications, nil
}

// tripBudgetNotifications applies the same crossing discipline as
// category budgets, warning severity for both tiers.
func tripBudgetNotifications(trip core.Trip, amount core.Money) []core.Notification {
	if trip.Budget.Cents <= 0 {
		return nil
	}

	var before int64
	for _, e := range trip.Expenses {
		before += e.Amount.Cents
	}
	after := before + amount.Cents
	limit := trip.Budget.Cents

	switch {
	case before < limit && after >= limit:
		return []core.Notification{newNotification(
			fmt.Sprintf("Trip budget exceeded for %s: spent %s of %s",
				trip.Name, core.Money{Cents: after}.DecimalString(), trip.Budget.DecimalString()),
			core.SeverityWarning,
		)}
	case before*10 < limit*9 && after*10 >= limit*9 && after < limit:
		return []core.Notification{newNotification(
			fmt.Sprintf("Approaching trip budget for %s: spent %s of %s",
				trip.Name, core.Money{Cents: after}.DecimalString(), trip.Budget.DecimalString()),
			core.SeverityWarning,
		)}
	}
	return nil
}
