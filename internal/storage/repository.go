// Package storage is the SQLite-backed household store. It is an
// explicit handle passed to whoever needs it; there is no package-level
// database state. Reads return the full snapshot, writes are one
// transaction each, and whole-collection groups are replaced rather
// than patched.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row keyed by id does not exist.
var ErrNotFound = errors.New("not found")

// Mirror states for the sheet mirror queue.
const (
	MirrorPending = "pending"
	MirrorDone    = "done"
	MirrorError   = "error"
)

const timeFormat = time.RFC3339Nano

type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath, runs
// migrations, and returns a ready handle.
func Open(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Load reads the full household snapshot.
func (r *Repository) Load(ctx context.Context) (*core.Household, error) {
	h := &core.Household{}
	var err error

	if h.Members, err = r.loadMembers(ctx); err != nil {
		return nil, err
	}
	if h.Categories, err = r.loadCategories(ctx); err != nil {
		return nil, err
	}
	if h.Rules, err = r.loadRules(ctx); err != nil {
		return nil, err
	}

	splits, err := r.loadSplits(ctx)
	if err != nil {
		return nil, err
	}
	household, byTrip, err := r.loadExpenses(ctx, splits)
	if err != nil {
		return nil, err
	}
	h.Expenses = household

	if h.Budgets, err = r.loadBudgets(ctx); err != nil {
		return nil, err
	}
	if h.Goals, err = r.loadGoals(ctx); err != nil {
		return nil, err
	}
	if h.Trips, err = r.loadTrips(ctx, byTrip); err != nil {
		return nil, err
	}
	if h.Subscriptions, err = r.loadSubscriptions(ctx); err != nil {
		return nil, err
	}
	if h.Notifications, err = r.loadNotifications(ctx); err != nil {
		return nil, err
	}
	if h.Settings, err = r.loadSettings(ctx); err != nil {
		return nil, err
	}

	return h, nil
}

// ListMembers returns household members without loading the full snapshot.
// The mirror worker uses it to build its name index.
func (r *Repository) ListMembers(ctx context.Context) ([]core.Member, error) {
	return r.loadMembers(ctx)
}

// ListCategories returns household categories without loading the full snapshot.
func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	return r.loadCategories(ctx)
}

func (r *Repository) loadMembers(ctx context.Context) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, avatar FROM members ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := []core.Member{}
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Avatar); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

func (r *Repository) loadCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, icon FROM categories ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func (r *Repository) loadRules(ctx context.Context) ([]core.Rule, error) {
	// Insertion order is evaluation order, so rowid is load order too.
	rows, err := r.db.QueryContext(ctx, `SELECT id, keyword, category_id FROM rules ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	rules := []core.Rule{}
	for rows.Next() {
		var rule core.Rule
		if err := rows.Scan(&rule.ID, &rule.Keyword, &rule.CategoryID); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}

func (r *Repository) loadSplits(ctx context.Context) (map[string][]core.Split, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT expense_id, member_id, amount_cents FROM expense_splits ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query splits: %w", err)
	}
	defer rows.Close()

	splits := map[string][]core.Split{}
	for rows.Next() {
		var expenseID, memberID string
		var cents int64
		if err := rows.Scan(&expenseID, &memberID, &cents); err != nil {
			return nil, fmt.Errorf("scan split: %w", err)
		}
		splits[expenseID] = append(splits[expenseID], core.Split{
			MemberID: memberID,
			Amount:   core.Money{Cents: cents},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate splits: %w", err)
	}
	return splits, nil
}

func (r *Repository) loadExpenses(ctx context.Context, splits map[string][]core.Split) ([]core.Expense, map[string][]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, amount_cents, expense_date, payer_id, category_id, trip_id FROM expenses ORDER BY rowid`)
	if err != nil {
		return nil, nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	household := []core.Expense{}
	byTrip := map[string][]core.Expense{}
	for rows.Next() {
		var e core.Expense
		var cents int64
		var dateStr string
		var tripID sql.NullString
		if err := rows.Scan(&e.ID, &e.Description, &cents, &dateStr, &e.PayerID, &e.CategoryID, &tripID); err != nil {
			return nil, nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Amount = core.Money{Cents: cents}
		if e.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, nil, fmt.Errorf("parse expense date %q: %w", dateStr, err)
		}
		e.Splits = splits[e.ID]

		if tripID.Valid {
			byTrip[tripID.String] = append(byTrip[tripID.String], e)
		} else {
			household = append(household, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return household, byTrip, nil
}

func (r *Repository) loadBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category_id, amount_cents FROM budgets ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	budgets := []core.Budget{}
	for rows.Next() {
		var b core.Budget
		var cents int64
		if err := rows.Scan(&b.CategoryID, &cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Amount = core.Money{Cents: cents}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return budgets, nil
}

func (r *Repository) loadGoals(ctx context.Context) ([]core.BucketGoal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, target_cents, saved_cents FROM goals ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	goals := []core.BucketGoal{}
	for rows.Next() {
		var g core.BucketGoal
		var target, saved int64
		if err := rows.Scan(&g.ID, &g.Name, &target, &saved); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.Target = core.Money{Cents: target}
		g.Saved = core.Money{Cents: saved}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return goals, nil
}

func (r *Repository) loadTrips(ctx context.Context, byTrip map[string][]core.Expense) ([]core.Trip, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, start_date, end_date, budget_cents FROM trips ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()

	trips := []core.Trip{}
	for rows.Next() {
		var t core.Trip
		var startStr, endStr string
		var cents int64
		if err := rows.Scan(&t.ID, &t.Name, &startStr, &endStr, &cents); err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		if t.Start, err = core.ParseDate(startStr); err != nil {
			return nil, fmt.Errorf("parse trip start %q: %w", startStr, err)
		}
		if t.End, err = core.ParseDate(endStr); err != nil {
			return nil, fmt.Errorf("parse trip end %q: %w", endStr, err)
		}
		t.Budget = core.Money{Cents: cents}
		t.Expenses = byTrip[t.ID]
		if t.Expenses == nil {
			t.Expenses = []core.Expense{}
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trips: %w", err)
	}
	return trips, nil
}

func (r *Repository) loadSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, amount_cents, frequency, next_due, category_id FROM subscriptions ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []core.Subscription{}
	for rows.Next() {
		var s core.Subscription
		var cents int64
		var freq, dueStr string
		if err := rows.Scan(&s.ID, &s.Description, &cents, &freq, &dueStr, &s.CategoryID); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		s.Amount = core.Money{Cents: cents}
		s.Frequency = core.Frequency(freq)
		if s.NextDue, err = core.ParseDate(dueStr); err != nil {
			return nil, fmt.Errorf("parse subscription due date %q: %w", dueStr, err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}

func (r *Repository) loadNotifications(ctx context.Context) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, message, severity, created_at, is_read FROM notifications ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []core.Notification{}
	for rows.Next() {
		var n core.Notification
		var severity, createdStr string
		if err := rows.Scan(&n.ID, &n.Message, &severity, &createdStr, &n.Read); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Severity = core.Severity(severity)
		if n.Timestamp, err = time.Parse(timeFormat, createdStr); err != nil {
			return nil, fmt.Errorf("parse notification timestamp %q: %w", createdStr, err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

func (r *Repository) loadSettings(ctx context.Context) (core.Settings, error) {
	var s core.Settings
	var income int64
	err := r.db.QueryRowContext(ctx,
		`SELECT monthly_income_cents, email_alerts, currency FROM settings WHERE id = 1`).
		Scan(&income, &s.EmailAlerts, &s.Currency)
	if err != nil {
		return s, fmt.Errorf("query settings: %w", err)
	}
	s.MonthlyIncome = core.Money{Cents: income}
	return s, nil
}

// GetExpense retrieves a single household expense with its splits.
func (r *Repository) GetExpense(ctx context.Context, id string) (*core.Expense, error) {
	var e core.Expense
	var cents int64
	var dateStr string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, description, amount_cents, expense_date, payer_id, category_id FROM expenses WHERE id = ?`, id).
		Scan(&e.ID, &e.Description, &cents, &dateStr, &e.PayerID, &e.CategoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	e.Amount = core.Money{Cents: cents}
	if e.Date, err = core.ParseDate(dateStr); err != nil {
		return nil, fmt.Errorf("parse expense date %q: %w", dateStr, err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT member_id, amount_cents FROM expense_splits WHERE expense_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("query splits: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var memberID string
		var splitCents int64
		if err := rows.Scan(&memberID, &splitCents); err != nil {
			return nil, fmt.Errorf("scan split: %w", err)
		}
		e.Splits = append(e.Splits, core.Split{MemberID: memberID, Amount: core.Money{Cents: splitCents}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate splits: %w", err)
	}
	return &e, nil
}

// AppendExpense persists a household expense and its splits in one
// transaction and queues it for the sheet mirror.
func (r *Repository) AppendExpense(ctx context.Context, e core.Expense) error {
	return r.appendExpense(ctx, e, nil)
}

// AppendTripExpense persists an expense scoped to a trip.
func (r *Repository) AppendTripExpense(ctx context.Context, tripID string, e core.Expense) error {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM trips WHERE id = ?`, tripID).Scan(&count); err != nil {
		return fmt.Errorf("check trip: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return r.appendExpense(ctx, e, &tripID)
}

func (r *Repository) appendExpense(ctx context.Context, e core.Expense, tripID *string) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (id, description, amount_cents, expense_date, payer_id, category_id, trip_id, mirror_status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Description, e.Amount.Cents, e.Date.String(), e.PayerID, e.CategoryID,
			tripID, MirrorPending, time.Now().UTC().Format(timeFormat))
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		for _, s := range e.Splits {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO expense_splits (expense_id, member_id, amount_cents) VALUES (?, ?, ?)`,
				e.ID, s.MemberID, s.Amount.Cents)
			if err != nil {
				return fmt.Errorf("insert split: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())
	return nil
}

// DeleteExpense removes an expense and its splits.
func (r *Repository) DeleteExpense(ctx context.Context, id string) error {
	var deleted int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM expense_splits WHERE expense_id = ?`, id); err != nil {
			return fmt.Errorf("delete splits: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}
		if deleted, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

// AppendNotifications appends to the notification log. The log is
// append-only; nothing here ever rewrites an existing entry.
func (r *Repository) AppendNotifications(ctx context.Context, notifications []core.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, n := range notifications {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO notifications (id, message, severity, created_at, is_read) VALUES (?, ?, ?, ?, ?)`,
				n.ID, n.Message, string(n.Severity), n.Timestamp.UTC().Format(timeFormat), n.Read)
			if err != nil {
				return fmt.Errorf("insert notification: %w", err)
			}
		}
		return nil
	})
}

func (r *Repository) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) MarkAllNotificationsRead(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE is_read = 0`); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// UpdateGoalSaved sets a goal's saved amount.
func (r *Repository) UpdateGoalSaved(ctx context.Context, goalID string, saved core.Money) error {
	res, err := r.db.ExecContext(ctx, `UPDATE goals SET saved_cents = ? WHERE id = ?`, saved.Cents, goalID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Goal saved amount updated", "goal_id", goalID, "saved_cents", saved.Cents)
	return nil
}

// AdvanceSubscription moves a subscription's next due date forward.
func (r *Repository) AdvanceSubscription(ctx context.Context, id string, nextDue core.Date) error {
	res, err := r.db.ExecContext(ctx, `UPDATE subscriptions SET next_due = ? WHERE id = ?`, nextDue.String(), id)
	if err != nil {
		return fmt.Errorf("advance subscription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceRules swaps the whole rule list. Insert order is evaluation
// order.
func (r *Repository) ReplaceRules(ctx context.Context, rules []core.Rule) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM rules`); err != nil {
			return fmt.Errorf("clear rules: %w", err)
		}
		for _, rule := range rules {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO rules (id, keyword, category_id) VALUES (?, ?, ?)`,
				rule.ID, rule.Keyword, rule.CategoryID)
			if err != nil {
				return fmt.Errorf("insert rule: %w", err)
			}
		}
		return nil
	})
}

func (r *Repository) ReplaceBudgets(ctx context.Context, budgets []core.Budget) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM budgets`); err != nil {
			return fmt.Errorf("clear budgets: %w", err)
		}
		for _, b := range budgets {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO budgets (category_id, amount_cents) VALUES (?, ?)`,
				b.CategoryID, b.Amount.Cents)
			if err != nil {
				return fmt.Errorf("insert budget: %w", err)
			}
		}
		return nil
	})
}

func (r *Repository) ReplaceGoals(ctx context.Context, goals []core.BucketGoal) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM goals`); err != nil {
			return fmt.Errorf("clear goals: %w", err)
		}
		for _, g := range goals {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO goals (id, name, target_cents, saved_cents) VALUES (?, ?, ?, ?)`,
				g.ID, g.Name, g.Target.Cents, g.Saved.Cents)
			if err != nil {
				return fmt.Errorf("insert goal: %w", err)
			}
		}
		return nil
	})
}

// ReplaceTrips swaps the trip list together with every trip-scoped
// expense; trips own their expenses.
func (r *Repository) ReplaceTrips(ctx context.Context, trips []core.Trip) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM expense_splits WHERE expense_id IN (SELECT id FROM expenses WHERE trip_id IS NOT NULL)`); err != nil {
			return fmt.Errorf("clear trip splits: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE trip_id IS NOT NULL`); err != nil {
			return fmt.Errorf("clear trip expenses: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM trips`); err != nil {
			return fmt.Errorf("clear trips: %w", err)
		}

		now := time.Now().UTC().Format(timeFormat)
		for _, t := range trips {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO trips (id, name, start_date, end_date, budget_cents) VALUES (?, ?, ?, ?, ?)`,
				t.ID, t.Name, t.Start.String(), t.End.String(), t.Budget.Cents)
			if err != nil {
				return fmt.Errorf("insert trip: %w", err)
			}
			for _, e := range t.Expenses {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO expenses (id, description, amount_cents, expense_date, payer_id, category_id, trip_id, mirror_status, created_at)
					 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					e.ID, e.Description, e.Amount.Cents, e.Date.String(), e.PayerID, e.CategoryID,
					t.ID, MirrorDone, now)
				if err != nil {
					return fmt.Errorf("insert trip expense: %w", err)
				}
				for _, s := range e.Splits {
					_, err := tx.ExecContext(ctx,
						`INSERT INTO expense_splits (expense_id, member_id, amount_cents) VALUES (?, ?, ?)`,
						e.ID, s.MemberID, s.Amount.Cents)
					if err != nil {
						return fmt.Errorf("insert trip split: %w", err)
					}
				}
			}
		}
		return nil
	})
}

func (r *Repository) ReplaceSubscriptions(ctx context.Context, subs []core.Subscription) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM subscriptions`); err != nil {
			return fmt.Errorf("clear subscriptions: %w", err)
		}
		for _, s := range subs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO subscriptions (id, description, amount_cents, frequency, next_due, category_id) VALUES (?, ?, ?, ?, ?, ?)`,
				s.ID, s.Description, s.Amount.Cents, string(s.Frequency), s.NextDue.String(), s.CategoryID)
			if err != nil {
				return fmt.Errorf("insert subscription: %w", err)
			}
		}
		return nil
	})
}

func (r *Repository) SaveSettings(ctx context.Context, s core.Settings) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE settings SET monthly_income_cents = ?, email_alerts = ?, currency = ? WHERE id = 1`,
		s.MonthlyIncome.Cents, s.EmailAlerts, s.Currency)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// PendingMirrorExpense is the minimal row the mirror queue needs.
type PendingMirrorExpense struct {
	ID        string
	CreatedAt time.Time
}

// GetPendingMirrorExpenses lists household expenses not yet mirrored to
// the spreadsheet. Trip expenses never mirror.
func (r *Repository) GetPendingMirrorExpenses(ctx context.Context, limit int) ([]PendingMirrorExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at FROM expenses WHERE mirror_status = ? AND trip_id IS NULL ORDER BY rowid LIMIT ?`,
		MirrorPending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending mirror expenses: %w", err)
	}
	defer rows.Close()

	pending := []PendingMirrorExpense{}
	for rows.Next() {
		var p PendingMirrorExpense
		var createdStr string
		if err := rows.Scan(&p.ID, &createdStr); err != nil {
			return nil, fmt.Errorf("scan pending mirror expense: %w", err)
		}
		if p.CreatedAt, err = time.Parse(timeFormat, createdStr); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdStr, err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending mirror expenses: %w", err)
	}
	return pending, nil
}

// MarkMirrored marks an expense as mirrored to the spreadsheet.
func (r *Repository) MarkMirrored(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET mirror_status = ? WHERE id = ?`, MirrorDone, id); err != nil {
		return fmt.Errorf("mark mirrored: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as mirrored", "id", id)
	return nil
}

// MarkMirrorError marks an expense whose mirror attempt failed; the
// pending sweep will not pick it up again.
func (r *Repository) MarkMirrorError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET mirror_status = ? WHERE id = ?`, MirrorError, id); err != nil {
		return fmt.Errorf("mark mirror error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with mirror error", "id", id)
	return nil
}
