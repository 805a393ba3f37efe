package models

// Expense is a purchase paid by one person and shared through splits.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Description is a human-readable label (e.g. "Groceries").
	Description string

	// AmountCents is the total amount paid, in cents.
	AmountCents int64

	// PaidByPersonID is the person who paid for the expense.
	PaidByPersonID string

	// Splits are the per-person shares. Only populated by calls that say so.
	Splits []ExpenseSplit

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// ExpenseSplit is one person's share of an expense.
// At most one split exists per (ExpenseID, PersonID).
type ExpenseSplit struct {
	ID              string
	ExpenseID       string
	PersonID        string
	AmountOwedCents int64
}
