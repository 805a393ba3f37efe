package models

// Task is a one-off chore assigned to at most one person.
type Task struct {
	ID      string
	GroupID string
	Title   string

	// AssignedToPersonID is empty when the task is unassigned.
	AssignedToPersonID string

	CreatedAt int64
}

// RecurringTask is a repeating chore template assigned to at most one person.
type RecurringTask struct {
	ID      string
	GroupID string
	Title   string

	// Cadence is a free-form schedule description (e.g. "weekly").
	Cadence string

	// AssignedToPersonID is empty when the task is unassigned.
	AssignedToPersonID string

	CreatedAt int64
}
