package models

// Keys recorded in MergeAuditEntry.MovedCounts.
const (
	CountTasks              = "tasks"
	CountRecurringTasks     = "recurring_tasks"
	CountExpenses           = "expenses"
	CountSplits             = "splits"
	CountSettlements        = "settlements"
	CountSplitsMerged       = "splits_merged"
	CountSplitsMoved        = "splits_moved"
	CountSettlementsMoved   = "settlements_moved"
	CountSettlementsRemoved = "settlements_removed"
)

// MoveCounts summarizes the rows a merge touched.
type MoveCounts struct {
	// Rows reassigned or loaded before conflict resolution.
	Tasks          int
	RecurringTasks int
	Expenses       int
	Splits         int
	Settlements    int

	// Resolution outcomes.
	SplitsMerged       int
	SplitsMoved        int
	SettlementsMoved   int
	SettlementsRemoved int
}

// Map returns the counts keyed the way they are stored in the audit log.
func (c MoveCounts) Map() map[string]int {
	return map[string]int{
		CountTasks:              c.Tasks,
		CountRecurringTasks:     c.RecurringTasks,
		CountExpenses:           c.Expenses,
		CountSplits:             c.Splits,
		CountSettlements:        c.Settlements,
		CountSplitsMerged:       c.SplitsMerged,
		CountSplitsMoved:        c.SplitsMoved,
		CountSettlementsMoved:   c.SettlementsMoved,
		CountSettlementsRemoved: c.SettlementsRemoved,
	}
}

// MoveCountsFromMap is the inverse of MoveCounts.Map. Unknown keys are ignored.
func MoveCountsFromMap(m map[string]int) MoveCounts {
	return MoveCounts{
		Tasks:              m[CountTasks],
		RecurringTasks:     m[CountRecurringTasks],
		Expenses:           m[CountExpenses],
		Splits:             m[CountSplits],
		Settlements:        m[CountSettlements],
		SplitsMerged:       m[CountSplitsMerged],
		SplitsMoved:        m[CountSplitsMoved],
		SettlementsMoved:   m[CountSettlementsMoved],
		SettlementsRemoved: m[CountSettlementsRemoved],
	}
}

// MergeAuditEntry is the append-only record of one successful merge.
type MergeAuditEntry struct {
	ID             string
	GroupID        string
	SourcePersonID string
	TargetPersonID string

	// MergedBy is the user ID of the admin who ran the merge.
	MergedBy string

	// MergedAt is the Unix timestamp of the merge.
	MergedAt int64

	MovedCounts map[string]int
}
