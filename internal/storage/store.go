// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/housemerge/internal/models"
)

// ErrNotFound is returned (possibly wrapped) when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the read side used by the merge engine and the unit of work
// that carries every merge mutation.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the engine.
type Store interface {
	// RoleOf returns the caller's role in the group.
	// Returns ErrNotFound if the user is not a member of the group.
	RoleOf(ctx context.Context, groupID, userID string) (models.Role, error)

	// GetPeopleByIDs loads several people in one query.
	// People that don't exist are omitted from the result.
	GetPeopleByIDs(ctx context.Context, ids []string) (map[string]*models.Person, error)

	// ListMergeAudits returns a group's merge audit entries, newest first.
	ListMergeAudits(ctx context.Context, groupID string) ([]*models.MergeAuditEntry, error)

	// RunInTx runs fn inside a single transaction. The transaction commits
	// only if fn returns nil; any error rolls back every mutation made via tx.
	RunInTx(ctx context.Context, fn func(tx MergeTx) error) error

	// Close releases any resources held by the store.
	Close() error
}

// MergeTx is the set of row primitives available inside a merge transaction.
type MergeTx interface {
	// ReassignTasks rewrites the assignee of every task owned by fromPersonID
	// and returns the number of rows changed. The same holds for the
	// recurring task and expense variants.
	ReassignTasks(ctx context.Context, fromPersonID, toPersonID string) (int, error)
	ReassignRecurringTasks(ctx context.Context, fromPersonID, toPersonID string) (int, error)
	ReassignExpenses(ctx context.Context, fromPersonID, toPersonID string) (int, error)

	// ListSplitsByPerson returns every expense split owned by the person.
	ListSplitsByPerson(ctx context.Context, personID string) ([]models.ExpenseSplit, error)
	SaveSplit(ctx context.Context, split models.ExpenseSplit) error
	DeleteSplit(ctx context.Context, splitID string) error

	// ListSettlementsTouching returns the group's settlements where the person
	// is either the payer or the receiver.
	ListSettlementsTouching(ctx context.Context, groupID, personID string) ([]models.Settlement, error)
	UpdateSettlementParties(ctx context.Context, settlementID, fromPersonID, toPersonID string) error
	DeleteSettlement(ctx context.Context, settlementID string) error

	// ListExpensesByGroup returns the group's expenses with their splits.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)

	// ArchivePerson archives an active person.
	// Returns ErrNotFound if no active person has the given ID.
	ArchivePerson(ctx context.Context, personID string, archival models.Archival) error

	// InsertMergeAudit appends an audit entry. The entry ID is generated if empty.
	InsertMergeAudit(ctx context.Context, entry *models.MergeAuditEntry) error
}
