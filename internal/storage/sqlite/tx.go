package sqlite

import (
	"context"

	"github.com/mmynk/housemerge/internal/models"
	"github.com/mmynk/housemerge/internal/storage"
)

var _ storage.MergeTx = (*txStore)(nil)

// txStore exposes the merge row primitives over an open transaction.
type txStore struct {
	q querier
}

func (t *txStore) ReassignTasks(ctx context.Context, fromPersonID, toPersonID string) (int, error) {
	return reassignOwner(ctx, t.q, "tasks", fromPersonID, toPersonID)
}

func (t *txStore) ReassignRecurringTasks(ctx context.Context, fromPersonID, toPersonID string) (int, error) {
	return reassignOwner(ctx, t.q, "recurring_tasks", fromPersonID, toPersonID)
}

func (t *txStore) ReassignExpenses(ctx context.Context, fromPersonID, toPersonID string) (int, error) {
	return reassignOwner(ctx, t.q, "expenses", fromPersonID, toPersonID)
}

func (t *txStore) ListSplitsByPerson(ctx context.Context, personID string) ([]models.ExpenseSplit, error) {
	return querySplits(ctx, t.q,
		`SELECT id, expense_id, person_id, amount_owed_cents FROM expense_splits
		 WHERE person_id = ? ORDER BY expense_id`,
		personID,
	)
}

func (t *txStore) SaveSplit(ctx context.Context, split models.ExpenseSplit) error {
	return saveSplit(ctx, t.q, split)
}

func (t *txStore) DeleteSplit(ctx context.Context, splitID string) error {
	return deleteSplit(ctx, t.q, splitID)
}

func (t *txStore) ListSettlementsTouching(ctx context.Context, groupID, personID string) ([]models.Settlement, error) {
	rows, err := querySettlements(ctx, t.q,
		`SELECT `+settlementColumns+` FROM settlements
		 WHERE group_id = ? AND (from_person_id = ? OR to_person_id = ?)
		 ORDER BY created_at, id`,
		groupID, personID, personID,
	)
	if err != nil {
		return nil, err
	}
	settlements := make([]models.Settlement, len(rows))
	for i, s := range rows {
		settlements[i] = *s
	}
	return settlements, nil
}

func (t *txStore) UpdateSettlementParties(ctx context.Context, settlementID, fromPersonID, toPersonID string) error {
	return updateSettlementParties(ctx, t.q, settlementID, fromPersonID, toPersonID)
}

func (t *txStore) DeleteSettlement(ctx context.Context, settlementID string) error {
	return deleteSettlement(ctx, t.q, settlementID)
}

func (t *txStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return listExpensesByGroup(ctx, t.q, groupID)
}

func (t *txStore) ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	return querySettlements(ctx, t.q,
		`SELECT `+settlementColumns+` FROM settlements WHERE group_id = ? ORDER BY created_at, id`,
		groupID,
	)
}

func (t *txStore) ArchivePerson(ctx context.Context, personID string, archival models.Archival) error {
	return archivePerson(ctx, t.q, personID, archival)
}

func (t *txStore) InsertMergeAudit(ctx context.Context, entry *models.MergeAuditEntry) error {
	return insertMergeAudit(ctx, t.q, entry)
}
