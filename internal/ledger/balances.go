// Package ledger computes per-person money positions for a group and checks
// that an identity merge leaves them consistent.
package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mmynk/housemerge/internal/models"
)

// ErrNotConserved is returned when a merge changed the amount of money a
// group owes or is owed.
var ErrNotConserved = errors.New("money not conserved")

// Balance is the money position of one person, in cents.
type Balance struct {
	PersonID  string
	TotalPaid int64 // Expenses paid plus settlements sent
	TotalOwed int64 // Split shares plus settlements received
	Net       int64 // Positive = owed money, Negative = owes money
}

// Snapshot captures the figures a merge must preserve.
type Snapshot struct {
	Balances    map[string]Balance
	SplitTotals map[string]int64 // expense ID -> sum of split amounts
}

// Take computes balances and per-expense split totals.
//
// Algorithm:
//   - For each expense: payer contributed +amount, each split owner owes their share
//   - For each settlement: payer's balance improves, receiver's balance decreases
//   - net = total_paid - total_owed
func Take(expenses []*models.Expense, settlements []*models.Settlement) Snapshot {
	balances := make(map[string]*Balance)
	get := func(personID string) *Balance {
		b, ok := balances[personID]
		if !ok {
			b = &Balance{PersonID: personID}
			balances[personID] = b
		}
		return b
	}

	totals := make(map[string]int64, len(expenses))
	for _, e := range expenses {
		get(e.PaidByPersonID).TotalPaid += e.AmountCents
		var total int64
		for _, split := range e.Splits {
			get(split.PersonID).TotalOwed += split.AmountOwedCents
			total += split.AmountOwedCents
		}
		totals[e.ID] = total
	}

	for _, s := range settlements {
		get(s.FromPersonID).TotalPaid += s.AmountCents
		get(s.ToPersonID).TotalOwed += s.AmountCents
	}

	snap := Snapshot{
		Balances:    make(map[string]Balance, len(balances)),
		SplitTotals: totals,
	}
	for id, b := range balances {
		b.Net = b.TotalPaid - b.TotalOwed
		snap.Balances[id] = *b
	}
	return snap
}

// Net returns a person's net balance, zero if the person has no records.
func (s Snapshot) Net(personID string) int64 {
	return s.Balances[personID].Net
}

// CheckMerge verifies that after folds source into target without moving
// money anywhere else:
//   - every expense keeps its split total
//   - the target's net equals source+target before the merge
//   - the source has no position left
//   - everyone else is unchanged
func CheckMerge(before, after Snapshot, sourceID, targetID string) error {
	for _, expenseID := range sortedKeys(before.SplitTotals) {
		want := before.SplitTotals[expenseID]
		if got := after.SplitTotals[expenseID]; got != want {
			return fmt.Errorf("%w: expense %s split total %d, want %d", ErrNotConserved, expenseID, got, want)
		}
	}

	if want, got := before.Net(sourceID)+before.Net(targetID), after.Net(targetID); got != want {
		return fmt.Errorf("%w: target %s net %d, want %d", ErrNotConserved, targetID, got, want)
	}
	if b, ok := after.Balances[sourceID]; ok && (b.TotalPaid != 0 || b.TotalOwed != 0) {
		return fmt.Errorf("%w: source %s still holds paid=%d owed=%d", ErrNotConserved, sourceID, b.TotalPaid, b.TotalOwed)
	}

	people := make(map[string]int64, len(before.Balances)+len(after.Balances))
	for id := range before.Balances {
		people[id] = 0
	}
	for id := range after.Balances {
		people[id] = 0
	}
	for _, id := range sortedKeys(people) {
		if id == sourceID || id == targetID {
			continue
		}
		if got, want := after.Net(id), before.Net(id); got != want {
			return fmt.Errorf("%w: person %s net %d, want %d", ErrNotConserved, id, got, want)
		}
	}
	return nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
