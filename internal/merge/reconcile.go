package merge

import "github.com/mmynk/housemerge/internal/models"

// MergeSplit resolves one of the source's expense splits against the
// target's split on the same expense, if any.
//
// With an existing target split the amounts are summed into it and the
// source row must be deleted. Without one, the source row is reassigned to
// the target in place. Either way the expense's split total is unchanged.
func MergeSplit(existing *models.ExpenseSplit, incoming models.ExpenseSplit, targetPersonID string) (result models.ExpenseSplit, deleteSource bool) {
	if existing != nil {
		result = *existing
		result.AmountOwedCents += incoming.AmountOwedCents
		return result, true
	}
	result = incoming
	result.PersonID = targetPersonID
	return result, false
}

// RewriteSettlement substitutes the target wherever the source appears.
// remove is true when the rewrite would turn the settlement into a transfer
// from the target to itself; that debt is internal and void.
func RewriteSettlement(s models.Settlement, sourcePersonID, targetPersonID string) (result models.Settlement, remove bool) {
	result = s
	if result.FromPersonID == sourcePersonID {
		result.FromPersonID = targetPersonID
	}
	if result.ToPersonID == sourcePersonID {
		result.ToPersonID = targetPersonID
	}
	return result, result.FromPersonID == result.ToPersonID
}
