package models

// Settlement represents a payment between group members to clear debts.
// FromPersonID and ToPersonID are always different.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// FromPersonID is the person who paid (debtor settling up).
	FromPersonID string

	// ToPersonID is the person who received payment (creditor being paid).
	ToPersonID string

	// AmountCents is the payment amount in cents.
	AmountCents int64

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64
}
