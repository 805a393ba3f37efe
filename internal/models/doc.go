// Package models defines the core domain models for housemerge.
//
// # Identities
//
// A Person is a participant in a household group. A person is either
// claimed (linked to a real account through UserID) or an unclaimed
// placeholder created by another member. Placeholders are consolidated into
// claimed people by the merge engine, which archives the placeholder.
//
// # Owned Records
//
// Tasks, recurring tasks and expenses have a single owner field that points
// at a Person. Expense splits and settlements also reference people, but
// those references carry constraints:
//   - at most one ExpenseSplit per (expense, person)
//   - a Settlement never goes from a person to themselves
//
// # Design Principles
//
//  1. Relationships are ID strings, never pointers.
//  2. Money is integer cents.
//  3. Timestamps are Unix seconds, matching the storage layer.
//  4. Archive state is a variant (nil or *Archival), not a flag plus loose fields.
package models
