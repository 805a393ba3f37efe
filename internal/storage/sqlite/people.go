package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/housemerge/internal/models"
	"github.com/mmynk/housemerge/internal/storage"
)

const personColumns = `id, group_id, name, user_id, is_archived, archived_at, archived_by, created_at`

// CreateGroup persists a new group.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO groups (id, name, created_at) VALUES (?, ?, ?)",
		group.ID, group.Name, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

// AddMember grants an account a role in a group, replacing any previous role.
func (s *SQLiteStore) AddMember(ctx context.Context, m models.Membership) error {
	if _, err := models.ParseRole(string(m.Role)); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role) VALUES (?, ?, ?)
		 ON CONFLICT (group_id, user_id) DO UPDATE SET role = excluded.role`,
		m.GroupID, m.UserID, string(m.Role),
	)
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}
	return nil
}

// RoleOf returns the user's role in the group.
func (s *SQLiteStore) RoleOf(ctx context.Context, groupID, userID string) (models.Role, error) {
	var role string
	err := s.db.QueryRowContext(ctx,
		"SELECT role FROM group_members WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("membership %s/%s: %w", groupID, userID, storage.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get role: %w", err)
	}
	return models.ParseRole(role)
}

// CreatePerson persists a new, active person.
func (s *SQLiteStore) CreatePerson(ctx context.Context, person *models.Person) error {
	if person.ID == "" {
		person.ID = uuid.New().String()
	}
	if person.CreatedAt == 0 {
		person.CreatedAt = time.Now().Unix()
	}

	isArchived, archivedAt, archivedBy := 0, any(nil), any(nil)
	if person.Archived != nil {
		isArchived, archivedAt, archivedBy = 1, person.Archived.At, person.Archived.By
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO people (`+personColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		person.ID, person.GroupID, person.Name, nullString(person.UserID),
		isArchived, archivedAt, archivedBy, person.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}
	return nil
}

// GetPerson retrieves a person by ID.
func (s *SQLiteStore) GetPerson(ctx context.Context, id string) (*models.Person, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE id = ?`, id)
	person, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("person %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return person, nil
}

// GetPeopleByIDs retrieves multiple people by their IDs.
// Returns a map of person ID to Person.
// People that don't exist are omitted from the result.
func (s *SQLiteStore) GetPeopleByIDs(ctx context.Context, ids []string) (map[string]*models.Person, error) {
	people := make(map[string]*models.Person, len(ids))
	if len(ids) == 0 {
		return people, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+personColumns+` FROM people WHERE id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get people by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people[person.ID] = person
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating people: %w", err)
	}

	return people, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*models.Person, error) {
	var (
		person     models.Person
		userID     sql.NullString
		isArchived int
		archivedAt sql.NullInt64
		archivedBy sql.NullString
	)
	if err := row.Scan(&person.ID, &person.GroupID, &person.Name, &userID,
		&isArchived, &archivedAt, &archivedBy, &person.CreatedAt); err != nil {
		return nil, err
	}

	person.UserID = userID.String
	if isArchived != 0 {
		person.Archived = &models.Archival{At: archivedAt.Int64, By: archivedBy.String}
	}
	return &person, nil
}

func archivePerson(ctx context.Context, q querier, personID string, a models.Archival) error {
	res, err := q.ExecContext(ctx,
		`UPDATE people SET is_archived = 1, archived_at = ?, archived_by = ?
		 WHERE id = ? AND is_archived = 0`,
		a.At, a.By, personID,
	)
	if err != nil {
		return fmt.Errorf("failed to archive person: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("active person %s: %w", personID, storage.ErrNotFound)
	}
	return nil
}
