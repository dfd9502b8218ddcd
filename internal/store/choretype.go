package store

import (
	"database/sql"
	"fmt"

	"github.com/fzheng/homepoints/internal/model"
)

type ChoreTypeStore struct {
	db *sql.DB
}

func NewChoreTypeStore(db *sql.DB) *ChoreTypeStore {
	return &ChoreTypeStore{db: db}
}

func scanChoreType(scanner interface{ Scan(...any) error }) (*model.ChoreType, error) {
	var ct model.ChoreType
	var active int

	err := scanner.Scan(&ct.ID, &ct.FamilyID, &ct.Name, &ct.Points, &active, &ct.CreatedAt, &ct.UpdatedAt)
	if err != nil {
		return nil, err
	}

	ct.Active = active != 0
	return &ct, nil
}

const choreTypeCols = `id, family_id, name, points, active, created_at, updated_at`

func (s *ChoreTypeStore) Create(familyID int64, name string, points int) (*model.ChoreType, error) {
	result, err := s.db.Exec(
		`INSERT INTO chore_types (family_id, name, points) VALUES (?, ?, ?)`,
		familyID, name, points,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore type: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreTypeStore) GetByID(id int64) (*model.ChoreType, error) {
	row := s.db.QueryRow(`SELECT `+choreTypeCols+` FROM chore_types WHERE id = ?`, id)
	ct, err := scanChoreType(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore type: %w", err)
	}
	return ct, nil
}

// List returns a family's chore types, active first, then by name.
func (s *ChoreTypeStore) List(familyID int64, activeOnly bool) ([]model.ChoreType, error) {
	query := `SELECT ` + choreTypeCols + ` FROM chore_types WHERE family_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY active DESC, name ASC`

	rows, err := s.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("list chore types: %w", err)
	}
	defer rows.Close()

	var types []model.ChoreType
	for rows.Next() {
		ct, err := scanChoreType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore type: %w", err)
		}
		types = append(types, *ct)
	}
	return types, rows.Err()
}

// ActiveNameExists reports whether an active chore type with this name
// already exists in the family, excluding the given id (0 for none).
func (s *ChoreTypeStore) ActiveNameExists(familyID int64, name string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM chore_types WHERE family_id = ? AND name = ? AND active = 1 AND id != ?`,
		familyID, name, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check chore type name: %w", err)
	}
	return count > 0, nil
}

func (s *ChoreTypeStore) Update(id int64, name string, points int) (*model.ChoreType, error) {
	_, err := s.db.Exec(
		`UPDATE chore_types SET name = ?, points = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, points, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore type: %w", err)
	}
	return s.GetByID(id)
}

// Deactivate soft-deletes a chore type. Rows are never hard-deleted so
// historical records keep resolving their name and points.
func (s *ChoreTypeStore) Deactivate(id int64) error {
	_, err := s.db.Exec(
		`UPDATE chore_types SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("deactivate chore type: %w", err)
	}
	return nil
}
