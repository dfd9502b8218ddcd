package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/fzheng/homepoints/internal/model"
	"github.com/shopspring/decimal"
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

func scanFamily(scanner interface{ Scan(...any) error }) (*model.Family, error) {
	var f model.Family
	err := scanner.Scan(&f.ID, &f.Name, &f.InviteCode, &f.PointsValue, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func scanMember(scanner interface{ Scan(...any) error }) (*model.FamilyMember, error) {
	var m model.FamilyMember
	err := scanner.Scan(&m.ID, &m.FamilyID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const familyCols = `id, name, invite_code, points_value, created_at, updated_at`
const memberCols = `id, family_id, user_id, role, joined_at`

const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateInviteCode() (string, error) {
	code := make([]byte, 8)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(inviteCodeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		code[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// Create inserts a family and its creator membership in one transaction,
// so a family can never exist without exactly one creator.
func (s *FamilyStore) Create(name string, creatorUserID int64) (*model.Family, error) {
	code, err := generateInviteCode()
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`INSERT INTO families (name, invite_code) VALUES (?, ?)`, name, code)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO family_members (family_id, user_id, role) VALUES (?, ?, ?)`,
		id, creatorUserID, string(model.RoleCreator),
	); err != nil {
		return nil, fmt.Errorf("insert creator member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) GetByID(id int64) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

func (s *FamilyStore) GetByInviteCode(code string) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE invite_code = ?`, code)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family by invite code: %w", err)
	}
	return f, nil
}

// UpdatePointsValue sets the monetary value per point.
func (s *FamilyStore) UpdatePointsValue(id int64, value decimal.Decimal) (*model.Family, error) {
	_, err := s.db.Exec(
		`UPDATE families SET points_value = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		value, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update points value: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) AddMember(familyID, userID int64, role model.Role) (*model.FamilyMember, error) {
	result, err := s.db.Exec(
		`INSERT INTO family_members (family_id, user_id, role) VALUES (?, ?, ?)`,
		familyID, userID, string(role),
	)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM family_members WHERE id = ?`, id)
	return scanMember(row)
}

func (s *FamilyStore) GetMember(familyID, userID int64) (*model.FamilyMember, error) {
	row := s.db.QueryRow(
		`SELECT `+memberCols+` FROM family_members WHERE family_id = ? AND user_id = ?`,
		familyID, userID,
	)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// ListMembers returns members ordered by join date, oldest first. This is
// the order ranking falls back to on point ties.
func (s *FamilyStore) ListMembers(familyID int64) ([]model.FamilyMember, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM family_members WHERE family_id = ? ORDER BY joined_at ASC, id ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *FamilyStore) ListFamiliesForUser(userID int64) ([]model.Family, error) {
	rows, err := s.db.Query(
		`SELECT f.id, f.name, f.invite_code, f.points_value, f.created_at, f.updated_at
		 FROM families f
		 JOIN family_members fm ON f.id = fm.family_id
		 WHERE fm.user_id = ?
		 ORDER BY f.name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list families for user: %w", err)
	}
	defer rows.Close()

	var families []model.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, *f)
	}
	return families, rows.Err()
}

// UpdateMemberRole changes a member's role. The creator row is never
// touched: the swap is guarded so a creator cannot be demoted here.
func (s *FamilyStore) UpdateMemberRole(familyID, userID int64, role model.Role) (*model.FamilyMember, error) {
	result, err := s.db.Exec(
		`UPDATE family_members SET role = ? WHERE family_id = ? AND user_id = ? AND role != ?`,
		string(role), familyID, userID, string(model.RoleCreator),
	)
	if err != nil {
		return nil, fmt.Errorf("update member role: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrConflict
	}
	return s.GetMember(familyID, userID)
}

// RemoveMember deletes a membership. The creator cannot be removed.
func (s *FamilyStore) RemoveMember(familyID, userID int64) error {
	result, err := s.db.Exec(
		`DELETE FROM family_members WHERE family_id = ? AND user_id = ? AND role != ?`,
		familyID, userID, string(model.RoleCreator),
	)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrConflict
	}
	return nil
}
