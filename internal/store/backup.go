package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fzheng/homepoints/internal/model"
)

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

const backupCols = `id, filename, size_bytes, status, error, created_at`

func (s *BackupStore) Create(filename string, sizeBytes int64, status, errMsg string) (*model.Backup, error) {
	result, err := s.db.Exec(
		`INSERT INTO backups (filename, size_bytes, status, error) VALUES (?, ?, ?, ?)`,
		filename, sizeBytes, status, errMsg,
	)
	if err != nil {
		return nil, fmt.Errorf("create backup record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *BackupStore) GetByID(id int64) (*model.Backup, error) {
	var b model.Backup
	err := s.db.QueryRow(
		`SELECT `+backupCols+` FROM backups WHERE id = ?`, id,
	).Scan(&b.ID, &b.Filename, &b.SizeBytes, &b.Status, &b.Error, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %d: %w", id, err)
	}
	return &b, nil
}

func (s *BackupStore) List(limit int) ([]model.Backup, error) {
	rows, err := s.db.Query(
		`SELECT `+backupCols+` FROM backups ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		var b model.Backup
		if err := rows.Scan(&b.ID, &b.Filename, &b.SizeBytes, &b.Status, &b.Error, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

func (s *BackupStore) LatestCompleted() (*model.Backup, error) {
	var b model.Backup
	err := s.db.QueryRow(
		`SELECT `+backupCols+` FROM backups WHERE status = 'complete' ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&b.ID, &b.Filename, &b.SizeBytes, &b.Status, &b.Error, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest completed backup: %w", err)
	}
	return &b, nil
}

// DeleteOlderThan removes backup records before the cutoff and returns the
// filenames so the caller can delete the matching remote objects.
func (s *BackupStore) DeleteOlderThan(before time.Time) ([]string, error) {
	rows, err := s.db.Query(`SELECT filename FROM backups WHERE created_at < ?`, before)
	if err != nil {
		return nil, fmt.Errorf("select old backups: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan backup filename: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(`DELETE FROM backups WHERE created_at < ?`, before); err != nil {
		return nil, fmt.Errorf("delete old backups: %w", err)
	}
	return names, nil
}
