package sqlite

import (
	"fmt"
	"time"

	"weedcam/internal/dto"
	"weedcam/internal/model"
)

const insertDetection = `
	INSERT INTO detections (source, filename, label, confidence, x, y, width, height, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// Insert adds a new detection record to the database.
func (r *DetectionRepository) Insert(det *model.Detection) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(insertDetection,
		det.Source, det.Filename, det.Label, det.Confidence,
		det.X, det.Y, det.Width, det.Height, storedTime(det.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch adds multiple detections in a single transaction.
func (r *DetectionRepository) InsertBatch(detections []model.Detection) error {
	if len(detections) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertDetection)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, det := range detections {
		if _, err := stmt.Exec(det.Source, det.Filename, det.Label, det.Confidence,
			det.X, det.Y, det.Width, det.Height, storedTime(det.CreatedAt)); err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
	}

	return tx.Commit()
}

// GetAll retrieves detections matching the filter, newest first.
func (r *DetectionRepository) GetAll(filter *dto.DetectionFilters) ([]model.Detection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildWhere(filter)
	query := `
		SELECT id, source, filename, label, confidence, x, y, width, height, created_at
		FROM detections` + where + " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var detections []model.Detection
	for rows.Next() {
		var det model.Detection
		if err := rows.Scan(&det.ID, &det.Source, &det.Filename, &det.Label, &det.Confidence,
			&det.X, &det.Y, &det.Width, &det.Height, &det.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, det)
	}

	return detections, rows.Err()
}

// GetTotalCount returns the number of detections matching the filter.
func (r *DetectionRepository) GetTotalCount(filter *dto.DetectionFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildWhere(filter)

	var count int
	if err := r.db.Conn().QueryRow("SELECT COUNT(*) FROM detections"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count detections: %w", err)
	}

	return count, nil
}

// GetStats returns totals grouped by label and by source.
func (r *DetectionRepository) GetStats() (*dto.DetectionStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &dto.DetectionStats{
		PerLabel:  make(map[string]int),
		PerSource: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM detections`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("failed to count detections: %w", err)
	}

	groups := []struct {
		column string
		into   map[string]int
	}{
		{"label", stats.PerLabel},
		{"source", stats.PerSource},
	}

	for _, g := range groups {
		rows, err := r.db.Conn().Query(`SELECT ` + g.column + `, COUNT(*) FROM detections GROUP BY ` + g.column)
		if err != nil {
			return nil, fmt.Errorf("failed to group detections by %s: %w", g.column, err)
		}

		if err := countRows(rows, g.into); err != nil {
			return nil, fmt.Errorf("failed to read %s stats: %w", g.column, err)
		}
	}

	return stats, nil
}

// groupedRows is the part of *sql.Rows countRows needs.
type groupedRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// countRows reads (key, count) rows into into and closes rows.
func countRows(rows groupedRows, into map[string]int) error {
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		into[key] = count
	}
	return rows.Err()
}

// DeleteAll removes every detection record.
func (r *DetectionRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections`); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	return nil
}

func buildWhere(filter *dto.DetectionFilters) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}

	if filter.Source != "" {
		query += " AND source = ?"
		args = append(args, filter.Source)
	}

	if filter.Label != "" {
		query += " AND label = ?"
		args = append(args, filter.Label)
	}

	if !filter.After.IsZero() {
		query += " AND DATE(created_at) >= DATE(?)"
		args = append(args, filter.After.Format("2006-01-02"))
	}

	if !filter.Before.IsZero() {
		query += " AND DATE(created_at) <= DATE(?)"
		args = append(args, filter.Before.Format("2006-01-02"))
	}

	return query, args
}

// storedTime normalizes timestamps so DATE() comparisons in SQLite behave.
func storedTime(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Truncate(time.Second)
}
