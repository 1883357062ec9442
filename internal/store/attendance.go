package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/studyrobo/backend/internal/apperror"
)

func (s *Store) MarkAttendance(ctx context.Context, googleID, courseName string) (*AttendanceRecord, error) {
	var r AttendanceRecord
	err := s.pool.QueryRow(ctx,
		`INSERT INTO attendance (user_id, course_name)
		 SELECT u.id, $1 FROM users u WHERE u.google_id = $2
		 RETURNING id, course_name, marked_at`,
		courseName, googleID).
		Scan(&r.ID, &r.CourseName, &r.MarkedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("marking attendance: %w", err)
	}
	return &r, nil
}

// AttendanceRecords returns the user's attendance log, newest first,
// optionally filtered by course.
func (s *Store) AttendanceRecords(ctx context.Context, googleID, courseName string) ([]AttendanceRecord, error) {
	query := `SELECT a.id, a.course_name, a.marked_at
	          FROM attendance a
	          JOIN users u ON u.id = a.user_id
	          WHERE u.google_id = $1`
	args := []any{googleID}
	if courseName != "" {
		query += ` AND a.course_name = $2`
		args = append(args, courseName)
	}
	query += ` ORDER BY a.marked_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing attendance: %w", err)
	}
	defer rows.Close()

	records := []AttendanceRecord{}
	for rows.Next() {
		var r AttendanceRecord
		if err := rows.Scan(&r.ID, &r.CourseName, &r.MarkedAt); err != nil {
			return nil, fmt.Errorf("scanning attendance record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) AttendanceSummaries(ctx context.Context, googleID string) ([]AttendanceSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.course_name, COUNT(*), MAX(a.marked_at)
		 FROM attendance a
		 JOIN users u ON u.id = a.user_id
		 WHERE u.google_id = $1
		 GROUP BY a.course_name
		 ORDER BY a.course_name`, googleID)
	if err != nil {
		return nil, fmt.Errorf("summarizing attendance: %w", err)
	}
	defer rows.Close()

	summaries := []AttendanceSummary{}
	for rows.Next() {
		var sum AttendanceSummary
		if err := rows.Scan(&sum.CourseName, &sum.Count, &sum.LastMarked); err != nil {
			return nil, fmt.Errorf("scanning attendance summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}
