package tools

import (
	"context"
	"fmt"
)

func (r *Registry) MarkAttendance(ctx context.Context, googleID, courseName string) Result {
	record, err := r.store.MarkAttendance(ctx, googleID, courseName)
	if err != nil {
		return failure(err)
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("Attendance marked for %s on %s.",
			record.CourseName, record.MarkedAt.Format("January 2, 2006")),
	}
}

func (r *Registry) AttendanceRecordsFor(ctx context.Context, googleID, courseName string) Result {
	records, err := r.store.AttendanceRecords(ctx, googleID, courseName)
	if err != nil {
		return failure(err)
	}
	return Result{Success: true, Records: records}
}
