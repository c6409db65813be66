package domain

import "time"

type ExamCategory string

const (
	ExamCategoryTheory    ExamCategory = "THEORY"
	ExamCategoryPractical ExamCategory = "PRACTICAL"
)

func ParseExamCategory(s string) (ExamCategory, bool) {
	switch ExamCategory(s) {
	case ExamCategoryTheory, ExamCategoryPractical:
		return ExamCategory(s), true
	}
	return "", false
}

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusInactive  SessionStatus = "INACTIVE"
	SessionStatusScheduled SessionStatus = "SCHEDULED"
)

// Session is a fixed-capacity, dated exam slot. Occupancy mirrors the number
// of active bookings and may exceed Capacity only through an audited
// administrator override.
type Session struct {
	ID        int64
	Category  ExamCategory
	Date      time.Time
	Venue     string
	Capacity  int
	Occupancy int
	Status    SessionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
