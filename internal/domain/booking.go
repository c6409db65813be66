package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "ACTIVE"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// bookingKeyDateFormat is the canonical display form used inside booking
// keys. Keys are shown to administrators during audits, so the date stays
// human-readable rather than ISO.
const bookingKeyDateFormat = "02 Jan 2006"

const bookingKeySeparator = "#"

type Booking struct {
	ID             int64
	Key            string
	TraineeID      int64
	SessionID      int64
	Status         BookingStatus
	CreditCategory CreditCategory
	Venue          string
	WritingHand    string
	Token          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BookingKey derives the deterministic identity of a booking from the exam
// category, the trainee's human ref and the session date. It never depends
// on generated record ids, so a retry after a failed attempt collides with
// the earlier key.
func BookingKey(category ExamCategory, traineeRef string, date time.Time) string {
	return fmt.Sprintf("%s%s%s%s%s",
		category, bookingKeySeparator,
		traineeRef, bookingKeySeparator,
		date.Format(bookingKeyDateFormat))
}
