package domain

import "time"

type Trainee struct {
	ID        int64
	Ref       string // human identifier, e.g. "TR-10441"
	FullName  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
