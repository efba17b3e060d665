package entity

import (
	"errors"
	"time"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/access"
)

var ErrUnknownSubject = errors.New("unknown medical subject")

// Subject says whose health a record is about.
type Subject string

const (
	SubjectPlayers Subject = "players"
	SubjectStaff   Subject = "staff"
)

func ParseSubject(s string) (Subject, error) {
	switch Subject(s) {
	case SubjectPlayers, SubjectStaff:
		return Subject(s), nil
	}
	return "", ErrUnknownSubject
}

// Section is the permission section guarding the subject's records.
func (s Subject) Section() access.Section {
	if s == SubjectStaff {
		return access.MedicalStaff
	}
	return access.MedicalPlayers
}

const (
	StatusInjured    = "injured"
	StatusRecovering = "recovering"
	StatusAvailable  = "available"
)

func ValidStatus(s string) bool {
	return s == StatusInjured || s == StatusRecovering || s == StatusAvailable
}

type Record struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organization_id" db:"organization_id"`
	Subject        Subject    `json:"subject" db:"subject"`
	PlayerID       *string    `json:"player_id,omitempty" db:"player_id"`
	PersonName     string     `json:"person_name" db:"person_name"`
	RecordDate     time.Time  `json:"record_date" db:"record_date"`
	Diagnosis      string     `json:"diagnosis" db:"diagnosis"`
	Treatment      string     `json:"treatment" db:"treatment"`
	Status         string     `json:"status" db:"status"`
	ExpectedReturn *time.Time `json:"expected_return,omitempty" db:"expected_return"`
	DocumentURL    *string    `json:"document_url,omitempty" db:"document_url"`
	Notes          string     `json:"notes" db:"notes"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// RecoveryDays is the planned lay-off in days. ok is false without an
// expected return date.
func (r *Record) RecoveryDays() (float64, bool) {
	if r.ExpectedReturn == nil {
		return 0, false
	}
	return r.ExpectedReturn.Sub(r.RecordDate).Hours() / 24, true
}
