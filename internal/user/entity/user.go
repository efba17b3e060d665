package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/access"
)

// User represents a staff account row in the `users` table.
// Every account belongs to exactly one organization (club).
type User struct {
	ID                  int64      `db:"id"`
	OrganizationID      string     `db:"organization_id"`
	FullName            string     `db:"full_name"`
	Email               string     `db:"email"`
	PasswordHash        *string    `db:"password_hash"`
	PasswordAlgo        *string    `db:"password_algo"`
	PasswordUpdatedAt   *time.Time `db:"password_updated_at"`
	Status              string     `db:"status"` // active / locked / disabled
	LoginFailedAttempts int        `db:"login_failed_attempts"`
	LockedUntil         *time.Time `db:"locked_until"`
	LastLoginAt         *time.Time `db:"last_login_at"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
	AccessColumns
}

// AccessColumns mirrors the seven permission columns of a user row.
// Columns are nullable: a missing value means no access.
type AccessColumns struct {
	SeniorFootballAccess *string `db:"senior_football_access"`
	FootballAccess       *string `db:"football_access"`
	MedicalPlayersAccess *string `db:"medical_players_access"`
	MedicalStaffAccess   *string `db:"medical_staff_access"`
	PhysicalAccess       *string `db:"physical_access"`
	YouthRecordsAccess   *string `db:"youth_records_access"`
	StaffAccess          *string `db:"staff_access"`
}

// Levels converts the raw columns into the closed section map.
func (c AccessColumns) Levels() access.Levels {
	var l access.Levels
	l.Set(access.SeniorFootball, access.ParseLevelPtr(c.SeniorFootballAccess))
	l.Set(access.Football, access.ParseLevelPtr(c.FootballAccess))
	l.Set(access.MedicalPlayers, access.ParseLevelPtr(c.MedicalPlayersAccess))
	l.Set(access.MedicalStaff, access.ParseLevelPtr(c.MedicalStaffAccess))
	l.Set(access.Physical, access.ParseLevelPtr(c.PhysicalAccess))
	l.Set(access.YouthRecords, access.ParseLevelPtr(c.YouthRecordsAccess))
	l.Set(access.Staff, access.ParseLevelPtr(c.StaffAccess))
	return l
}

// ColumnsFromLevels renders levels back into column values.
func ColumnsFromLevels(l access.Levels) AccessColumns {
	v := func(s access.Section) *string {
		out := l.Get(s).Stored()
		return &out
	}
	return AccessColumns{
		SeniorFootballAccess: v(access.SeniorFootball),
		FootballAccess:       v(access.Football),
		MedicalPlayersAccess: v(access.MedicalPlayers),
		MedicalStaffAccess:   v(access.MedicalStaff),
		PhysicalAccess:       v(access.Physical),
		YouthRecordsAccess:   v(access.YouthRecords),
		StaffAccess:          v(access.Staff),
	}
}

// AccessRecord is the projection read by the permission resolver.
type AccessRecord struct {
	ID             int64  `db:"id"`
	OrganizationID string `db:"organization_id"`
	Status         string `db:"status"`
	AccessColumns
}

// AuthView is the minimal projection returned after a successful sign-in.
type AuthView struct {
	ID             int64  `db:"id" json:"id"`
	OrganizationID string `db:"organization_id" json:"organization_id"`
	Email          string `db:"email" json:"email"`
	FullName       string `db:"full_name" json:"full_name"`
}

// Profile is the staff listing row.
type Profile struct {
	ID          int64                   `json:"id"`
	FullName    string                  `json:"full_name"`
	Email       string                  `json:"email"`
	Status      string                  `json:"status"`
	LastLoginAt *time.Time              `json:"last_login_at,omitempty"`
	Permissions map[string]access.Level `json:"permissions"`
}

// ProfileOf builds the listing row for u.
func ProfileOf(u *User) Profile {
	return Profile{
		ID:          u.ID,
		FullName:    u.FullName,
		Email:       u.Email,
		Status:      u.Status,
		LastLoginAt: u.LastLoginAt,
		Permissions: u.Levels().ByKey(),
	}
}
