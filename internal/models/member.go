package models

import "time"

// MemberStatus describes a member's residency standing within the house.
type MemberStatus string

const (
	MemberStatusResident MemberStatus = "RESIDENT"
	MemberStatusBoarder  MemberStatus = "BOARDER"
	MemberStatusAlumnus  MemberStatus = "ALUMNUS"
)

// Member is the house identity consumed from the membership subsystem.
// The workshift engine only reads status and manager capabilities from it.
type Member struct {
	ID               string       `db:"id" json:"id"`
	Username         string       `db:"username" json:"username"`
	FullName         string       `db:"full_name" json:"full_name"`
	Email            string       `db:"email" json:"email"`
	Status           MemberStatus `db:"status" json:"status"`
	WorkshiftManager bool         `db:"workshift_manager" json:"workshift_manager"`
	PasswordHash     string       `db:"password_hash" json:"-"`
	Active           bool         `db:"active" json:"active"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}

// Eligible reports whether a member receives a workshift profile when a
// semester starts. Alumni and the anonymous system account never do.
func (m *Member) Eligible(anonymousUsername string) bool {
	if m.Username == anonymousUsername {
		return false
	}
	return m.Status == MemberStatusResident || m.Status == MemberStatusBoarder
}
