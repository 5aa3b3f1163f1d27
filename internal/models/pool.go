package models

import "time"

// WorkshiftPool is a named bucket of hour requirements within a semester,
// e.g. "Regular Workshift" vs "Humor Shift". Each pool carries its own
// periodic quota, cutoff windows and fine dates.
type WorkshiftPool struct {
	ID         string `db:"id" json:"id"`
	SemesterID string `db:"semester_id" json:"semester_id"`
	Title      string `db:"title" json:"title"`
	IsPrimary  bool   `db:"is_primary" json:"is_primary"`

	// Hours is the default periodic requirement seeded into PoolHours.
	Hours          float64 `db:"hours" json:"hours"`
	WeeksPerPeriod int     `db:"weeks_per_period" json:"weeks_per_period"`

	// SignOutCutoffHours: signing out closer than this to the shift start
	// leaves the member liable. VerifyCutoffHours: grace period after a
	// shift ends before the collector closes it as blown.
	SignOutCutoffHours int `db:"sign_out_cutoff_hours" json:"sign_out_cutoff_hours"`
	VerifyCutoffHours  int `db:"verify_cutoff_hours" json:"verify_cutoff_hours"`

	SelfVerify bool `db:"self_verify" json:"self_verify"`
	AnyBlown   bool `db:"any_blown" json:"any_blown"`

	FirstFineDate  *time.Time `db:"first_fine_date" json:"first_fine_date,omitempty"`
	SecondFineDate *time.Time `db:"second_fine_date" json:"second_fine_date,omitempty"`
	ThirdFineDate  *time.Time `db:"third_fine_date" json:"third_fine_date,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SignOutCutoff returns the liability window as a duration.
func (p *WorkshiftPool) SignOutCutoff() time.Duration {
	return time.Duration(p.SignOutCutoffHours) * time.Hour
}

// VerifyCutoff returns the post-shift grace window as a duration.
func (p *WorkshiftPool) VerifyCutoff() time.Duration {
	return time.Duration(p.VerifyCutoffHours) * time.Hour
}

// FineDate returns the fine date for a 1-based slot, nil when unset.
func (p *WorkshiftPool) FineDate(slot int) *time.Time {
	switch slot {
	case 1:
		return p.FirstFineDate
	case 2:
		return p.SecondFineDate
	case 3:
		return p.ThirdFineDate
	}
	return nil
}

// PoolManager links a manager-capable member to a pool they administer.
type PoolManager struct {
	PoolID   string `db:"pool_id" json:"pool_id"`
	MemberID string `db:"member_id" json:"member_id"`
}
