package models

import "time"

// PoolHours is one member's running hour standing within one pool.
// Created for every (profile, pool) pair of a semester. Standing rises on
// verified completions, falls on blown shifts and at fine snapshots;
// AssignedHours mirrors the sum of currently assigned recurring shifts.
type PoolHours struct {
	ID        string `db:"id" json:"id"`
	PoolID    string `db:"pool_id" json:"pool_id"`
	ProfileID string `db:"profile_id" json:"profile_id"`

	Hours          float64 `db:"hours" json:"hours"`
	AssignedHours  float64 `db:"assigned_hours" json:"assigned_hours"`
	Standing       float64 `db:"standing" json:"standing"`
	HourAdjustment float64 `db:"hour_adjustment" json:"hour_adjustment"`

	FirstDateStanding  *float64 `db:"first_date_standing" json:"first_date_standing,omitempty"`
	SecondDateStanding *float64 `db:"second_date_standing" json:"second_date_standing,omitempty"`
	ThirdDateStanding  *float64 `db:"third_date_standing" json:"third_date_standing,omitempty"`

	// LastStandingUpdate marks the last periodic reconciliation, keeping
	// the weekly standings job idempotent within a period.
	LastStandingUpdate *time.Time `db:"last_standing_update" json:"last_standing_update,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RemainingNeed is how many more recurring-shift hours the member needs
// assigned to satisfy the periodic requirement. Never negative.
func (ph *PoolHours) RemainingNeed() float64 {
	need := ph.Hours - ph.AssignedHours
	if need < 0 {
		return 0
	}
	return need
}

// InDeficit reports whether the member is behind on hours, making them
// fine-eligible at the next snapshot.
func (ph *PoolHours) InDeficit() bool {
	return ph.Standing < 0
}

// StandingSummary is the per-member standing view exposed to callers.
type StandingSummary struct {
	ProfileID     string  `db:"profile_id" json:"profile_id"`
	MemberName    string  `db:"member_name" json:"member_name"`
	Email         string  `db:"email" json:"email"`
	PoolID        string  `db:"pool_id" json:"pool_id"`
	PoolTitle     string  `db:"pool_title" json:"pool_title"`
	Hours         float64 `db:"hours" json:"hours"`
	AssignedHours float64 `db:"assigned_hours" json:"assigned_hours"`
	Standing      float64 `db:"standing" json:"standing"`
}

// Fine is one fine-eligible member with the computed amount owed.
type Fine struct {
	ProfileID  string  `json:"profile_id"`
	MemberName string  `json:"member_name"`
	Email      string  `json:"email"`
	PoolID     string  `json:"pool_id"`
	PoolTitle  string  `json:"pool_title"`
	Deficit    float64 `json:"deficit"`
	Amount     float64 `json:"amount"`
}
