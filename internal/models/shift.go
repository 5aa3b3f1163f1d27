package models

import "time"

// VerifyMode controls who may verify an instance of a shift.
type VerifyMode string

const (
	// VerifySelf allows the workshifter to verify their own shift.
	VerifySelf VerifyMode = "SELF"
	// VerifyAuto closes the shift automatically; manual verification is rejected.
	VerifyAuto VerifyMode = "AUTO"
	// VerifyOther requires any member other than the workshifter.
	VerifyOther VerifyMode = "OTHER_MEMBER"
	// VerifyAnyManager requires any manager capability.
	VerifyAnyManager VerifyMode = "ANY_MANAGER"
	// VerifyPoolManager requires a manager of the shift's pool.
	VerifyPoolManager VerifyMode = "POOL_MANAGER"
	// VerifyWorkshiftManager requires the workshift-manager flag.
	VerifyWorkshiftManager VerifyMode = "WORKSHIFT_MANAGER"
)

// RegularWorkshift is a recurring weekly shift definition, the template
// dated instances are generated from.
type RegularWorkshift struct {
	ID     string `db:"id" json:"id"`
	TypeID string `db:"type_id" json:"type_id"`
	PoolID string `db:"pool_id" json:"pool_id"`
	Title  string `db:"title" json:"title"`

	// Day is the weekday (time.Weekday numbering) the shift recurs on.
	// Ignored when WeekLong is set; week-long shifts get one instance per
	// week keyed to the semester's start weekday.
	Day      int  `db:"day" json:"day"`
	WeekLong bool `db:"week_long" json:"week_long"`

	StartTime string  `db:"start_time" json:"start_time"`
	EndTime   string  `db:"end_time" json:"end_time"`
	Hours     float64 `db:"hours" json:"hours"`

	// Count is the headcount needed per occurrence.
	Count  int  `db:"count" json:"count"`
	Active bool `db:"active" json:"active"`

	Verify   VerifyMode `db:"verify" json:"verify"`
	Addendum string     `db:"addendum" json:"addendum"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ShiftAssignee links a profile to a recurring shift they hold.
type ShiftAssignee struct {
	ShiftID   string `db:"shift_id" json:"shift_id"`
	ProfileID string `db:"profile_id" json:"profile_id"`
}

// ShiftDetail enriches a shift with catalog and pool context.
type ShiftDetail struct {
	RegularWorkshift
	TypeTitle      string         `db:"type_title" json:"type_title"`
	TypeAssignment AssignmentMode `db:"type_assignment" json:"type_assignment"`
	PoolTitle      string         `db:"pool_title" json:"pool_title"`
	SemesterID     string         `db:"semester_id" json:"semester_id"`
	Assignees      []string       `db:"-" json:"assignees,omitempty"`
}

// ShiftFilter describes query params for listing shifts.
type ShiftFilter struct {
	PoolID     string
	TypeID     string
	SemesterID string
	Active     *bool
	Day        *int
	Page       int
	PageSize   int
}
