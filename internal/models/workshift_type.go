package models

import "time"

// AssignmentMode controls whether the auto-assigner may hand out shifts
// of this type, or whether staffing is manual or not tracked at all.
type AssignmentMode string

const (
	AssignmentModeAuto   AssignmentMode = "AUTO"
	AssignmentModeManual AssignmentMode = "MANUAL"
	AssignmentModeNone   AssignmentMode = "NONE"
)

// WorkshiftType is a catalog entry describing a kind of chore, e.g. "Pots".
// Long-lived; many recurring shifts across semesters reference one type.
type WorkshiftType struct {
	ID          string         `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Description string         `db:"description" json:"description"`
	QuickTips   string         `db:"quick_tips" json:"quick_tips"`
	Hours       float64        `db:"hours" json:"hours"`
	Rateable    bool           `db:"rateable" json:"rateable"`
	Assignment  AssignmentMode `db:"assignment" json:"assignment"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// WorkshiftTypeFilter describes query params for listing types.
type WorkshiftTypeFilter struct {
	Rateable   *bool
	Assignment AssignmentMode
	Page       int
	PageSize   int
}
