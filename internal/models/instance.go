package models

import (
	"time"
)

// InstanceInfo is freestanding shift metadata for one-off instances and
// for closed instances orphaned when their recurring shift was deleted.
type InstanceInfo struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	PoolID      string     `db:"pool_id" json:"pool_id"`
	StartTime   string     `db:"start_time" json:"start_time"`
	EndTime     string     `db:"end_time" json:"end_time"`
	Verify      VerifyMode `db:"verify" json:"verify"`
	WeekLong    bool       `db:"week_long" json:"week_long"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// WorkshiftInstance is one dated occurrence of a shift. Exactly one of
// ShiftID and InfoID is set. Closed is terminal: once true, no sign-in,
// sign-out, verify or blown transition is accepted.
type WorkshiftInstance struct {
	ID         string  `db:"id" json:"id"`
	SemesterID string  `db:"semester_id" json:"semester_id"`
	ShiftID    *string `db:"shift_id" json:"shift_id,omitempty"`
	InfoID     *string `db:"info_id" json:"info_id,omitempty"`

	Date time.Time `db:"date" json:"date"`

	WorkshifterID *string `db:"workshifter_id" json:"workshifter_id,omitempty"`
	// LiableID holds the member still accountable after a too-late sign-out.
	LiableID   *string `db:"liable_id" json:"liable_id,omitempty"`
	VerifierID *string `db:"verifier_id" json:"verifier_id,omitempty"`

	IntendedHours float64 `db:"intended_hours" json:"intended_hours"`
	Hours         float64 `db:"hours" json:"hours"`

	Closed bool `db:"closed" json:"closed"`
	Blown  bool `db:"blown" json:"blown"`

	Verify   VerifyMode `db:"verify" json:"verify"`
	WeekLong bool       `db:"week_long" json:"week_long"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AccountableProfile is the profile on the hook for this instance: the
// workshifter when staffed, otherwise whoever is liable.
func (i *WorkshiftInstance) AccountableProfile() *string {
	if i.WorkshifterID != nil {
		return i.WorkshifterID
	}
	return i.LiableID
}

// InstanceDetail joins an instance with its shift/info metadata and the
// pool policy fields state transitions depend on.
type InstanceDetail struct {
	WorkshiftInstance
	Title              string `db:"title" json:"title"`
	Description        string `db:"description" json:"description"`
	PoolID             string `db:"pool_id" json:"pool_id"`
	PoolTitle          string `db:"pool_title" json:"pool_title"`
	StartTime          string `db:"start_time" json:"start_time"`
	EndTime            string `db:"end_time" json:"end_time"`
	SignOutCutoffHours int    `db:"sign_out_cutoff_hours" json:"-"`
	VerifyCutoffHours  int    `db:"verify_cutoff_hours" json:"-"`
	AnyBlown           bool   `db:"any_blown" json:"-"`
	SelfVerify         bool   `db:"self_verify" json:"-"`
}

// SignOutCutoff returns the pool's liability window as a duration.
func (d *InstanceDetail) SignOutCutoff() time.Duration {
	return time.Duration(d.SignOutCutoffHours) * time.Hour
}

// VerifyCutoff returns the pool's post-shift grace window as a duration.
func (d *InstanceDetail) VerifyCutoff() time.Duration {
	return time.Duration(d.VerifyCutoffHours) * time.Hour
}

// StartAt anchors the instance's start on its date. Instances without a
// start time (week-long shifts) start at midnight.
func (d *InstanceDetail) StartAt() time.Time {
	return CombineDateClock(d.Date, d.StartTime)
}

// EndAt anchors the instance's end on its date. Instances without an end
// time run to end of day.
func (d *InstanceDetail) EndAt() time.Time {
	if d.EndTime == "" {
		return CombineDateClock(d.Date, "23:59")
	}
	return CombineDateClock(d.Date, d.EndTime)
}

// CombineDateClock merges a calendar date with a wall-clock "15:04" or
// "15:04:05" string in the date's location.
func CombineDateClock(date time.Time, clock string) time.Time {
	layouts := []string{"15:04:05", "15:04"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, clock); err == nil {
			return time.Date(
				date.Year(), date.Month(), date.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, date.Location(),
			)
		}
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

// LogEntryType enumerates the auditable actions on an instance.
type LogEntryType string

const (
	LogAssigned    LogEntryType = "ASSIGNED"
	LogUnassigned  LogEntryType = "UNASSIGNED"
	LogSignIn      LogEntryType = "SIGN_IN"
	LogSignOut     LogEntryType = "SIGN_OUT"
	LogVerify      LogEntryType = "VERIFY"
	LogUnverify    LogEntryType = "UNVERIFY"
	LogBlown       LogEntryType = "BLOWN"
	LogUnblown     LogEntryType = "UNBLOWN"
	LogModifyHours LogEntryType = "MODIFY_HOURS"
	LogSell        LogEntryType = "SELL"
)

// ShiftLogEntry is an immutable audit record of one action on an instance.
type ShiftLogEntry struct {
	ID         string       `db:"id" json:"id"`
	InstanceID string       `db:"instance_id" json:"instance_id"`
	ProfileID  string       `db:"profile_id" json:"profile_id"`
	EntryType  LogEntryType `db:"entry_type" json:"entry_type"`
	EntryTime  time.Time    `db:"entry_time" json:"entry_time"`
	Hours      *float64     `db:"hours" json:"hours,omitempty"`
	Note       string       `db:"note" json:"note"`

	// Username is the acting member's username, populated on reads.
	Username string `db:"username" json:"username,omitempty"`
}

// InstanceFilter describes query params for listing instances.
type InstanceFilter struct {
	SemesterID    string
	ShiftID       string
	PoolID        string
	WorkshifterID string
	DateFrom      *time.Time
	DateTo        *time.Time
	Closed        *bool
	Blown         *bool
	Page          int
	PageSize      int
}
