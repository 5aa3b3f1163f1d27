package models

import "time"

// WorkshiftProfile is a member's workshift identity for one semester.
// Unique on (member, semester).
type WorkshiftProfile struct {
	ID                 string     `db:"id" json:"id"`
	MemberID           string     `db:"member_id" json:"member_id"`
	SemesterID         string     `db:"semester_id" json:"semester_id"`
	Note               string     `db:"note" json:"note"`
	PreferenceSaveTime *time.Time `db:"preference_save_time" json:"preference_save_time,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Rating levels for a workshift type.
type Rating int

const (
	RatingDislike     Rating = 0
	RatingIndifferent Rating = 1
	RatingLike        Rating = 2
)

// WorkshiftRating records how much a profile likes one workshift type.
type WorkshiftRating struct {
	ID        string `db:"id" json:"id"`
	ProfileID string `db:"profile_id" json:"profile_id"`
	TypeID    string `db:"type_id" json:"type_id"`
	Rating    Rating `db:"rating" json:"rating"`
}

// TimeBlockPreference marks a window of a profile's week.
type TimeBlockPreference int

const (
	TimeBlockBusy      TimeBlockPreference = 0
	TimeBlockFree      TimeBlockPreference = 1
	TimeBlockPreferred TimeBlockPreference = 2
)

// TimeBlock represents member availability during part of one weekday.
// StartTime and EndTime are wall-clock strings in "15:04" form.
type TimeBlock struct {
	ID         string              `db:"id" json:"id"`
	ProfileID  string              `db:"profile_id" json:"profile_id"`
	Day        int                 `db:"day" json:"day"`
	StartTime  string              `db:"start_time" json:"start_time"`
	EndTime    string              `db:"end_time" json:"end_time"`
	Preference TimeBlockPreference `db:"preference" json:"preference"`
}

// ProfileDetail joins a profile with its member identity for list views.
type ProfileDetail struct {
	WorkshiftProfile
	Username string       `db:"username" json:"username"`
	FullName string       `db:"full_name" json:"full_name"`
	Email    string       `db:"email" json:"email"`
	Status   MemberStatus `db:"status" json:"status"`
}
