package models

import (
	"github.com/Rath300/research-collab/pkg/database"
)

// Profile is a researcher. Its ID is the owning account id.
type Profile struct {
	Base
	FirstName         string                           `db:"first_name" json:"first_name" validate:"required,max=100"`
	LastName          string                           `db:"last_name" json:"last_name" validate:"required,max=100"`
	Email             *string                          `db:"email" json:"email" validate:"omitempty,email,max=320" schema:"emptynil"`
	Title             *string                          `db:"title" json:"title" validate:"omitempty,max=150" schema:"emptynil"`
	Bio               *string                          `db:"bio" json:"bio" validate:"required,max=2000" schema:"emptynil"`
	Institution       *string                          `db:"institution" json:"institution" validate:"omitempty,max=200" schema:"emptynil"`
	Department        *string                          `db:"department" json:"department" validate:"omitempty,max=200" schema:"emptynil"`
	Website           *string                          `db:"website" json:"website" validate:"omitempty,url,max=500" schema:"emptynil"`
	AvatarURL         *string                          `db:"avatar_url" json:"avatar_url" validate:"omitempty,url,max=1000" schema:"emptynil"`
	Skills            database.JSONB[[]string]         `db:"skills" json:"skills" schema:"maxitems=50"`
	Interests         database.JSONB[[]string]         `db:"interests" json:"interests" schema:"maxitems=50"`
	LookingFor        database.JSONB[[]string]         `db:"looking_for" json:"looking_for" schema:"maxitems=20"`
	CollaborationPref *string                          `db:"collaboration_pref" json:"collaboration_pref" validate:"omitempty,max=500" schema:"emptynil"`
	Availability      Availability                     `db:"availability" json:"availability" validate:"oneof=available limited unavailable" schema:"default=available"`
	AvailabilityHours int                              `db:"availability_hours" json:"availability_hours" schema:"clamp=0:168"`
	Visibility        Visibility                       `db:"visibility" json:"visibility" validate:"oneof=public private connections" schema:"default=public"`
	Education         database.JSONB[[]EducationEntry] `db:"education" json:"education" schema:"jsonschema=education"`
}

func (Profile) TableName() string {
	return ProfilesTable
}

// FullName joins first and last name.
func (p Profile) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// EducationEntry is one item of a profile's free-form education history.
type EducationEntry struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	StartYear   *int   `json:"start_year,omitempty"`
	EndYear     *int   `json:"end_year,omitempty"`
	Current     bool   `json:"current,omitempty"`
}

// AuthorSummary is the slice of a profile joined onto posts, projects and matches.
// Fields are nullable because the join is outer.
type AuthorSummary struct {
	ID          *string `db:"id" json:"id"`
	FirstName   *string `db:"first_name" json:"first_name"`
	LastName    *string `db:"last_name" json:"last_name"`
	Title       *string `db:"title" json:"title,omitempty"`
	Institution *string `db:"institution" json:"institution,omitempty"`
	AvatarURL   *string `db:"avatar_url" json:"avatar_url,omitempty"`
}
