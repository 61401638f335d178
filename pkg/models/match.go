package models

import (
	"bytes"

	"github.com/google/uuid"
)

// Match links two researchers. The pair is stored with UserID1 < UserID2 so
// each pair has one row; InitiatedBy keeps who expressed interest first.
type Match struct {
	Base
	UserID1     uuid.UUID   `db:"user_id_1" json:"user_id_1" validate:"required"`
	UserID2     uuid.UUID   `db:"user_id_2" json:"user_id_2" validate:"required"`
	InitiatedBy uuid.UUID   `db:"initiated_by" json:"initiated_by" validate:"required"`
	Status      MatchStatus `db:"status" json:"status" validate:"oneof=pending matched rejected" schema:"default=pending"`
}

func (Match) TableName() string {
	return MatchesTable
}

// OrderedPair returns a and b in storage order.
func OrderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}

// Counterpart returns the other side of the match for userID.
func (m Match) Counterpart(userID uuid.UUID) uuid.UUID {
	if m.UserID1 == userID {
		return m.UserID2
	}
	return m.UserID1
}

// Involves reports whether userID is either side of the match.
func (m Match) Involves(userID uuid.UUID) bool {
	return m.UserID1 == userID || m.UserID2 == userID
}

// MatchWithProfiles is a confirmed match with both researchers attached.
type MatchWithProfiles struct {
	Match
	Profile1 AuthorSummary `db:"profile_1" json:"profile_1"`
	Profile2 AuthorSummary `db:"profile_2" json:"profile_2"`
}
