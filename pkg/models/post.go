package models

import (
	"github.com/google/uuid"

	"github.com/Rath300/research-collab/pkg/database"
)

type ResearchPost struct {
	Base
	UserID          uuid.UUID                `db:"user_id" json:"user_id" validate:"required"`
	Title           string                   `db:"title" json:"title" validate:"required,max=200"`
	Content         string                   `db:"content" json:"content" validate:"required,max=20000"`
	Tags            database.JSONB[[]string] `db:"tags" json:"tags" schema:"maxitems=20"`
	Visibility      Visibility               `db:"visibility" json:"visibility" validate:"oneof=public private connections" schema:"default=public"`
	EngagementCount int                      `db:"engagement_count" json:"engagement_count" validate:"gte=0" schema:"readonly"`
}

func (ResearchPost) TableName() string {
	return ResearchPostsTable
}

// PostWithAuthor is a feed entry.
type PostWithAuthor struct {
	ResearchPost
	Author AuthorSummary `db:"author" json:"author"`
}
