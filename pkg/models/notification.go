package models

import (
	"github.com/google/uuid"
)

type UserNotification struct {
	Base
	UserID  uuid.UUID        `db:"user_id" json:"user_id" validate:"required"`
	Type    NotificationType `db:"type" json:"type" validate:"oneof=new_match match_accepted new_message post_like project_invite task_assigned system"`
	Content string           `db:"content" json:"content" validate:"required,max=1000"`
	Link    *string          `db:"link" json:"link" validate:"omitempty,max=1000" schema:"emptynil"`
	ActorID *uuid.UUID       `db:"actor_id" json:"actor_id"`
	IsRead  bool             `db:"is_read" json:"is_read"`
}

func (UserNotification) TableName() string {
	return UserNotificationsTable
}
