package schema

import (
	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/models"
)

var (
	Profile             = New[models.Profile]("profile")
	ResearchPost        = New[models.ResearchPost]("research post")
	Project             = New[models.Project]("project")
	ProjectCollaborator = New[models.ProjectCollaborator]("project collaborator")
	Match               = New[models.Match]("match", distinctMatchUsers)
	Message             = New[models.Message]("message", distinctMessageParties)
	UserNotification    = New[models.UserNotification]("notification")
	ProjectNote         = New[models.ProjectNote]("project note")
	ProjectTask         = New[models.ProjectTask]("project task")
	ProjectFile         = New[models.ProjectFile]("project file")
)

func distinctMatchUsers(m *models.Match, errs *apperrors.ValidationError) {
	if m.UserID1 == m.UserID2 {
		errs.Add("user_id_2", "must differ from user_id_1")
	}
}

func distinctMessageParties(m *models.Message, errs *apperrors.ValidationError) {
	if m.SenderID == m.ReceiverID {
		errs.Add("receiver_id", "must differ from sender_id")
	}
}
