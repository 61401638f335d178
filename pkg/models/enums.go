package models

type Visibility string

const (
	VisibilityPublic      Visibility = "public"
	VisibilityPrivate     Visibility = "private"
	VisibilityConnections Visibility = "connections"
)

type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityLimited     Availability = "limited"
	AvailabilityUnavailable Availability = "unavailable"
)

type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusArchived  ProjectStatus = "archived"
)

type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusMatched  MatchStatus = "matched"
	MatchStatusRejected MatchStatus = "rejected"
)

// CanTransition reports whether a match may move from s to next.
func (s MatchStatus) CanTransition(next MatchStatus) bool {
	return s == MatchStatusPending && (next == MatchStatusMatched || next == MatchStatusRejected)
}

type NotificationType string

const (
	NotificationNewMatch      NotificationType = "new_match"
	NotificationMatchAccepted NotificationType = "match_accepted"
	NotificationNewMessage    NotificationType = "new_message"
	NotificationPostLike      NotificationType = "post_like"
	NotificationProjectInvite NotificationType = "project_invite"
	NotificationTaskAssigned  NotificationType = "task_assigned"
	NotificationSystem        NotificationType = "system"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusArchived   TaskStatus = "archived"
)

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusTodo:       {TaskStatusInProgress, TaskStatusArchived},
	TaskStatusInProgress: {TaskStatusCompleted, TaskStatusTodo, TaskStatusArchived},
	TaskStatusCompleted:  {TaskStatusArchived},
}

// CanTransition reports whether a task may move from s to next. Archived is terminal.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

type CollaboratorRole string

const (
	CollaboratorOwner  CollaboratorRole = "owner"
	CollaboratorEditor CollaboratorRole = "editor"
	CollaboratorViewer CollaboratorRole = "viewer"
)

// CanEdit reports whether the role may change workspace content.
func (r CollaboratorRole) CanEdit() bool {
	return r == CollaboratorOwner || r == CollaboratorEditor
}
