// Package routes mounts the HTTP API and builds the dependency container its
// handlers resolve from.
package routes

import (
	"fmt"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Rath300/research-collab/internal/repositories/collaborator"
	"github.com/Rath300/research-collab/internal/repositories/file"
	"github.com/Rath300/research-collab/internal/repositories/match"
	"github.com/Rath300/research-collab/internal/repositories/message"
	"github.com/Rath300/research-collab/internal/repositories/note"
	notificationrepo "github.com/Rath300/research-collab/internal/repositories/notification"
	"github.com/Rath300/research-collab/internal/repositories/post"
	"github.com/Rath300/research-collab/internal/repositories/profile"
	"github.com/Rath300/research-collab/internal/repositories/project"
	"github.com/Rath300/research-collab/internal/repositories/task"
	conversationsvc "github.com/Rath300/research-collab/internal/services/conversation"
	matchsvc "github.com/Rath300/research-collab/internal/services/match"
	"github.com/Rath300/research-collab/internal/services/notification"
	"github.com/Rath300/research-collab/pkg/crud"
	"github.com/Rath300/research-collab/pkg/database"
	"github.com/Rath300/research-collab/pkg/literature"
	"github.com/Rath300/research-collab/pkg/realtime"
	conversationroutes "github.com/Rath300/research-collab/pkg/routes/conversation"
	literatureroutes "github.com/Rath300/research-collab/pkg/routes/literature"
	matchroutes "github.com/Rath300/research-collab/pkg/routes/match"
	notificationroutes "github.com/Rath300/research-collab/pkg/routes/notification"
	postroutes "github.com/Rath300/research-collab/pkg/routes/post"
	profileroutes "github.com/Rath300/research-collab/pkg/routes/profile"
	projectroutes "github.com/Rath300/research-collab/pkg/routes/project"
	"github.com/Rath300/research-collab/pkg/storage"
)

const Prefix = "/api/v1"

// Dependencies are the shared clients the container is built from. Publisher,
// Storage, Searcher and Realtime are optional.
type Dependencies struct {
	DB        database.DB
	Logger    ectologger.Logger
	Publisher notification.EventPublisher
	Storage   *storage.Store
	Searcher  *literature.Searcher
	Realtime  *realtime.Hub
	CrudOpts  []crud.Option
}

// Register mounts every API group under Prefix behind auth.
func Register(e *echo.Echo, auth echo.MiddlewareFunc) {
	api := e.Group(Prefix, auth)

	profileroutes.Register(api.Group("/profiles"))
	postroutes.Register(api.Group("/posts"))
	projectroutes.Register(api.Group("/projects"))
	matchroutes.Register(api.Group("/matches"))
	conversationroutes.Register(api.Group("/conversations"))
	notificationroutes.Register(api.Group("/notifications"))
	literatureroutes.Register(api.Group("/literature"))
}

// NewContainer builds the repositories and services over deps and registers
// them in a new container with the given id.
func NewContainer(id string, deps Dependencies) (ectocontainer.DIContainer, error) {
	container, err := ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:                       id,
		AllowMissingDependencies: true,
		LoggerConfig:             &ectocontainer.DIContainerLoggerConfig{Enabled: false},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create container %s: %w", id, err)
	}

	db, logger, opts := deps.DB, deps.Logger, deps.CrudOpts

	profiles := profile.NewRepository(db, logger, opts...)
	posts := post.NewRepository(db, logger, opts...)
	matches := match.NewRepository(db, logger, opts...)
	messages := message.NewRepository(db, matches, logger, opts...)
	notifications := notificationrepo.NewRepository(db, logger, opts...)
	collaborators := collaborator.NewRepository(db, logger, opts...)
	projects := project.NewRepository(db, collaborators, logger, opts...)
	notes := note.NewRepository(db, logger, opts...)
	tasks := task.NewRepository(db, logger, opts...)
	files := file.NewRepository(db, logger, opts...)

	notifier := notification.NewService(notifications, deps.Publisher, logger)

	registrations := []error{
		ectoinject.RegisterInstance[ectologger.Logger](container, logger),
		ectoinject.RegisterInstance[*profile.Repository](container, profiles),
		ectoinject.RegisterInstance[*post.Repository](container, posts),
		ectoinject.RegisterInstance[*match.Repository](container, matches),
		ectoinject.RegisterInstance[*message.Repository](container, messages),
		ectoinject.RegisterInstance[*notificationrepo.Repository](container, notifications),
		ectoinject.RegisterInstance[*collaborator.Repository](container, collaborators),
		ectoinject.RegisterInstance[*project.Repository](container, projects),
		ectoinject.RegisterInstance[*note.Repository](container, notes),
		ectoinject.RegisterInstance[*task.Repository](container, tasks),
		ectoinject.RegisterInstance[*file.Repository](container, files),
		ectoinject.RegisterInstance[*notification.Service](container, notifier),
		ectoinject.RegisterInstance[*matchsvc.Service](container, matchsvc.NewService(matches, profiles, notifier, logger)),
		ectoinject.RegisterInstance[*conversationsvc.Service](container, conversationsvc.NewService(matches, messages, profiles, logger)),
	}
	if deps.Storage != nil {
		registrations = append(registrations, ectoinject.RegisterInstance[*storage.Store](container, deps.Storage))
	}
	if deps.Searcher != nil {
		registrations = append(registrations, ectoinject.RegisterInstance[*literature.Searcher](container, deps.Searcher))
	}
	if deps.Realtime != nil {
		registrations = append(registrations, ectoinject.RegisterInstance[*realtime.Hub](container, deps.Realtime))
	}

	for _, err := range registrations {
		if err != nil {
			return nil, fmt.Errorf("failed to register dependencies in %s: %w", id, err)
		}
	}

	return container, nil
}
