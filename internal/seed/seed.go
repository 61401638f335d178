// Package seed loads YAML fixtures of researchers, posts, projects and
// matches into a tenant. Records are keyed so a fixture file can be applied
// more than once; rows that already exist are left alone.
package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Rath300/research-collab/internal/repositories/collaborator"
	"github.com/Rath300/research-collab/internal/repositories/match"
	"github.com/Rath300/research-collab/internal/repositories/post"
	"github.com/Rath300/research-collab/internal/repositories/profile"
	"github.com/Rath300/research-collab/internal/repositories/project"
	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/database"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/schema"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// Fixtures is a seed file. Profile records carry a key the other sections
// refer to; every other field is decoded through the entity schema.
type Fixtures struct {
	Tenant   string           `yaml:"tenant"`
	Profiles []map[string]any `yaml:"profiles"`
	Posts    []map[string]any `yaml:"posts"`
	Projects []ProjectFixture `yaml:"projects"`
	Matches  []MatchFixture   `yaml:"matches"`
}

type ProjectFixture struct {
	Owner         string                             `yaml:"owner"`
	Collaborators map[string]models.CollaboratorRole `yaml:"collaborators"`
	Fields        map[string]any                     `yaml:",inline"`
}

type MatchFixture struct {
	From   string             `yaml:"from"`
	To     string             `yaml:"to"`
	Status models.MatchStatus `yaml:"status"`
}

// Summary counts the rows a run created and the records it skipped because
// they already existed.
type Summary struct {
	Profiles      int `json:"profiles"`
	Posts         int `json:"posts"`
	Projects      int `json:"projects"`
	Collaborators int `json:"collaborators"`
	Matches       int `json:"matches"`
	Skipped       int `json:"skipped"`
}

// Load reads and parses the fixture file at path.
func Load(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &f, nil
}

type Seeder struct {
	db            database.DB
	logger        ectologger.Logger
	profiles      *profile.Repository
	posts         *post.Repository
	projects      *project.Repository
	collaborators *collaborator.Repository
	matches       *match.Repository
}

func NewSeeder(db database.DB, logger ectologger.Logger) *Seeder {
	collaborators := collaborator.NewRepository(db, logger)
	return &Seeder{
		db:            db,
		logger:        logger,
		profiles:      profile.NewRepository(db, logger),
		posts:         post.NewRepository(db, logger),
		projects:      project.NewRepository(db, collaborators, logger),
		collaborators: collaborators,
		matches:       match.NewRepository(db, logger),
	}
}

// KeyID is the id a fixture key maps to within tenantID.
func KeyID(tenantID uuid.UUID, kind, key string) uuid.UUID {
	return uuid.NewSHA1(tenantID, []byte(kind+":"+key))
}

// Seed applies f to tenantID in one transaction. f.Tenant, when set, must
// agree with tenantID.
func (s *Seeder) Seed(ctx context.Context, tenantID uuid.UUID, f *Fixtures) (Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "seed.Seed")
	defer span.End()

	var summary Summary
	if f.Tenant != "" && f.Tenant != tenantID.String() {
		return summary, fmt.Errorf("seed file is for tenant %s, not %s", f.Tenant, tenantID)
	}

	ctx = appctx.WithIdentity(ctx, tenantID, uuid.Nil)
	ctx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return summary, database.NewStoreError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	r := resolver{tenantID: tenantID, keys: map[string]uuid.UUID{}}

	steps := []func(context.Context, *resolver, *Fixtures, *Summary) error{
		s.seedProfiles,
		s.seedPosts,
		s.seedProjects,
		s.seedMatches,
	}
	for _, step := range steps {
		if err := step(ctx, &r, f, &summary); err != nil {
			return summary, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return summary, database.NewStoreError("failed to commit seed", err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":     tenantID.String(),
		"profiles":      summary.Profiles,
		"posts":         summary.Posts,
		"projects":      summary.Projects,
		"collaborators": summary.Collaborators,
		"matches":       summary.Matches,
		"skipped":       summary.Skipped,
	}).Info("seed applied")
	return summary, nil
}

type resolver struct {
	tenantID uuid.UUID
	keys     map[string]uuid.UUID
}

func (r *resolver) profile(section, key string) (uuid.UUID, error) {
	id, ok := r.keys[key]
	if !ok {
		return uuid.Nil, fmt.Errorf("%s refers to unknown profile %q", section, key)
	}
	return id, nil
}

func (s *Seeder) seedProfiles(ctx context.Context, r *resolver, f *Fixtures, summary *Summary) error {
	for i, record := range f.Profiles {
		key, _ := record["key"].(string)
		if key == "" {
			return fmt.Errorf("profiles[%d] needs a key", i)
		}
		id := KeyID(r.tenantID, "profile", key)
		r.keys[key] = id

		existing, err := s.profiles.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing != nil {
			summary.Skipped++
			continue
		}

		p, err := schema.Profile.Decode(ctx, without(record, "key"))
		if err != nil {
			return fmt.Errorf("profiles[%d] (%s): %w", i, key, err)
		}
		p.ID = id
		if _, err := s.profiles.Create(ctx, p); err != nil {
			return err
		}
		summary.Profiles++
	}
	return nil
}

func (s *Seeder) seedPosts(ctx context.Context, r *resolver, f *Fixtures, summary *Summary) error {
	for i, record := range f.Posts {
		author, _ := record["author"].(string)
		authorID, err := r.profile(fmt.Sprintf("posts[%d]", i), author)
		if err != nil {
			return err
		}

		fields := without(record, "author")
		fields["user_id"] = authorID.String()
		p, err := schema.ResearchPost.Decode(ctx, fields)
		if err != nil {
			return fmt.Errorf("posts[%d]: %w", i, err)
		}
		p.ID = KeyID(r.tenantID, "post", author+"/"+p.Title)

		existing, err := s.posts.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			summary.Skipped++
			continue
		}
		if _, err := s.posts.Create(ctx, p); err != nil {
			return err
		}
		summary.Posts++
	}
	return nil
}

func (s *Seeder) seedProjects(ctx context.Context, r *resolver, f *Fixtures, summary *Summary) error {
	for i, fixture := range f.Projects {
		section := fmt.Sprintf("projects[%d]", i)
		ownerID, err := r.profile(section, fixture.Owner)
		if err != nil {
			return err
		}

		fields := without(fixture.Fields)
		fields["owner_id"] = ownerID.String()
		p, err := schema.Project.Decode(ctx, fields)
		if err != nil {
			return fmt.Errorf("%s: %w", section, err)
		}
		p.ID = KeyID(r.tenantID, "project", fixture.Owner+"/"+p.Title)

		existing, err := s.projects.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			if _, err := s.projects.CreateWithOwner(ctx, p); err != nil {
				return err
			}
			summary.Projects++
		} else {
			summary.Skipped++
		}

		for key, role := range fixture.Collaborators {
			userID, err := r.profile(section, key)
			if err != nil {
				return err
			}
			if userID == ownerID {
				continue
			}
			member, err := s.collaborators.Get(ctx, p.ID, userID)
			if err != nil {
				return err
			}
			if member != nil {
				summary.Skipped++
				continue
			}
			if _, err := s.collaborators.Add(ctx, p.ID, userID, role); err != nil {
				return err
			}
			summary.Collaborators++
		}
	}
	return nil
}

func (s *Seeder) seedMatches(ctx context.Context, r *resolver, f *Fixtures, summary *Summary) error {
	for i, fixture := range f.Matches {
		section := fmt.Sprintf("matches[%d]", i)
		from, err := r.profile(section, fixture.From)
		if err != nil {
			return err
		}
		to, err := r.profile(section, fixture.To)
		if err != nil {
			return err
		}

		m, created, err := s.matches.CreateIfAbsent(ctx, from, to)
		if err != nil {
			return err
		}
		if !created {
			summary.Skipped++
			continue
		}
		summary.Matches++

		if fixture.Status != "" && fixture.Status != m.Status {
			if _, err := s.matches.UpdateStatus(ctx, m.ID, m.Status, fixture.Status); err != nil {
				return fmt.Errorf("%s: %w", section, err)
			}
		}
	}
	return nil
}

// without copies record minus keys.
func without(record map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
