package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rath300/research-collab/config"
	"github.com/Rath300/research-collab/pkg/database/databasetest"
	apperrors "github.com/Rath300/research-collab/pkg/errors"
)

func testApp(mutate func(*config.Config)) *app {
	cfg := &config.Config{AppName: "research-collab-api", Version: "test"}
	mutate(cfg)
	return &app{cfg: cfg, logger: databasetest.NopLogger()}
}

func TestTableNames(t *testing.T) {
	assert.Equal(t,
		[]string{"messages", "user_notifications", "matches"},
		tableNames([]string{"researchcollab.public.messages", "researchcollab.public.user_notifications", "matches"}))
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		auth       config.Auth
		wantConfig bool
		wantErr    bool
	}{
		{name: "disabled trusts headers", auth: config.Auth{Enabled: false}},
		{name: "jwt", auth: config.Auth{Enabled: true, Mode: "jwt", JWTSecret: "s3cret"}},
		{name: "jwt without secret", auth: config.Auth{Enabled: true, Mode: "jwt"}, wantConfig: true, wantErr: true},
		{name: "oidc without issuer", auth: config.Auth{Enabled: true, Mode: "oidc"}, wantConfig: true, wantErr: true},
		{name: "unknown mode", auth: config.Auth{Enabled: true, Mode: "saml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testApp(func(c *config.Config) { c.Auth = tt.auth })
			mw, err := a.authMiddleware(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantConfig, apperrors.IsConfigurationError(err))
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, mw)
		})
	}
}

func TestOptionalComponentsStayOffWhenDisabled(t *testing.T) {
	a := testApp(func(c *config.Config) {})

	assert.Nil(t, a.notificationProducer())
	assert.Nil(t, a.objectStore(context.Background()))

	_, err := a.connectRedis(context.Background())
	assert.True(t, apperrors.IsConfigurationError(err))

	assert.Equal(t, []string{"crossref", "semantic_scholar", "pubmed", "arxiv"}, a.searcher().Sources())
}

func TestMisconfiguredStorageIsSkipped(t *testing.T) {
	a := testApp(func(c *config.Config) { c.Storage = config.Storage{Enabled: true} })
	assert.Nil(t, a.objectStore(context.Background()))
}
