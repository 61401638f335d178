package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// Identity is who a verified token speaks for.
type Identity struct {
	UserID   string
	TenantID string
}

type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (Identity, error)
}

type identityClaims struct {
	Sub      string `json:"sub"`
	Email    string `json:"email"`
	TenantID string `json:"tenant_id"`
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers issuer and verifies ID tokens issued to clientID.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (TokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider %s: %w", issuer, err)
	}
	return &oidcVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (v *oidcVerifier) Verify(ctx context.Context, raw string) (Identity, error) {
	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return Identity{}, err
	}
	var claims identityClaims
	if err := token.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("cannot parse claims: %w", err)
	}
	return Identity{UserID: token.Subject, TenantID: claims.TenantID}, nil
}

type jwtVerifier struct {
	secret []byte
}

// NewJWTVerifier verifies HS256 tokens signed with secret. Tokens must expire.
func NewJWTVerifier(secret string) TokenVerifier {
	return &jwtVerifier{secret: []byte(secret)}
}

func (v *jwtVerifier) Verify(_ context.Context, raw string) (Identity, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("unexpected claims type")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return Identity{}, err
	}
	tenantID, _ := claims["tenant_id"].(string)
	return Identity{UserID: sub, TenantID: tenantID}, nil
}

// Authentication requires a bearer token accepted by verifier. Tokens without
// a tenant claim are placed in defaultTenantID.
func Authentication(logger ectologger.Logger, verifier TokenVerifier, defaultTenantID string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracing.StartSpan(c.Request().Context(), "middleware.Authentication")
			defer span.End()

			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				logger.WithContext(ctx).Warn("request is missing bearer token")
				return httperror.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			identity, err := verifier.Verify(verifyCtx, strings.TrimPrefix(auth, "Bearer "))
			cancel()
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("token is invalid")
				return httperror.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if identity.TenantID == "" {
				identity.TenantID = defaultTenantID
			}

			ctx, err = withIdentity(ctx, identity)
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("token identity is not usable")
				return err
			}

			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// HeaderIdentity trusts the X-Tenant-ID and X-User-ID headers. It is meant for
// local runs and tests where no identity provider is available.
func HeaderIdentity(defaultTenantID string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := Identity{
				UserID:   c.Request().Header.Get(HeaderUserID),
				TenantID: c.Request().Header.Get(HeaderTenantID),
			}
			if identity.TenantID == "" {
				identity.TenantID = defaultTenantID
			}

			ctx, err := withIdentity(c.Request().Context(), identity)
			if err != nil {
				return err
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func withIdentity(ctx context.Context, identity Identity) (context.Context, error) {
	user, err := uuid.Parse(identity.UserID)
	if err != nil {
		return ctx, httperror.NewHTTPError(http.StatusUnauthorized, "user id must be a uuid")
	}
	tenant, err := uuid.Parse(identity.TenantID)
	if err != nil {
		return ctx, httperror.NewHTTPError(http.StatusUnauthorized, "tenant id must be a uuid")
	}
	return appctx.WithIdentity(ctx, tenant, user), nil
}
