package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	apierrors "github.com/remesas/remittance-api/internal/shared/errors"
)

const actorContextKey = "remittances.actor"

var (
	errMissingToken = errors.New("bearer token is required")
	errInvalidRole  = errors.New("token role must be sender or admin")
)

// Claims are the token claims the API relies on. Authentication itself happens upstream;
// the token only carries the already-verified identity and its role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: strings.TrimSpace(issuer)}
}

// Actor parses token and returns the actor it identifies.
func (v *Verifier) Actor(token string) (domain.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	var claims Claims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return domain.Actor{}, err
	}
	actor := domain.Actor{ID: strings.TrimSpace(claims.Subject), Role: domain.Role(claims.Role)}
	if !actor.Valid() {
		return domain.Actor{}, errInvalidRole
	}
	return actor, nil
}

// Issue signs a token for actor. Used by tooling and tests; production tokens come from the identity provider.
func (v *Verifier) Issue(actor domain.Actor, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Middleware rejects requests without a valid bearer token and stores the actor on the context.
func Middleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			apierrors.Abort(c, apierrors.ErrUnauthorized.WithDetail(errMissingToken.Error()))
			return
		}
		actor, err := v.Actor(token)
		if err != nil {
			apierrors.Abort(c, apierrors.ErrUnauthorized.WithDetail("invalid token"))
			return
		}
		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// RequireAdmin rejects non-administrators. It must run after Middleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor, ok := ActorFrom(c); !ok || !actor.IsAdmin() {
			apierrors.Abort(c, apierrors.ErrForbidden.WithDetail("you are not authorized for this action"))
			return
		}
		c.Next()
	}
}

// ActorFrom returns the actor stored by Middleware.
func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	value, ok := c.Get(actorContextKey)
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := value.(domain.Actor)
	return actor, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
