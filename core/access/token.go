package access

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var (
	signingMethod = jwt.SigningMethodHS256
	nowFunc       = time.Now // mockable

	// errors
	errTokenMissing = errors.New("missing video token")
	errTokenInvalid = errors.New("invalid video token")
	errTokenStale   = errors.New("video token expired")
)

// VideoClaims is the capability token payload: one user, one lesson,
// one issue time. Never persisted; every request re-validates it.
type VideoClaims struct {
	jwt.StandardClaims
	LessonID string `json:"lesson_id"`
}

// TokenIssuer mints signed capability tokens for lesson video resources.
type TokenIssuer struct {
	secretKey []byte
	ttl       time.Duration
	appName   string
}

func NewTokenIssuer(conf *core.Config) *TokenIssuer {
	return &TokenIssuer{
		secretKey: conf.SecretKey,
		ttl:       conf.Server.VideoTokenExpirationDelta,
		appName:   conf.AppName,
	}
}

// Issue returns a signed token granting usr access to lessonID until the
// validity window elapses.
func (ti *TokenIssuer) Issue(usr user.User, lessonID string) (string, error) {
	if len(ti.secretKey) == 0 {
		return "", errors.Wrap(core.ErrServerMisconfigured, "video token signing key not set")
	}

	now := nowFunc()
	claims := &VideoClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ti.appName,
			Subject:   usr.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ti.ttl).Unix(),
		},
		LessonID: lessonID,
	}

	ss, err := jwt.NewWithClaims(signingMethod, claims).SignedString(ti.secretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing video token")
	}
	return ss, nil
}

// parseToken verifies the signature and the token's own expiry and
// returns the embedded claims.
func parseToken(token string, secretKey []byte) (*VideoClaims, error) {
	claims := new(VideoClaims)
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != signingMethod {
			return nil, errTokenInvalid
		}
		return secretKey, nil
	})
	if err != nil {
		return nil, errTokenInvalid
	}
	return claims, nil
}
