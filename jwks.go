package account

import (
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// JWKSValidator validates session tokens signed by an external identity
// provider against one or more remote JWK sets. Combine it with the local
// TokenService through NewMultiTokenValidator when both token sources are in
// play.
type JWKSValidator struct {
	keyfunc jwt.Keyfunc
	logger  Logger
}

// NewJWKSValidator fetches the JWK sets at the given URLs and keeps them
// refreshed in the background.
func NewJWKSValidator(urls []string, logger Logger) (*JWKSValidator, error) {
	if logger == nil {
		logger = defLogger{}
	}

	if len(urls) == 0 {
		return nil, errors.New("at least one JWK set URL is required", errors.CategoryBadInput)
	}

	kf, err := multiKeyfunc(urls, logger)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to initialize JWK sets")
	}

	return &JWKSValidator{
		keyfunc: kf,
		logger:  logger,
	}, nil
}

// Validate satisfies the TokenValidator interface.
func (v *JWKSValidator) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, v.keyfunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrUnableToDecodeSession
}

func multiKeyfunc(urls []string, logger Logger) (jwt.Keyfunc, error) {
	opts := keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Warn("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}

	m := make(map[string]keyfunc.Options, len(urls))
	for _, url := range urls {
		m[url] = opts
	}

	multi, err := keyfunc.GetMultiple(m, keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get JWT URLs: %w", err)
	}

	return multi.Keyfunc, nil
}

var _ TokenValidator = (*JWKSValidator)(nil)
