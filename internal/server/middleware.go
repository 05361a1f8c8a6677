package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"campusstay/internal"
	"campusstay/pkg/types"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	contextKeyUser contextKey = "user"
)

var errNoSession = errors.New("no session cookie")

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// sessionUser resolves the access token cookie to a user row, creating the
// row from token claims the first time a user is seen.
func (s *Service) sessionUser(r *http.Request) (*types.User, error) {
	cookie, err := r.Cookie(internal.COOKIE_ACCESS_TOKEN_NAME)
	if err != nil {
		return nil, errNoSession
	}

	var accessToken string
	err = s.cookie.Decode(internal.COOKIE_ACCESS_TOKEN_NAME, cookie.Value, &accessToken)
	if err != nil {
		return nil, err
	}

	identity, err := s.tokens.VerifyAccessToken(r.Context(), accessToken)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()
	user, err := s.users.User(ctx, identity.UserID)
	if errors.Is(err, types.ErrUserNotFound) {
		err = s.users.UpsertIdentity(ctx, identity.UserID, identity.Email, identity.GivenName, identity.FamilyName)
		if err != nil {
			return nil, err
		}
		user, err = s.users.User(ctx, identity.UserID)
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// LoadSession attaches the signed-in user when there is one. Anonymous
// requests pass through untouched.
func (s *Service) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.sessionUser(r)
		if err != nil {
			if !errors.Is(err, errNoSession) {
				s.logger.WithError(err).Debug("ignoring invalid session")
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyUser, user)))
	})
}

// RequireAuth redirects anonymous requests to the login page and remembers
// where they were headed.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.sessionUser(r)
		if err != nil {
			if errors.Is(err, errNoSession) {
				s.logger.Debug("no access token cookie found")
			} else {
				s.logger.WithError(err).Error("failed to resolve session")
			}

			if r.Method == http.MethodGet {
				s.setRedirectCookie(w, r.URL.RequestURI(), time.Minute*5)
			}
			s.redirectToLogin(w, r)
			return
		}

		s.logger.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"is_admin": user.IsAdmin,
		}).Debug("authenticated user")

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyUser, user)))
	})
}

// RequireAdmin must run after RequireAuth.
func (s *Service) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.userFromContext(r.Context())
		if err != nil || !user.IsAdmin {
			s.logger.WithField("path", r.URL.Path).Warn("non-admin request to review queue")
			s.redirectWithError(w, r, "Access denied. Admin privileges required.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path != "/" && strings.HasSuffix(path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}
