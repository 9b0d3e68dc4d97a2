package server

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/richarrd92/hobbymatch/internal/domain"
	apperrors "github.com/richarrd92/hobbymatch/internal/errors"
	"github.com/richarrd92/hobbymatch/internal/logging"
)

// bearerToken extracts the token from the Authorization header.
func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", apperrors.Unauthorized("missing authorization header")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", apperrors.Unauthorized("malformed authorization header")
	}
	return token, nil
}

// handleLogin verifies the presented identity token and creates or refreshes
// the corresponding user record.
func (s *Server) handleLogin(c echo.Context) error {
	token, err := bearerToken(c)
	if err != nil {
		return err
	}

	identity, err := s.verifier.Verify(token)
	if err != nil {
		return apperrors.Unauthorized("invalid token")
	}

	user, err := s.users.Upsert(c.Request().Context(), identity.AuthUID, identity.Name, identity.Email)
	if err != nil {
		return apperrors.Internal("failed to upsert user", err)
	}

	logging.WithUser(user.ID.String()).Info("User logged in")
	return c.JSON(200, userResponse(user))
}

// requireAuth authenticates the request and stores the user in the echo
// context under "user" / "userID".
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := bearerToken(c)
		if err != nil {
			return err
		}

		identity, err := s.verifier.Verify(token)
		if err != nil {
			return apperrors.Unauthorized("invalid token")
		}

		user, err := s.users.GetByAuthUID(c.Request().Context(), identity.AuthUID)
		if errors.Is(err, domain.ErrNotFound) {
			return apperrors.Unauthorized("unknown user")
		}
		if err != nil {
			return apperrors.Internal("failed to load user", err)
		}

		c.Set("user", user)
		c.Set("userID", user.ID)
		return next(c)
	}
}

// currentUser returns the user stored by requireAuth.
func currentUser(c echo.Context) (*domain.User, error) {
	user, ok := c.Get("user").(*domain.User)
	if !ok {
		return nil, apperrors.Internal("no user in request context", nil)
	}
	return user, nil
}

type userJSON struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	ProfilePicURL string `json:"profile_pic_url"`
}

func userResponse(user *domain.User) userJSON {
	return userJSON{
		ID:            user.ID.String(),
		Name:          user.Name,
		Email:         user.Email,
		ProfilePicURL: user.ProfilePicURL,
	}
}
