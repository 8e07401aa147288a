package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/security"
	"github.com/oksasatya/sape-server/pkg/helpers"
)

// Outcome classifies how the caller of a request was resolved.
type Outcome int

const (
	Anonymous Outcome = iota
	WrongAuthKind
	NoPrincipalShape
	UserNotFound
	Found
)

func (o Outcome) String() string {
	switch o {
	case Anonymous:
		return "anonymous"
	case WrongAuthKind:
		return "wrong_auth_kind"
	case NoPrincipalShape:
		return "no_principal_shape"
	case UserNotFound:
		return "user_not_found"
	case Found:
		return "found"
	}
	return "unknown"
}

// Identity is the result of CurrentUser. User is set only when Outcome is Found.
type Identity struct {
	Outcome  Outcome
	Name     string
	Username string
	User     *entity.User
}

type UserFinder interface {
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
}

// RequestService resolves the application user behind the authentication
// carried by a request context.
type RequestService struct {
	Users  UserFinder
	Logger *logrus.Logger
}

func NewRequestService(users UserFinder, logger *logrus.Logger) *RequestService {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &RequestService{Users: users, Logger: logger}
}

func (s *RequestService) CurrentUser(ctx context.Context) (Identity, error) {
	auth, ok := security.FromContext(ctx)
	if !ok {
		return Identity{Outcome: Anonymous}, nil
	}
	id := Identity{Name: auth.GetName()}

	oauth, ok := auth.(*security.OAuth2Authentication)
	if !ok {
		id.Outcome = WrongAuthKind
		return id, nil
	}
	details, ok := oauth.Principal.(security.UserDetails)
	if !ok {
		id.Outcome = NoPrincipalShape
		return id, nil
	}
	id.Username = details.GetUsername()

	u, err := s.Users.GetUserByUsername(ctx, id.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			id.Outcome = UserNotFound
			return id, nil
		}
		return id, err
	}
	id.Outcome = Found
	id.User = u
	return id, nil
}

// GetCurrentUser returns the user behind ctx, or nil for every outcome
// other than Found.
func (s *RequestService) GetCurrentUser(ctx context.Context) *entity.User {
	id, err := s.CurrentUser(ctx)
	if err != nil {
		s.Logger.WithError(err).Warn("resolve current user failed")
		return nil
	}
	if id.Outcome != Found {
		s.Logger.WithFields(logrus.Fields{"outcome": id.Outcome.String(), "name": id.Name}).Debug("no current user")
		return nil
	}
	return id.User
}
