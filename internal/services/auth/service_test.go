package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/gamehost/internal/dependencies/mocks"
	"github.com/mcoot/gamehost/internal/model"
	"github.com/mcoot/gamehost/internal/storage/memory"
	"github.com/mcoot/gamehost/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	cfg := DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost
	s.service = New(s.storage, s.storage, s.clock, mocks.NewMockRandom(), testutil.NopLogger(), cfg)
	s.ctx = context.Background()
}

// Signup tests

func (s *ServiceSuite) TestSignupIssuesValidToken() {
	token, err := s.service.Signup(s.ctx, "player1", "helloworld1!")
	s.Require().NoError(err)
	s.NotEmpty(token.Token)
	s.Equal(s.clock.Now().Add(time.Hour), token.ExpiresAt)

	identity, err := s.service.Authenticate(s.ctx, token.Token)
	s.Require().NoError(err)
	s.Equal("player1", identity.Username)
	s.False(identity.Blocked)
}

func (s *ServiceSuite) TestSignupHashesPassword() {
	_, err := s.service.Signup(s.ctx, "player1", "helloworld1!")
	s.Require().NoError(err)

	p, err := s.storage.GetPrincipalByUsername(s.ctx, "player1")
	s.Require().NoError(err)
	s.NotEqual("helloworld1!", p.PasswordHash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte("helloworld1!")))
	s.Equal(s.clock.Now(), p.RegisteredAt)
}

func (s *ServiceSuite) TestSignupRejectsDuplicateUsername() {
	_, err := s.service.Signup(s.ctx, "player1", "helloworld1!")
	s.Require().NoError(err)

	_, err = s.service.Signup(s.ctx, "player1", "different")
	s.ErrorIs(err, model.ErrUsernameExists)
}

func (s *ServiceSuite) TestSignupValidatesCredentials() {
	cases := map[string][2]string{
		"short username": {"abc", "helloworld"},
		"long username":  {string(make([]byte, 61)), "helloworld"},
		"short password": {"player1", "12345"},
	}
	for name, c := range cases {
		s.Run(name, func() {
			_, err := s.service.Signup(s.ctx, c[0], c[1])
			s.ErrorIs(err, model.ErrInvalidSignup)
			s.ErrorIs(err, model.ErrUnauthenticated)
		})
	}
}

// Signin tests

func (s *ServiceSuite) TestSigninSupersedesPreviousToken() {
	t1, err := s.service.Signup(s.ctx, "player1", "helloworld1!")
	s.Require().NoError(err)

	t2, err := s.service.Signin(s.ctx, "player1", "helloworld1!")
	s.Require().NoError(err)
	s.NotEqual(t1.Token, t2.Token)

	_, err = s.service.Authenticate(s.ctx, t1.Token)
	s.ErrorIs(err, model.ErrUnauthenticated)

	_, err = s.service.Authenticate(s.ctx, t2.Token)
	s.NoError(err)
}

func (s *ServiceSuite) TestSigninUpdatesLastLogin() {
	_, err := s.service.Signup(s.ctx, "player1", "helloworld1!")
	s.Require().NoError(err)

	s.clock.Advance(time.Hour)
	_, err = s.service.Signin(s.ctx, "player1", "helloworld1!")
	s.Require().NoError(err)

	p, err := s.storage.GetPrincipalByUsername(s.ctx, "player1")
	s.Require().NoError(err)
	s.Require().NotNil(p.LastLoginAt)
	s.Equal(s.clock.Now(), *p.LastLoginAt)
}

func (s *ServiceSuite) TestSigninRejectsBadCredentials() {
	_, err := s.service.Signup(s.ctx, "player1", "helloworld1!")
	s.Require().NoError(err)

	_, err = s.service.Signin(s.ctx, "player1", "wrong-password")
	s.ErrorIs(err, model.ErrInvalidCredentials)

	_, err = s.service.Signin(s.ctx, "nobody1", "helloworld1!")
	s.ErrorIs(err, model.ErrInvalidCredentials)

	_, err = s.service.Signin(s.ctx, "player1", "")
	s.ErrorIs(err, model.ErrInvalidCredentials)
}

// Signout tests

func (s *ServiceSuite) TestSignoutRevokesToken() {
	token, err := s.service.Signup(s.ctx, "player1", "helloworld1!")
	s.Require().NoError(err)

	s.Require().NoError(s.service.Signout(s.ctx, token.Token))

	_, err = s.service.Authenticate(s.ctx, token.Token)
	s.ErrorIs(err, model.ErrUnauthenticated)

	// idempotent
	s.NoError(s.service.Signout(s.ctx, token.Token))
}

// Block tests

func (s *ServiceSuite) TestBlockRevokesAndRefusesSignin() {
	token, err := s.service.Signup(s.ctx, "player1", "helloworld1!")
	s.Require().NoError(err)

	p, err := s.service.Block(s.ctx, "player1", "cheating")
	s.Require().NoError(err)
	s.True(p.Blocked)

	_, err = s.service.Authenticate(s.ctx, token.Token)
	s.ErrorIs(err, model.ErrUnauthenticated)

	_, err = s.service.Signin(s.ctx, "player1", "helloworld1!")
	s.ErrorIs(err, model.ErrPrincipalBlocked)

	_, err = s.service.Unblock(s.ctx, "player1")
	s.Require().NoError(err)

	_, err = s.service.Signin(s.ctx, "player1", "helloworld1!")
	s.NoError(err)
}

func (s *ServiceSuite) TestBlockUnknownPrincipal() {
	_, err := s.service.Block(s.ctx, "nobody1", "")
	s.ErrorIs(err, model.ErrPrincipalNotFound)
}
