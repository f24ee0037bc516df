package account

import (
	"time"

	"todoapp/internal/auth"
	"todoapp/internal/mail"
	"todoapp/internal/platform/device"
	"todoapp/internal/platform/lockout"
	"todoapp/internal/platform/password"
	"todoapp/internal/platform/user"
)

// Deps groups the collaborators of the authentication flows. It is built
// once at startup.
type Deps struct {
	Users    *user.UserService
	Devices  *device.Registry
	Lockout  *lockout.Guard
	Issuer   *auth.Issuer
	Tokens   *auth.OneTimeTokens
	Hasher   *password.Hasher
	Policy   password.Chain
	Mailer   mail.Mailer
	Composer mail.Composer
	Now      func() time.Time
}

type Service struct {
	users    *user.UserService
	devices  *device.Registry
	lockout  *lockout.Guard
	issuer   *auth.Issuer
	tokens   *auth.OneTimeTokens
	hasher   *password.Hasher
	policy   password.Chain
	mailer   mail.Mailer
	composer mail.Composer
	now      func() time.Time
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Mailer == nil {
		d.Mailer = mail.LogMailer{}
	}
	return &Service{
		users:    d.Users,
		devices:  d.Devices,
		lockout:  d.Lockout,
		issuer:   d.Issuer,
		tokens:   d.Tokens,
		hasher:   d.Hasher,
		policy:   d.Policy,
		mailer:   d.Mailer,
		composer: d.Composer,
		now:      d.Now,
	}
}

func (s *Service) Issuer() *auth.Issuer {
	return s.issuer
}

func (s *Service) Users() *user.UserService {
	return s.users
}

func (s *Service) Devices() *device.Registry {
	return s.devices
}
