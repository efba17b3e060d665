package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/permission"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

type Config struct {
	Secret       string
	Issuer       string
	SessionTTL   time.Duration
	CookieName   string
	SecureCookie bool
}

// ConfigFromEnv reads AUTH_JWT_SECRET, AUTH_ISSUER, AUTH_SESSION_TTL and AUTH_COOKIE_SECURE.
func ConfigFromEnv() Config {
	ttl, err := time.ParseDuration(os.Getenv("AUTH_SESSION_TTL"))
	if err != nil || ttl <= 0 {
		ttl = 12 * time.Hour
	}
	issuer := os.Getenv("AUTH_ISSUER")
	if issuer == "" {
		issuer = "club-api"
	}
	return Config{
		Secret:       os.Getenv("AUTH_JWT_SECRET"),
		Issuer:       issuer,
		SessionTTL:   ttl,
		CookieName:   "club_session",
		SecureCookie: os.Getenv("AUTH_COOKIE_SECURE") == "1",
	}
}

// Authenticator verifies an email/password pair.
type Authenticator interface {
	AuthenticatePassword(ctx context.Context, email, password string) (*entity.AuthView, error)
}

// Service is the auth collaborator: sign-in, session lookup, sign-out and
// auth-state notifications.
type Service struct {
	users  Authenticator
	store  SessionStore
	tokens *TokenIssuer
	broker *Broker
	ttl    time.Duration
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewService(users Authenticator, store SessionStore, broker *Broker, cfg Config, logger *zap.SugaredLogger) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: empty token secret")
	}
	if broker == nil {
		broker = NewBroker()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	s := &Service{
		users:  users,
		store:  store,
		tokens: NewTokenIssuer(cfg.Secret, cfg.Issuer),
		broker: broker,
		ttl:    cfg.SessionTTL,
		logger: logger,
		now:    time.Now,
	}
	broker.Subscribe(s.revokeDeleted)
	return s, nil
}

// SignInWithPassword checks credentials, persists a new session and returns
// it with its bearer token.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*Session, string, error) {
	view, err := s.users.AuthenticatePassword(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	if view.OrganizationID == "" {
		s.logger.Warnw("sign-in rejected: account has no organization", "user_id", view.ID)
		return nil, "", ErrBadCredentials
	}
	now := s.now()
	sess := &Session{
		ID:             utilities.NewKSUID(),
		UserID:         view.ID,
		OrganizationID: view.OrganizationID,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, "", fmt.Errorf("save session: %w", err)
	}
	token, err := s.tokens.Issue(sess)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	s.broker.Publish(Event{Type: EventSignedIn, UserID: sess.UserID, SessionID: sess.ID})
	return sess, token, nil
}

// GetSession returns the live session referenced by token. Unknown, expired
// and malformed tokens yield (nil, nil); only backend failures are errors.
func (s *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	id, uid, err := s.tokens.Parse(token, s.now())
	if err != nil {
		return nil, nil
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if sess.UserID != uid || sess.Expired(s.now()) {
		return nil, nil
	}
	return sess, nil
}

// SignOut deletes the session behind token. Signing out an unknown token is a no-op.
func (s *Service) SignOut(ctx context.Context, token string) error {
	id, uid, err := s.tokens.Parse(token, s.now())
	if err != nil {
		return nil
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.broker.Publish(Event{Type: EventSignedOut, UserID: uid, SessionID: id})
	return nil
}

// OnAuthStateChange registers fn for every auth-state event and returns the unsubscribe func.
func (s *Service) OnAuthStateChange(fn func(Event)) func() {
	return s.broker.Subscribe(fn)
}

func (s *Service) revokeDeleted(e Event) {
	if e.Type != EventUserDeleted {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.DeleteByUser(ctx, e.UserID); err != nil {
		s.logger.Errorw("failed to revoke sessions of deleted user", "user_id", e.UserID, "err", err)
	}
}

// BindResolver drops a user's cached permissions whenever their auth state changes.
func BindResolver(b *Broker, r *permission.Resolver) func() {
	return b.Subscribe(func(e Event) {
		switch e.Type {
		case EventSignedOut, EventPermissionsChanged, EventUserDeleted:
			r.Invalidate(e.UserID)
		}
	})
}
