package firebase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"instauto_backend/internal/config"
	"instauto_backend/internal/session"
)

// authClient is the subset of *auth.Client the session client needs.
type authClient interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// Service is the session client backed by Firebase Authentication.
type Service struct {
	authClient authClient
	logger     *zap.Logger
}

var _ session.Client = (*Service)(nil)

// NewService initializes the Firebase Admin SDK from the service account key.
func NewService(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if cfg.FirebaseServiceAccountKeyPath == "" {
		logger.Error("Firebase service account key path is not configured.")
		return nil, fmt.Errorf("firebase service account key path is required")
	}

	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := firebase.NewApp(context.Background(), conf, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Auth(context.Background())
	if err != nil {
		logger.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return newService(client, logger), nil
}

func newService(client authClient, logger *zap.Logger) *Service {
	return &Service{authClient: client, logger: logger.Named("FirebaseSession")}
}

// GetSession verifies the ID token carried by ctx, rejecting revoked tokens.
func (s *Service) GetSession(ctx context.Context) (*session.Session, error) {
	idToken, ok := session.TokenFromContext(ctx)
	if !ok {
		return nil, session.ErrNoSession
	}

	token, err := s.authClient.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		s.logger.Debug("Firebase ID token rejected", zap.Error(err))
		return nil, fmt.Errorf("failed to verify Firebase ID token: %w", err)
	}

	email, _ := token.Claims["email"].(string)
	s.logger.Debug("Firebase ID token verified", zap.String("uid", token.UID))
	return &session.Session{
		Token:     idToken,
		UID:       token.UID,
		Email:     email,
		IssuedAt:  time.Unix(token.IssuedAt, 0).UTC(),
		ExpiresAt: time.Unix(token.Expires, 0).UTC(),
	}, nil
}

// SignOut revokes all refresh tokens of uid, which also invalidates every ID
// token issued before now.
func (s *Service) SignOut(ctx context.Context, uid string) error {
	if err := s.authClient.RevokeRefreshTokens(ctx, uid); err != nil {
		s.logger.Error("Failed to revoke refresh tokens", zap.Error(err), zap.String("uid", uid))
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	s.logger.Info("Revoked refresh tokens", zap.String("uid", uid))
	return nil
}
