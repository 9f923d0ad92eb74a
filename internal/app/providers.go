package app

import (
	"context"
	"time"

	"instauto_backend/internal/access"
	"instauto_backend/internal/auth"
	"instauto_backend/internal/bootstrap"
	"instauto_backend/internal/config"
	"instauto_backend/internal/devauth"
	"instauto_backend/internal/firebase"
	"instauto_backend/internal/jobs"
	"instauto_backend/internal/notification"
	"instauto_backend/internal/pages"
	"instauto_backend/internal/platform/database"
	"instauto_backend/internal/platform/retry"
	"instauto_backend/internal/profile"
	"instauto_backend/internal/search"
	"instauto_backend/internal/session"

	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const searchStartupTimeout = 10 * time.Second

// ProviderSet assembles the server from a *config.Config and a *zap.Logger.
var ProviderSet = wire.NewSet(
	ProvideDatabase,
	ProvideHub,
	wire.Bind(new(session.Events), new(*session.Hub)),
	wire.Bind(new(profile.Publisher), new(*session.Hub)),
	ProvideDevIssuer,
	ProvideDevTokenIssuer,
	ProvideSessionClient,

	profile.NewGORMRepository,
	ProvideProfileStore,
	ProvideResolver,
	ProvideAccessRouter,
	access.NewGateFactory,
	access.DefaultRoutes,

	ProvideOficinaIndex,
	ProvideOficinaIndexer,
	profile.NewService,
	wire.Bind(new(profile.Service), new(*profile.ServiceImplementation)),
	profile.NewHandler,

	notification.NewGORMRepository,
	notification.NewService,
	wire.Bind(new(notification.Service), new(*notification.ServiceImplementation)),
	notification.NewHandler,
	ProvidePlanExpiryJob,

	ProvideCookieConfig,
	auth.NewHandler,
	pages.NewHandler,
	ProvideSearchHandler,
	wire.Struct(new(Handlers), "*"),

	NewServer,
)

// ProvideDatabase connects and migrates the schema. The cleanup closes the pool.
func ProvideDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := database.AutoMigrate(db, &profile.Profile{}, &notification.Notification{}); err != nil {
		database.CloseGORMDB(db, logger)
		return nil, nil, err
	}
	logger.Info("Database schema migrated", zap.String("driver", cfg.DBDriver))
	return db, func() { database.CloseGORMDB(db, logger) }, nil
}

func ProvideHub(logger *zap.Logger) *session.Hub {
	return session.NewHub(logger)
}

// ProvideDevIssuer returns nil unless AUTH_PROVIDER=local.
func ProvideDevIssuer(cfg *config.Config, logger *zap.Logger) (*devauth.Issuer, error) {
	if cfg.AuthProvider != config.AuthProviderLocal {
		return nil, nil
	}
	return devauth.NewIssuer(cfg, logger)
}

// ProvideDevTokenIssuer avoids handing a typed nil to the auth handler.
func ProvideDevTokenIssuer(dev *devauth.Issuer) auth.DevTokenIssuer {
	if dev == nil {
		return nil
	}
	return dev
}

// ProvideSessionClient selects the session provider named by AUTH_PROVIDER.
func ProvideSessionClient(cfg *config.Config, dev *devauth.Issuer, logger *zap.Logger) (session.Client, error) {
	if dev != nil {
		return dev, nil
	}
	return firebase.NewService(cfg, logger)
}

// ProvideProfileStore caches profile reads for the bootstrap. The cleanup
// unsubscribes it from session events.
func ProvideProfileStore(cfg *config.Config, repo profile.Repository, events session.Events, logger *zap.Logger) (*profile.CachedStore, func()) {
	return profile.NewCachedStore(repo, cfg.ProfileCacheTTL, events, logger)
}

func ProvideResolver(cfg *config.Config, sessions session.Client, store *profile.CachedStore, logger *zap.Logger) bootstrap.Resolver {
	policy := retry.Fixed(cfg.ProfileFetchMaxAttempts, cfg.ProfileFetchRetryDelay)
	return bootstrap.New(sessions, store, policy, logger)
}

func ProvideAccessRouter(cfg *config.Config) *access.Router {
	return access.NewRouter(access.DefaultLandingTable(cfg.LoginPath))
}

// ProvideOficinaIndex connects to Elasticsearch and makes sure the index
// exists. It returns nil when ELASTICSEARCH_URL is empty.
func ProvideOficinaIndex(cfg *config.Config, logger *zap.Logger) (*search.Index, error) {
	if cfg.ElasticsearchURL == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), searchStartupTimeout)
	defer cancel()

	client, err := search.NewClient(ctx, cfg.ElasticsearchURL, logger)
	if err != nil {
		return nil, err
	}
	ix := search.NewIndex(client, logger)
	if err := ix.EnsureIndex(ctx); err != nil {
		logger.Error("Failed to create Elasticsearch oficinas index; search may fail until it exists", zap.Error(err))
	}
	return ix, nil
}

func ProvideOficinaIndexer(ix *search.Index) profile.OficinaIndexer {
	if ix == nil {
		return nil
	}
	return ix
}

func ProvideSearchHandler(ix *search.Index, logger *zap.Logger) *search.Handler {
	if ix == nil {
		return nil
	}
	return search.NewHandler(ix, logger)
}

func ProvidePlanExpiryJob(cfg *config.Config, profiles profile.Service, notifications notification.Service, logger *zap.Logger) *jobs.PlanExpiryJob {
	return jobs.NewPlanExpiryJob(profiles, notifications, cfg.PlanExpiryJobSchedule, logger)
}

func ProvideCookieConfig(cfg *config.Config) auth.CookieConfig {
	return auth.CookieConfig{Name: cfg.SessionCookieName, Secure: cfg.GinMode == "release"}
}
