package router

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/sape-server/config"
	"github.com/oksasatya/sape-server/internal/application"
	"github.com/oksasatya/sape-server/internal/application/crud"
	"github.com/oksasatya/sape-server/internal/application/dto"
	"github.com/oksasatya/sape-server/internal/container"
	"github.com/oksasatya/sape-server/internal/domain/entity"
	"github.com/oksasatya/sape-server/internal/domain/repository"
	"github.com/oksasatya/sape-server/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/sape-server/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/sape-server/internal/interface/http"
	"github.com/oksasatya/sape-server/internal/interface/middleware"
	"github.com/oksasatya/sape-server/internal/router/modules"
	"github.com/oksasatya/sape-server/internal/security"
	"github.com/oksasatya/sape-server/pkg/helpers"
)

// Repositories groups the storage of every resource for one driver.
type Repositories struct {
	Persons repository.PersonRepository
	Events  repository.EventRepository
	Entries repository.EntryRepository
	Users   repository.UserRepository
}

// Services groups the application services shared by the HTTP modules.
type Services struct {
	Persons  *application.PersonService
	Events   *application.EventService
	Entries  *application.EntryService
	Auth     *application.AuthService
	Requests *application.RequestService
	Search   *application.SearchService
	Photos   *application.PhotoService
}

// BuildRepositories picks the storage driver from config. The memory driver
// starts with a single "admin" account so the token endpoint is usable.
func BuildRepositories(cfg *config.Config, logger *logrus.Logger) Repositories {
	pool := container.GetPGPool()
	if cfg.StorageDriver == config.StoragePostgres && pool != nil {
		return Repositories{
			Persons: pginfra.NewPersonRepository(pool),
			Events:  pginfra.NewEventRepository(pool),
			Entries: pginfra.NewEntryRepository(pool),
			Users:   pginfra.NewUserRepository(pool),
		}
	}

	users := memory.NewUserRepository()
	if hash, err := helpers.HashPassword(cfg.DevAdminPassword); err != nil {
		logger.WithError(err).Warn("hash dev admin password failed; memory users left empty")
	} else {
		users.Add(entity.User{
			Username:     "admin",
			Email:        "admin@localhost",
			Name:         "Administrator",
			PasswordHash: hash,
			Roles:        []string{entity.RoleAdmin, entity.RoleUser},
		})
	}
	persons, events, entries := memory.NewPersonRepository(), memory.NewEventRepository(), memory.NewEntryRepository()
	// same ON DELETE RESTRICT rule as the entries foreign keys
	persons.GuardDelete(entries.Referenced("person_id"))
	events.GuardDelete(entries.Referenced("event_id"))
	return Repositories{
		Persons: persons,
		Events:  events,
		Entries: entries,
		Users:   users,
	}
}

// crudOptions only sets collaborators that are configured; a nil pointer
// stored in an interface field would not compare equal to nil.
func crudOptions(cfg *config.Config, logger *logrus.Logger) crud.Options {
	opts := crud.Options{Logger: logger}
	if rdb := container.GetRedis(); rdb != nil && cfg.ReadCacheTTL > 0 {
		opts.Cache = helpers.NewRedisCache(rdb, cfg.ReadCacheTTL)
	}
	if pub := container.GetRabbitPub(); pub != nil {
		opts.Publisher = pub
	}
	return opts
}

func BuildServices(cfg *config.Config, repos Repositories, logger *logrus.Logger) Services {
	opts := crudOptions(cfg, logger)
	persons := application.NewPersonService(repos.Persons, opts)
	events := application.NewEventService(repos.Events, opts)
	entries := application.NewEntryService(repos.Entries, repos.Persons, repos.Events, opts)

	users := application.NewUserQueryService(repos.Users)

	var sessions application.SessionStore
	if rdb := container.GetRedis(); rdb != nil {
		sessions = helpers.NewRedisSessions(rdb)
	}
	client := application.OAuthClient{ID: cfg.OAuthClientID, Secret: cfg.OAuthClientSecret, Scopes: cfg.Scopes()}
	auth := application.NewAuthService(users, container.GetJWT(), sessions, client, cfg.InternalAPIKey, logger)

	var searcher application.Searcher
	if es := container.GetES(); es != nil {
		searcher = helpers.NewESStore(es, cfg.ESIndexPrefix)
	}

	var uploader application.Uploader
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		uploader = helpers.NewGCSUploader(gcs, cfg.GCSBucket)
	}

	return Services{
		Persons:  persons,
		Events:   events,
		Entries:  entries,
		Auth:     auth,
		Requests: application.NewRequestService(users, logger),
		Search:   application.NewSearchService(searcher, application.Resources...),
		Photos:   application.NewPhotoService(persons, uploader),
	}
}

func statusPolicy(cfg *config.Config) handlers.ErrorStatusPolicy {
	if cfg.CRUDLegacyStatus {
		return handlers.LegacyStatusPolicy()
	}
	return handlers.DefaultStatusPolicy()
}

func methodSecurity(cfg *config.Config) *security.MethodSecurity {
	if ms := container.GetMethodSecurity(); ms != nil {
		return ms
	}
	ms := security.NewMethodSecurity(cfg.MethodSecurityEnabled, security.DefaultPolicies(application.Resources...))
	container.SetMethodSecurity(ms)
	return ms
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	rdb := container.GetRedis()

	repos := BuildRepositories(cfg, logger)
	svc := BuildServices(cfg, repos, logger)
	ms := methodSecurity(cfg)
	status := statusPolicy(cfg)
	authn := middleware.Authenticate(svc.Auth, logger)

	if cfg.DebugMetricsEnabled {
		r.Use(modules.CountRequests())
		r.Add(modules.NewDebugModule(rdb))
	}
	// Soft per-IP ceiling for every API route.
	r.Use(middleware.RateLimit(rdb, 600, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP()))

	r.Add(
		modules.NewAuthModule(handlers.NewAuthHandler(svc.Auth, cfg.CookieDomain, cfg.CookieSecure, logger), authn, rdb),
		modules.NewUserModule(handlers.NewUserHandler(svc.Requests, logger), ms, authn),
		modules.NewCRUDModule(application.ResourcePersons, handlers.NewCRUDHandler[entity.Person, dto.PersonDTO](svc.Persons, logger, status), ms, authn),
		modules.NewCRUDModule(application.ResourceEvents, handlers.NewCRUDHandler[entity.Event, dto.EventDTO](svc.Events, logger, status), ms, authn),
		modules.NewCRUDModule(application.ResourceEntries, handlers.NewCRUDHandler[entity.Entry, dto.EntryDTO](svc.Entries, logger, status), ms, authn),
		&modules.SearchModule{
			Search:   handlers.NewSearchHandler(svc.Search, logger, status),
			Photo:    handlers.NewPhotoHandler(svc.Photos, logger, status),
			Security: ms,
			Authn:    authn,
			Redis:    rdb,
		},
	)

	if pool := container.GetPGPool(); pool != nil {
		r.Check("postgres", func(ctx context.Context) error { return pool.Ping(ctx) })
	}
	if rdb != nil {
		r.Check("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
}

// NewEngine builds a gin engine with recovery, request ids and real client IPs.
func NewEngine(cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	e := gin.New()
	e.Use(gin.Recovery(), middleware.RequestIDMiddleware(), middleware.RealIP())
	if cfg.HTTPLogEnabled {
		e.Use(gin.Logger())
	}
	return e
}
