// Package server wires the stores, services and handlers into one HTTP
// handler.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/faciam-dev/guidecms/internal/admin"
	"github.com/faciam-dev/guidecms/internal/api/handler"
	"github.com/faciam-dev/guidecms/internal/auth"
	"github.com/faciam-dev/guidecms/internal/content"
	"github.com/faciam-dev/guidecms/internal/customfield/audit"
	"github.com/faciam-dev/guidecms/internal/customfield/ordering"
	"github.com/faciam-dev/guidecms/internal/customfield/projector"
	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/customfield/runtime/cache"
	"github.com/faciam-dev/guidecms/internal/logger"
	"github.com/faciam-dev/guidecms/internal/rbac"
	"github.com/faciam-dev/guidecms/internal/usecase/fields"
	pkgutil "github.com/faciam-dev/guidecms/pkg/util"
)

// App is the assembled server.
type App struct {
	Handler  http.Handler
	API      huma.API
	Fields   *registry.Store
	Static   *registry.StaticProvider
	Resolver *registry.Resolver
	Cache    *cache.Cache
	Orphans  *content.OrphanScanner
	Enforcer *casbin.Enforcer
}

// New builds the application on db.
func New(ctx context.Context, db *sql.DB, cfg Config) (*App, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	dialect := pkgutil.DialectFromDriver(cfg.Driver)

	static, err := registry.NewStaticProvider()
	if err != nil {
		return nil, err
	}
	store := &registry.Store{DB: db, Driver: cfg.Driver, TablePrefix: cfg.TablePrefix}
	resolver := &registry.Resolver{DB: store, Static: static}
	schemaCache := cache.New(resolver, cfg.SchemaCacheTTL, newZap(cfg.LogFormat))

	e, err := initEnforcer(ctx, db, dialect, cfg.TablePrefix)
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}
	checker := rbac.Checker{E: e}
	if err := initEvents(db, cfg); err != nil {
		return nil, err
	}

	meta := &content.MetaStore{DB: db, Driver: cfg.Driver, TablePrefix: cfg.TablePrefix}
	media := &content.MediaStore{DB: db, Dialect: dialect, TablePrefix: cfg.TablePrefix}
	pages := &content.PageStore{DB: db, Dialect: dialect, Driver: cfg.Driver, TablePrefix: cfg.TablePrefix}
	categories := &content.CategoryStore{DB: db, Dialect: dialect, TablePrefix: cfg.TablePrefix}
	proj := projector.New(meta, media)
	hook := &content.Hook{Schema: schemaCache, Projector: proj, Checker: checker}
	svc := &fields.Service{
		Store:     store,
		Mover:     &ordering.Resolver{Store: store},
		Audit:     &audit.Recorder{DB: db, Driver: cfg.Driver, TablePrefix: cfg.TablePrefix},
		Cache:     schemaCache,
		PostTypes: resolver,
		Checker:   checker,
	}

	jwt := auth.NewJWT(cfg.JWTSecret, cfg.TokenTTL)
	users := &auth.UserRepo{DB: db, Driver: cfg.Driver, TablePrefix: cfg.TablePrefix}
	authHandler := &auth.Handler{
		Repo:   users,
		JWT:    jwt,
		Secure: cfg.SecureCookies,
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-WP-Total", "X-WP-TotalPages"},
		AllowCredentials: true,
	}))
	r.Use(metricsMiddleware, auth.Middleware(jwt))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	var api huma.API
	r.Group(func(r chi.Router) {
		r.Use(rbac.Middleware(e))
		api = humachi.New(r, huma.DefaultConfig("Guide CMS API", "1.0.0"))
		auth.Register(api, authHandler)
		handler.RegisterTemplates(api, &handler.TemplatesHandler{Schema: schemaCache, PostTypes: resolver, Fields: svc, Projector: proj})
		handler.RegisterAudit(api, &handler.AuditHandler{DB: db, Dialect: dialect, TablePrefix: cfg.TablePrefix, Checker: checker})
		handler.RegisterRBAC(api, &handler.RBACHandler{Enforcer: e, Users: users, Checker: checker})
		handler.RegisterDocs(api, &handler.DocsHandler{Schema: schemaCache, PostTypes: resolver})
		handler.RegisterCatalog(api, &handler.CatalogHandler{Categories: categories, Media: media, PostTypes: resolver, Checker: checker})
		handler.RegisterPages(api, &handler.PagesHandler{
			Pages:      pages,
			Categories: categories,
			Schema:     schemaCache,
			Projector:  proj,
			Hook:       hook,
			Checker:    checker,
			PostTypes:  resolver,
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireLogin, rbac.Middleware(e))
		(&admin.Handler{
			Fields:    svc,
			Schema:    schemaCache,
			PostTypes: resolver,
			Projector: proj,
			Pages:     pages,
			Hook:      hook,
			Nonces:    auth.NewNonces(cfg.JWTSecret, cfg.NonceTTL),
			Auth:      authHandler,
		}).Routes(r)
	})
	r.Get("/admin", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/admin/field-templates", http.StatusFound)
	})

	return &App{
		Handler:  r,
		API:      api,
		Fields:   store,
		Static:   static,
		Resolver: resolver,
		Cache:    schemaCache,
		Orphans:  &content.OrphanScanner{Meta: meta, Schema: schemaCache},
		Enforcer: e,
	}, nil
}

// newZap returns the sugared logger handed to the schema cache.
func newZap(format string) *zap.SugaredLogger {
	var (
		l   *zap.Logger
		err error
	)
	if strings.EqualFold(format, "json") {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		logger.L.Warn("zap logger", "err", err)
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}
