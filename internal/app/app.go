// Package app wires configuration, stores, the directory and the group
// services into a runnable HTTP application.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"groupman/internal/api"
	"groupman/internal/config"
	internaldb "groupman/internal/db"
	"groupman/internal/db/mongostore"
	"groupman/internal/db/repository"
	"groupman/internal/directory"
	"groupman/internal/domain"
	"groupman/internal/metrics"
	"groupman/internal/middleware"
	"groupman/internal/service/auditutil"
	"groupman/internal/service/group"
)

// Stores groups the record-store side of the application.
type Stores struct {
	Groups domain.GroupStore
	Audit  domain.AuditRepository
	// Counter counts stored groups for the metrics refresh.
	Counter metrics.Counter
	close   func(ctx context.Context) error
}

// Close releases the underlying connections.
func (s *Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Services groups the group services the API handler needs.
type Services struct {
	Federation *group.Federation
	Mutation   *group.MutationService
	Status     *group.StatusService
	Admin      *group.AdminService
}

// App holds the fully-wired application.
type App struct {
	Config    *config.Config
	Stores    *Stores
	Directory domain.Directory
	Services  Services
	Metrics   *metrics.GroupMetrics
	Handler   http.Handler
}

// New opens the configured record store and directory and wires every
// service, the metrics and the router.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	stores, err := OpenStores(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	settings := DirectorySettings(cfg.LDAP)
	if err := settings.Validate(); err != nil {
		_ = stores.Close(context.Background())
		return nil, fmt.Errorf("directory settings: %w", err)
	}
	dir := directory.New(settings, logger)

	validator, err := NewValidator(ctx, cfg.Auth)
	if err != nil {
		_ = stores.Close(context.Background())
		return nil, err
	}

	svcs := NewServices(cfg.Groups, stores, dir, logger)
	gm := metrics.New(logger,
		metrics.Source{Storage: cfg.Store.Driver, Counter: stores.Counter},
		metrics.Source{Storage: metrics.DirectoryStorage, Counter: dir},
	)
	handler := api.NewHandler(svcs.Federation, svcs.Mutation, svcs.Status, svcs.Admin, logger)

	return &App{
		Config:    cfg,
		Stores:    stores,
		Directory: dir,
		Services:  svcs,
		Metrics:   gm,
		Handler:   NewRouter(ctx, cfg, handler, validator, gm, logger),
	}, nil
}

// Close stops metrics and releases the stores.
func (a *App) Close(ctx context.Context) error {
	a.Metrics.Stop()
	return a.Stores.Close(ctx)
}

// NewServices wires the group services over the given gateways.
func NewServices(cfg config.GroupsConfig, stores *Stores, dir domain.Directory, logger *slog.Logger) Services {
	rec := auditutil.NewRecorder(stores.Audit, logger)
	fed := group.NewFederation(stores.Groups, dir, cfg.LocalRole, logger)
	return Services{
		Federation: fed,
		Mutation:   group.NewMutationService(fed, stores.Groups, cfg.MaxOwnedGroups, rec, logger),
		Status:     group.NewStatusService(stores.Groups, dir, cfg.MaxOwnedGroups, logger),
		Admin:      group.NewAdminService(fed, stores.Groups, stores.Audit, rec, logger),
	}
}

// OpenStores opens the record store and audit log for the configured driver.
// The SQLite store is migrated on open.
func OpenStores(ctx context.Context, cfg config.StoreConfig) (*Stores, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.MetaDBPath, 0)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		closeBoth := func(context.Context) error {
			return errors.Join(writeDB.Close(), readDB.Close())
		}
		if err := internaldb.RunMigrations(writeDB); err != nil {
			_ = closeBoth(ctx)
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return sqliteStores(writeDB, readDB, closeBoth), nil

	case config.DriverMongoDB:
		store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, err
		}
		audit, err := store.AuditLog(ctx)
		if err != nil {
			_ = store.Close(context.Background())
			return nil, err
		}
		return &Stores{Groups: store, Audit: audit, Counter: store, close: store.Close}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// sqliteStores serves mutations and reads from the write pool and the
// metrics counts from the read pool.
func sqliteStores(writeDB, readDB *sql.DB, closeFn func(context.Context) error) *Stores {
	return &Stores{
		Groups:  repository.NewGroupRepo(writeDB),
		Audit:   repository.NewAuditRepo(writeDB),
		Counter: repository.NewGroupRepo(readDB),
		close:   closeFn,
	}
}

// DirectorySettings maps the LDAP configuration onto gateway settings.
func DirectorySettings(c config.LDAPConfig) directory.Settings {
	return directory.Settings{
		URL:                       c.URL,
		BindDN:                    c.BindDN,
		BindPassword:              c.BindPassword,
		StartTLS:                  c.StartTLS,
		InsecureSkipVerify:        c.InsecureSkipVerify,
		Timeout:                   c.Timeout,
		GroupBaseDN:               c.GroupBaseDN,
		GroupScope:                c.GroupScope,
		GroupFindAllFilter:        c.GroupFindAllFilter,
		GroupFindOneFilter:        c.GroupFindOneFilter,
		GroupNameAttribute:        c.GroupNameAttribute,
		GroupDescriptionAttribute: c.GroupDescriptionAttribute,
		GroupMemberAttribute:      c.GroupMemberAttribute,
		MemberDN:                  c.MemberDN,
		MemberNameAttribute:       c.MemberNameAttribute,
		UserBaseDN:                c.UserBaseDN,
		UserRDN:                   c.UserRDN,
		AdminName:                 c.AdminName,
		IgnoredGroups:             c.IgnoredGroups,
	}
}

// NewValidator returns the OIDC validator when an issuer is configured and
// the HS256 validator otherwise.
func NewValidator(ctx context.Context, cfg config.AuthConfig) (middleware.JWTValidator, error) {
	if cfg.OIDCEnabled() {
		v, err := middleware.NewOIDCValidator(ctx, cfg.IssuerURL, cfg.Audience)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	v, err := middleware.NewHS256Validator(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	return v, nil
}
