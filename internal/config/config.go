// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DevJWTSecret is the HS256 secret used when none is configured outside production.
const DevJWTSecret = "dev-secret-change-in-production"

// Store drivers.
const (
	DriverSQLite  = "sqlite"
	DriverMongoDB = "mongodb"
)

// AuthConfig holds authentication and identity provider configuration.
type AuthConfig struct {
	IssuerURL  string `yaml:"issuer_url"`  // OIDC issuer; HS256 with JWTSecret when empty
	Audience   string `yaml:"audience"`    // expected audience (client id)
	JWTSecret  string `yaml:"jwt_secret"`  // HS256 shared secret for local/dev JWT auth
	NameClaim  string `yaml:"name_claim"`  // claim holding the user name (default: "preferred_username")
	RolesClaim string `yaml:"roles_claim"` // claim holding role names (default: "roles")
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != ""
}

// StoreConfig selects and locates the record store.
type StoreConfig struct {
	Driver          string `yaml:"driver"`       // sqlite (default) or mongodb
	MetaDBPath      string `yaml:"meta_db_path"` // SQLite file
	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`
}

// GroupsConfig holds the group policy knobs.
type GroupsConfig struct {
	// LocalRole gates directory lookups. Empty means always consult the directory.
	LocalRole string `yaml:"local_role"`
	// AdminRole guards the admin routes.
	AdminRole string `yaml:"admin_role"`
	// MaxOwnedGroups caps the groups one user may own; -1 disables the quota.
	MaxOwnedGroups int `yaml:"max_owned_groups"`
}

// LDAPConfig locates directory groups. An empty URL disables the directory.
type LDAPConfig struct {
	URL                       string        `yaml:"url"`
	BindDN                    string        `yaml:"bind_dn"`
	BindPassword              string        `yaml:"bind_password"`
	StartTLS                  bool          `yaml:"start_tls"`
	InsecureSkipVerify        bool          `yaml:"insecure_skip_verify"`
	Timeout                   time.Duration `yaml:"timeout"`
	GroupBaseDN               string        `yaml:"group_base_dn"`
	GroupScope                string        `yaml:"group_scope"`
	GroupFindAllFilter        string        `yaml:"group_find_all_filter"`
	GroupFindOneFilter        string        `yaml:"group_find_one_filter"`
	GroupNameAttribute        string        `yaml:"group_name_attribute"`
	GroupDescriptionAttribute string        `yaml:"group_description_attribute"`
	GroupMemberAttribute      string        `yaml:"group_member_attribute"`
	MemberDN                  bool          `yaml:"member_dn"`
	MemberNameAttribute       string        `yaml:"member_name_attribute"`
	UserBaseDN                string        `yaml:"user_base_dn"`
	UserRDN                   string        `yaml:"user_rdn"`
	AdminName                 string        `yaml:"admin_name"`
	IgnoredGroups             []string      `yaml:"ignored_groups"`
}

// Config holds the configuration of the group service.
type Config struct {
	ListenAddr string `yaml:"listen_addr"` // HTTP listen address (default ":8080")
	LogLevel   string `yaml:"log_level"`   // log level: debug, info, warn, error (default "info")
	Env        string `yaml:"env"`         // environment: "development" (default) or "production"

	// Rate limiting
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`   // sustained requests per second (default 100)
	RateLimitBurst int     `yaml:"rate_limit_burst"` // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"` // allowed origins (default: ["*"])

	// MetricsRefresh is the cron schedule of the group gauges.
	MetricsRefresh string `yaml:"metrics_refresh"`

	Auth   AuthConfig   `yaml:"auth"`
	Store  StoreConfig  `yaml:"store"`
	Groups GroupsConfig `yaml:"groups"`
	LDAP   LDAPConfig   `yaml:"ldap"`

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string `yaml:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ListenAddr:         ":8080",
		LogLevel:           "info",
		Env:                "development",
		RateLimitRPS:       100,
		RateLimitBurst:     200,
		CORSAllowedOrigins: []string{"*"},
		MetricsRefresh:     "@every 1m",
		Auth: AuthConfig{
			NameClaim:  "preferred_username",
			RolesClaim: "roles",
		},
		Store: StoreConfig{
			Driver:          DriverSQLite,
			MetaDBPath:      "groupman.sqlite",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "groupman",
			MongoCollection: "groupman",
		},
		Groups: GroupsConfig{
			LocalRole:      "ROLE_LOCAL_USER",
			AdminRole:      "ROLE_ADMIN",
			MaxOwnedGroups: -1,
		},
		LDAP: LDAPConfig{
			Timeout:                   10 * time.Second,
			GroupScope:                "one",
			GroupFindAllFilter:        "(objectClass=group)",
			GroupFindOneFilter:        "(&(objectClass=group)(cn={0}))",
			GroupNameAttribute:        "cn",
			GroupDescriptionAttribute: "description",
			GroupMemberAttribute:      "member",
			MemberDN:                  true,
			MemberNameAttribute:       "cn",
			UserRDN:                   "cn",
			AdminName:                 "Administrator",
		},
	}
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load builds the configuration from defaults, the optional YAML file at
// path and then environment variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func (c *Config) applyEnv() error {
	var errs []error
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Env, "ENV")
	setString(&c.MetricsRefresh, "METRICS_REFRESH")
	errs = append(errs,
		setFloat(&c.RateLimitRPS, "RATE_LIMIT_RPS"),
		setInt(&c.RateLimitBurst, "RATE_LIMIT_BURST"),
	)
	setList(&c.CORSAllowedOrigins, "CORS_ALLOWED_ORIGINS")

	setString(&c.Auth.IssuerURL, "AUTH_ISSUER_URL")
	setString(&c.Auth.Audience, "AUTH_AUDIENCE")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.NameClaim, "AUTH_NAME_CLAIM")
	setString(&c.Auth.RolesClaim, "AUTH_ROLES_CLAIM")

	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.Store.MetaDBPath, "META_DB_PATH")
	setString(&c.Store.MongoURI, "MONGO_URI")
	setString(&c.Store.MongoDatabase, "MONGO_DATABASE")
	setString(&c.Store.MongoCollection, "MONGO_COLLECTION")

	// An explicitly empty local role is meaningful.
	if v, ok := os.LookupEnv("GROUPMAN_LOCAL_ROLE"); ok {
		c.Groups.LocalRole = strings.TrimSpace(v)
	}
	setString(&c.Groups.AdminRole, "GROUPMAN_ADMIN_ROLE")
	errs = append(errs, setInt(&c.Groups.MaxOwnedGroups, "GROUPMAN_MAX_OWNED_GROUPS"))

	l := &c.LDAP
	setString(&l.URL, "LDAP_URL")
	setString(&l.BindDN, "LDAP_BIND_DN")
	setString(&l.BindPassword, "LDAP_BIND_PASSWORD")
	errs = append(errs,
		setBool(&l.StartTLS, "LDAP_START_TLS"),
		setBool(&l.InsecureSkipVerify, "LDAP_INSECURE_SKIP_VERIFY"),
		setDuration(&l.Timeout, "LDAP_TIMEOUT"),
		setBool(&l.MemberDN, "LDAP_MEMBER_DN"),
	)
	setString(&l.GroupBaseDN, "LDAP_GROUP_BASE_DN")
	setString(&l.GroupScope, "LDAP_GROUP_SCOPE")
	setString(&l.GroupFindAllFilter, "LDAP_GROUP_FIND_ALL_FILTER")
	setString(&l.GroupFindOneFilter, "LDAP_GROUP_FIND_ONE_FILTER")
	setString(&l.GroupNameAttribute, "LDAP_GROUP_NAME_ATTRIBUTE")
	setString(&l.GroupDescriptionAttribute, "LDAP_GROUP_DESCRIPTION_ATTRIBUTE")
	setString(&l.GroupMemberAttribute, "LDAP_GROUP_MEMBER_ATTRIBUTE")
	setString(&l.MemberNameAttribute, "LDAP_MEMBER_NAME_ATTRIBUTE")
	setString(&l.UserBaseDN, "LDAP_USER_BASE_DN")
	setString(&l.UserRDN, "LDAP_USER_RDN")
	setString(&l.AdminName, "LDAP_ADMIN_NAME")
	setList(&l.IgnoredGroups, "LDAP_IGNORED_GROUPS")

	return errors.Join(errs...)
}

// Validate checks consistency and fills secrets that have a development default.
// Production mode turns insecure defaults into errors.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.MetaDBPath == "" {
			return fmt.Errorf("META_DB_PATH is required for the sqlite store")
		}
	case DriverMongoDB:
		if c.Store.MongoURI == "" || c.Store.MongoDatabase == "" || c.Store.MongoCollection == "" {
			return fmt.Errorf("MONGO_URI, MONGO_DATABASE and MONGO_COLLECTION are required for the mongodb store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want %s or %s)", c.Store.Driver, DriverSQLite, DriverMongoDB)
	}
	if c.Groups.MaxOwnedGroups < -1 {
		return fmt.Errorf("GROUPMAN_MAX_OWNED_GROUPS must be -1 or greater, got %d", c.Groups.MaxOwnedGroups)
	}
	if c.Groups.AdminRole == "" {
		return fmt.Errorf("GROUPMAN_ADMIN_ROLE must not be empty")
	}
	if c.Auth.IssuerURL != "" && c.Auth.Audience == "" {
		return fmt.Errorf("AUTH_AUDIENCE is required when AUTH_ISSUER_URL is set")
	}

	if !c.Auth.OIDCEnabled() && c.Auth.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET or AUTH_ISSUER_URL must be set in production (ENV=production)")
		}
		c.Auth.JWTSecret = DevJWTSecret
		c.Warnings = append(c.Warnings, "JWT_SECRET not set, using insecure development secret")
	}
	if c.LDAP.URL == "" {
		c.Warnings = append(c.Warnings, "LDAP_URL not set, directory groups are disabled")
	}

	if c.IsProduction() {
		if c.Auth.JWTSecret == DevJWTSecret {
			return fmt.Errorf("the development JWT secret is not allowed in production (ENV=production)")
		}
		if len(c.CORSAllowedOrigins) == 1 && c.CORSAllowedOrigins[0] == "*" {
			return fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid number %q", key, v)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "":
		return nil
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	default:
		return fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", key, v)
	}
	*dst = d
	return nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
