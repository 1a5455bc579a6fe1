package pgwire

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgpassfile"
	"github.com/jackc/pgservicefile"

	"github.com/coredrift/pgwire/pgwirelog"
	"github.com/coredrift/pgwire/sqltypes"
)

// DialFunc opens a network connection to a PostgreSQL backend; the default
// is (&net.Dialer{}).DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// SSLMode selects how a Session negotiates TLS during startup.
type SSLMode int

const (
	SSLDisable SSLMode = iota
	SSLRequire
	SSLVerifyFull
)

// ReplicationMode selects the replication variant requested at startup via
// the "replication" startup parameter.
type ReplicationMode int

const (
	ReplicationNone ReplicationMode = iota
	ReplicationPhysical
	ReplicationLogical
)

func (m ReplicationMode) startupValue() string {
	switch m {
	case ReplicationPhysical:
		return "true"
	case ReplicationLogical:
		return "database"
	default:
		return ""
	}
}

// Endpoint is the immutable identity of a server a Session connects to. Two
// Endpoints with equal fields are interchangeable for pool keying purposes.
type Endpoint struct {
	Host     string
	Port     uint16
	Database string
	User     string
	Password string
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s@%s:%d/%s", e.User, e.Host, e.Port, e.Database)
}

// Settings are the recognized per-connection options from spec §3, layered
// on top of an Endpoint.
type Settings struct {
	ApplicationName string
	ConnectTimeout  time.Duration
	QueryTimeout    time.Duration
	ClientEncoding  string // "UTF8" or "LATIN1"; empty means server default
	SSLMode         SSLMode
	ReplicationMode ReplicationMode
	TypeRegistry    *sqltypes.Registry

	// RuntimeParams are additional startup parameters sent verbatim, the way
	// pgconn.Config.RuntimeParams passes through search_path, TimeZone, etc.
	RuntimeParams map[string]string

	// Logger receives the observability events spec §6 names
	// (frame_sent, frame_received, error_response, notice, ready_for_query,
	// pool_lease, pool_return, pool_open, pool_close). Nil disables logging;
	// pgwirelog ships zerolog and zap adapters.
	Logger pgwirelog.Logger
}

// Config is everything needed to open a Session: an Endpoint, Settings, TLS
// material, and the dial function used to obtain the underlying transport.
type Config struct {
	Endpoint
	Settings

	TLSConfig *tls.Config
	DialFunc  DialFunc
}

// defaultRegistry is shared by Configs that do not set an explicit
// TypeRegistry; sqltypes.Registry has no mutable global state once
// constructed, so sharing it across Sessions is safe.
var defaultRegistry = sqltypes.NewRegistry()

// NewConfig returns a Config with library defaults: port 5432, SSL "prefer"
// collapsed to SSLRequire (this module never falls back to plaintext
// silently the way libpq's "prefer" does; disable it explicitly if that is
// not wanted), and the shared default type registry.
func NewConfig(endpoint Endpoint) *Config {
	if endpoint.Port == 0 {
		endpoint.Port = 5432
	}
	return &Config{
		Endpoint: endpoint,
		Settings: Settings{
			ClientEncoding: "UTF8",
			SSLMode:        SSLRequire,
			TypeRegistry:   defaultRegistry,
			RuntimeParams:  make(map[string]string),
		},
		DialFunc: (&net.Dialer{KeepAlive: 5 * time.Minute}).DialContext,
	}
}

// NetworkAddress converts host/port into the network and address net.Dial
// expects, treating a leading "/" host as a Unix domain socket directory.
func NetworkAddress(host string, port uint16) (network, address string) {
	if strings.HasPrefix(host, "/") {
		return "unix", filepath.Join(host, ".s.PGSQL.5432")
	}
	return "tcp", net.JoinHostPort(host, strconv.Itoa(int(port)))
}

// ParseConfig builds a Config from a "postgres://" URL or a keyword DSN
// ("host=... user=... dbname=..."), falling back to PG* environment
// variables for anything the string leaves unset. It is a minimal reader
// covering spec §3's recognized options only, grounded on pgconn's
// ParseConfig — full libpq multi-host/service-group behavior is out of
// scope.
func ParseConfig(connString string) (*Config, error) {
	settings := defaultDSNSettings()
	addEnvSettings(settings)

	if connString != "" {
		var err error
		if strings.HasPrefix(connString, "postgres://") || strings.HasPrefix(connString, "postgresql://") {
			err = addURLSettings(settings, connString)
		} else {
			addDSNSettings(settings, connString)
		}
		if err != nil {
			return nil, err
		}
	}

	if service := settings["service"]; service != "" {
		if err := addServiceSettings(settings, service); err != nil {
			return nil, err
		}
	}

	port, err := strconv.ParseUint(settings["port"], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("pgwire: invalid port %q: %w", settings["port"], err)
	}

	cfg := NewConfig(Endpoint{
		Host:     settings["host"],
		Port:     uint16(port),
		Database: settings["dbname"],
		User:     settings["user"],
		Password: settings["password"],
	})
	cfg.ApplicationName = settings["application_name"]

	switch settings["sslmode"] {
	case "disable":
		cfg.SSLMode = SSLDisable
	case "verify-ca", "verify-full":
		cfg.SSLMode = SSLVerifyFull
	default:
		cfg.SSLMode = SSLRequire
	}

	if s := settings["connect_timeout"]; s != "" {
		secs, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("pgwire: invalid connect_timeout %q: %w", s, err)
		}
		cfg.ConnectTimeout = time.Duration(secs) * time.Second
	}

	if s := settings["query_timeout"]; s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("pgwire: invalid query_timeout %q: %w", s, err)
		}
		cfg.QueryTimeout = d
	}

	if cfg.Password == "" {
		cfg.Password = lookupPgpass(cfg.Endpoint, settings["passfile"])
	}

	notRuntimeParams := map[string]struct{}{
		"host": {}, "port": {}, "dbname": {}, "user": {}, "password": {},
		"passfile": {}, "connect_timeout": {}, "query_timeout": {}, "sslmode": {},
		"application_name": {}, "service": {}, "servicefile": {},
	}
	for k, v := range settings {
		if _, skip := notRuntimeParams[k]; skip {
			continue
		}
		cfg.RuntimeParams[k] = v
	}

	return cfg, nil
}

func defaultDSNSettings() map[string]string {
	settings := map[string]string{"host": "localhost", "port": "5432"}
	if u, err := user.Current(); err == nil {
		settings["user"] = u.Username
		settings["passfile"] = filepath.Join(u.HomeDir, ".pgpass")
		settings["servicefile"] = filepath.Join(u.HomeDir, ".pg_service.conf")
	}
	return settings
}

func addEnvSettings(settings map[string]string) {
	nameMap := map[string]string{
		"PGHOST": "host", "PGPORT": "port", "PGDATABASE": "dbname",
		"PGUSER": "user", "PGPASSWORD": "password", "PGPASSFILE": "passfile",
		"PGSERVICE": "service", "PGSERVICEFILE": "servicefile",
		"PGSSLMODE": "sslmode", "PGAPPNAME": "application_name",
		"PGCONNECT_TIMEOUT": "connect_timeout",
	}
	for env, key := range nameMap {
		if v := os.Getenv(env); v != "" {
			settings[key] = v
		}
	}
}

func addURLSettings(settings map[string]string, connString string) error {
	u, err := url.Parse(connString)
	if err != nil {
		return fmt.Errorf("pgwire: parsing connection URL: %w", err)
	}
	if u.User != nil {
		settings["user"] = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			settings["password"] = pw
		}
	}
	if host, port, err := net.SplitHostPort(u.Host); err == nil {
		settings["host"], settings["port"] = host, port
	} else if u.Host != "" {
		settings["host"] = u.Host
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		settings["dbname"] = db
	}
	for k, v := range u.Query() {
		settings[k] = v[0]
	}
	return nil
}

var dsnRegexp = regexp.MustCompile(`([a-zA-Z_]+)=(?:'([^']*)'|(\S+))`)

func addDSNSettings(settings map[string]string, s string) {
	for _, m := range dsnRegexp.FindAllStringSubmatch(s, -1) {
		key, value := m[1], m[2]
		if value == "" {
			value = m[3]
		}
		settings[key] = value
	}
}

func addServiceSettings(settings map[string]string, service string) error {
	path := settings["servicefile"]
	f, err := pgservicefile.ReadServicefile(path)
	if err != nil {
		return fmt.Errorf("pgwire: reading service file %q: %w", path, err)
	}
	svc, err := f.GetService(service)
	if err != nil {
		return fmt.Errorf("pgwire: service %q not found in %q: %w", service, path, err)
	}
	for k, v := range svc.Settings {
		if _, present := settings[k]; !present {
			settings[k] = v
		}
	}
	return nil
}

func lookupPgpass(endpoint Endpoint, path string) string {
	if path == "" {
		return ""
	}
	passfile, err := pgpassfile.ReadPassfile(path)
	if err != nil {
		return ""
	}
	host := endpoint.Host
	if network, _ := NetworkAddress(endpoint.Host, endpoint.Port); network == "unix" {
		host = "localhost"
	}
	return passfile.FindPassword(host, strconv.Itoa(int(endpoint.Port)), endpoint.Database, endpoint.User)
}
