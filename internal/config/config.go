package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	PathEnv     = "ASKBOX_CONFIG"
	DefaultPath = "config.toml"

	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Host     Host     `toml:"host"`
	Database Database `toml:"database"`
	HCaptcha HCaptcha `toml:"hcaptcha"`
}

type Host struct {
	Bind            string   `toml:"bind"`
	Hostname        string   `toml:"hostname"`
	AdminToken      string   `toml:"admin_token"`
	TrustedProxies  []string `toml:"trusted-proxies"`
	GinMode         string   `toml:"gin-mode"`
	ShutdownTimeout Duration `toml:"shutdown-timeout"`
}

type Database struct {
	Driver         string `toml:"driver"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Database       string `toml:"database"`
	SSLMode        string `toml:"sslmode"`
	MaxConnections int    `toml:"max-connections"`
	SnapshotFile   string `toml:"snapshot-file"`
}

type HCaptcha struct {
	SiteKey  string   `toml:"site-key"`
	Secret   string   `toml:"secret"`
	Endpoint string   `toml:"endpoint"`
	Timeout  Duration `toml:"timeout"`
}

// Duration decodes "10s"-style strings.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

func LoadConfig() (Config, error) {
	return LoadConfigFromEnv(osEnv{})
}

// LoadConfigFromEnv reads the file named by ASKBOX_CONFIG, or config.toml.
func LoadConfigFromEnv(env Env) (Config, error) {
	path := env.Getenv(PathEnv)
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path)
}

func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Parse(data []byte) (Config, error) {
	cfg := Config{
		Host: Host{
			Bind:            "127.0.0.1:8080",
			GinMode:         "release",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Database: Database{
			Driver:         DriverPostgres,
			Port:           5432,
			SSLMode:        "disable",
			MaxConnections: 5,
		},
		HCaptcha: HCaptcha{
			Timeout: Duration(10 * time.Second),
		},
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Host.Hostname == "" {
		errs = append(errs, errors.New("host.hostname is required"))
	}
	if c.Host.AdminToken == "" {
		errs = append(errs, errors.New("host.admin_token is required"))
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		errs = append(errs, err)
	}
	if c.HCaptcha.SiteKey == "" {
		errs = append(errs, errors.New("hcaptcha.site-key is required"))
	}
	if c.HCaptcha.Secret == "" {
		errs = append(errs, errors.New("hcaptcha.secret is required"))
	}
	if c.HCaptcha.Timeout <= 0 {
		errs = append(errs, errors.New("hcaptcha.timeout must be positive"))
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Username == "" || c.Database.Host == "" || c.Database.Database == "" {
			errs = append(errs, errors.New("database.username, database.host and database.database are required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Errorf("invalid database.port %d", c.Database.Port))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max-connections must be positive"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	return errors.Join(errs...)
}

// TrustedProxyPrefixes accepts CIDRs or single addresses.
func (c Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.Host.TrustedProxies))
	var invalid []string
	for _, raw := range c.Host.TrustedProxies {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			invalid = append(invalid, strconv.Quote(raw))
			continue
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid host.trusted-proxies entries: %s", strings.Join(invalid, ", "))
	}
	return prefixes, nil
}

// DSN renders the connection settings as a postgres:// URL.
func (d Database) DSN() string {
	uri := &url.URL{
		Scheme: "postgres",
		Host:   d.Host + ":" + strconv.Itoa(d.Port),
		Path:   "/" + d.Database,
	}
	if d.Password != "" {
		uri.User = url.UserPassword(d.Username, d.Password)
	} else {
		uri.User = url.User(d.Username)
	}
	q := uri.Query()
	q.Set("sslmode", d.SSLMode)
	uri.RawQuery = q.Encode()
	return uri.String()
}
