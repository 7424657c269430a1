// Package config loads ledger settings from defaults, an optional config
// file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMemory = "memory"
	StoreTables = "tables"
	StoreMongo  = "mongo"

	LockMemory = "memory"
	LockRedis  = "redis"
)

type Config struct {
	Port    string
	Store   StoreConfig
	Lock    LockConfig
	Blob    BlobConfig
	Queue   QueueConfig
	Email   EmailConfig
	Logging LoggingConfig
}

type StoreConfig struct {
	Backend       string
	TableURL      string
	TablePrefix   string
	MongoURI      string
	MongoDatabase string
}

type LockConfig struct {
	Backend    string
	RedisAddr  string
	Wait       time.Duration
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

type BlobConfig struct {
	URL       string
	Container string
}

type QueueConfig struct {
	URL  string
	Name string
}

type EmailConfig struct {
	Endpoint string
	Sender   string
	// Recipient may hold several addresses separated by commas.
	Recipient string
}

// Recipients splits Recipient into trimmed, non-empty addresses.
func (e EmailConfig) Recipients() []string {
	var out []string
	for _, r := range strings.Split(e.Recipient, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

type LoggingConfig struct {
	Level  string
	Format string
}

// hostEnv maps keys to the plain variable names the Functions host and
// local.settings.json use.
var hostEnv = map[string]string{
	"port":            "FUNCTIONS_CUSTOMHANDLER_PORT",
	"store.table_url": "TABLE_SERVICE_URL",
	"blob.url":        "BLOB_SERVICE_URL",
	"queue.url":       "QUEUE_SERVICE_URL",
	"email.endpoint":  "COMMUNICATION_SERVICES_ENDPOINT",
	"email.sender":    "SENDER_EMAIL",
	"email.recipient": "USER_EMAIL",
	"store.mongo_uri": "MONGODB_URI",
	"lock.redis_addr": "REDIS_ADDR",
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("store.backend", StoreMemory)
	v.SetDefault("store.table_prefix", "ledger")
	v.SetDefault("store.mongo_database", "ledger")
	v.SetDefault("lock.backend", LockMemory)
	v.SetDefault("lock.wait", 5*time.Second)
	v.SetDefault("lock.expiry", 10*time.Second)
	v.SetDefault("lock.tries", 3)
	v.SetDefault("lock.retry_delay", 500*time.Millisecond)
	v.SetDefault("blob.container", "ledger-imports")
	v.SetDefault("queue.name", "import-queue")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load reads configuration into a Config. A .env file in the working
// directory is loaded first when present. cfgFile names an explicit config
// file; when empty, ledger.yaml is looked up in the working directory.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range hostEnv {
		if err := v.BindEnv(key, "LEDGER_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("ledger")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{
		Port: v.GetString("port"),
		Store: StoreConfig{
			Backend:       strings.ToLower(v.GetString("store.backend")),
			TableURL:      v.GetString("store.table_url"),
			TablePrefix:   v.GetString("store.table_prefix"),
			MongoURI:      v.GetString("store.mongo_uri"),
			MongoDatabase: v.GetString("store.mongo_database"),
		},
		Lock: LockConfig{
			Backend:    strings.ToLower(v.GetString("lock.backend")),
			RedisAddr:  v.GetString("lock.redis_addr"),
			Wait:       v.GetDuration("lock.wait"),
			Expiry:     v.GetDuration("lock.expiry"),
			Tries:      v.GetInt("lock.tries"),
			RetryDelay: v.GetDuration("lock.retry_delay"),
		},
		Blob: BlobConfig{
			URL:       v.GetString("blob.url"),
			Container: v.GetString("blob.container"),
		},
		Queue: QueueConfig{
			URL:  v.GetString("queue.url"),
			Name: v.GetString("queue.name"),
		},
		Email: EmailConfig{
			Endpoint:  v.GetString("email.endpoint"),
			Sender:    v.GetString("email.sender"),
			Recipient: v.GetString("email.recipient"),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(v.GetString("logging.level")),
			Format: strings.ToLower(v.GetString("logging.format")),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected backends are known and have what they
// need to connect.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreTables:
		if c.Store.TableURL == "" {
			return errors.New("store.table_url is required for the tables backend")
		}
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return errors.New("store.mongo_uri is required for the mongo backend")
		}
		if c.Store.MongoDatabase == "" {
			return errors.New("store.mongo_database is required for the mongo backend")
		}
	default:
		return fmt.Errorf("invalid store backend: %s", c.Store.Backend)
	}

	switch c.Lock.Backend {
	case LockMemory:
	case LockRedis:
		if c.Lock.RedisAddr == "" {
			return errors.New("lock.redis_addr is required for the redis backend")
		}
		if c.Lock.Expiry <= 0 || c.Lock.Tries <= 0 {
			return fmt.Errorf("invalid redis lock tuning: expiry %s, tries %d", c.Lock.Expiry, c.Lock.Tries)
		}
	default:
		return fmt.Errorf("invalid lock backend: %s", c.Lock.Backend)
	}

	if c.Lock.Wait < 0 {
		return fmt.Errorf("invalid lock wait: %s", c.Lock.Wait)
	}
	return nil
}
