package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory so no stray .env or
// ledger.yaml is picked up.
func isolate(t *testing.T) string {
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, LockMemory, cfg.Lock.Backend)
	assert.Equal(t, 5*time.Second, cfg.Lock.Wait)
	assert.Equal(t, "ledger-imports", cfg.Blob.Container)
	assert.Equal(t, "import-queue", cfg.Queue.Name)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_HostVariables(t *testing.T) {
	isolate(t)
	t.Setenv("FUNCTIONS_CUSTOMHANDLER_PORT", "7071")
	t.Setenv("TABLE_SERVICE_URL", "http://127.0.0.1:10002/devstoreaccount1")
	t.Setenv("LEDGER_STORE_BACKEND", "Tables")
	t.Setenv("USER_EMAIL", "me@example.com, you@example.com")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "7071", cfg.Port)
	assert.Equal(t, StoreTables, cfg.Store.Backend)
	assert.Equal(t, "http://127.0.0.1:10002/devstoreaccount1", cfg.Store.TableURL)
	assert.Equal(t, []string{"me@example.com", "you@example.com"}, cfg.Email.Recipients())
}

func TestLoad_PrefixedVariableWins(t *testing.T) {
	isolate(t)
	t.Setenv("REDIS_ADDR", "host:1")
	t.Setenv("LEDGER_LOCK_REDIS_ADDR", "host:2")
	t.Setenv("LEDGER_LOCK_BACKEND", "redis")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "host:2", cfg.Lock.RedisAddr)
}

func TestLoad_ConfigFileAndDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ledger.yaml"), []byte(`
store:
  backend: mongo
  mongo_database: books
lock:
  wait: 2s
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MONGODB_URI=mongodb://localhost:27017\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("MONGODB_URI") })

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, StoreMongo, cfg.Store.Backend)
	assert.Equal(t, "books", cfg.Store.MongoDatabase)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Store.MongoURI)
	assert.Equal(t, 2*time.Second, cfg.Lock.Wait)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	dir := isolate(t)
	_, err := Load(viper.New(), filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Port:  "8080",
		Store: StoreConfig{Backend: StoreMemory},
		Lock:  LockConfig{Backend: LockMemory},
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no port", mutate: func(c *Config) { c.Port = "" }, wantErr: "port"},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Backend = "sqlite" }, wantErr: "invalid store backend"},
		{name: "tables without url", mutate: func(c *Config) { c.Store.Backend = StoreTables }, wantErr: "table_url"},
		{name: "mongo without uri", mutate: func(c *Config) { c.Store.Backend = StoreMongo }, wantErr: "mongo_uri"},
		{name: "unknown lock", mutate: func(c *Config) { c.Lock.Backend = "etcd" }, wantErr: "invalid lock backend"},
		{name: "redis without addr", mutate: func(c *Config) { c.Lock.Backend = LockRedis }, wantErr: "redis_addr"},
		{
			name: "redis without tries",
			mutate: func(c *Config) {
				c.Lock = LockConfig{Backend: LockRedis, RedisAddr: "x:6379", Expiry: time.Second}
			},
			wantErr: "tries",
		},
		{name: "negative wait", mutate: func(c *Config) { c.Lock.Wait = -time.Second }, wantErr: "lock wait"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
