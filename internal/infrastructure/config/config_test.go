package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "crm-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "crm", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 5, cfg.Event.MaxRetries)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "crm.events", cfg.Broker.Exchange)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.True(t, cfg.Event.ProcessorEnabled)
	assert.Positive(t, cfg.Report.CacheTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CRM_APP_PORT", "9000")
	t.Setenv("CRM_DATABASE_HOST", "db.internal")
	t.Setenv("CRM_DATABASE_MAX_OPEN_CONNS", "50")
	t.Setenv("CRM_REDIS_ENABLED", "true")
	t.Setenv("CRM_BROKER_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Broker.Enabled)
}

func TestLoad_ProductionSafeguards(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CRM_APP_ENV", "production")
	t.Setenv("CRM_JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:       AppConfig{Env: "production"},
			Database:  DatabaseConfig{MaxOpenConns: 10, MaxIdleConns: 2, Password: "pw", SSLMode: "require"},
			JWT:       JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
			Telemetry: TelemetryConfig{SamplingRatio: 0.5},
		}
	}
	require.NoError(t, valid().validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"idle above open", func(c *Config) { c.Database.MaxIdleConns = 20 }},
		{"sampling out of range", func(c *Config) { c.Telemetry.SamplingRatio = 2 }},
		{"wildcard cors", func(c *Config) { c.HTTP.CORSAllowOrigins = []string{"*"} }},
		{"open swagger", func(c *Config) { c.Swagger.Enabled = true }},
		{"ssl disabled", func(c *Config) { c.Database.SSLMode = "disable" }},
		{"storage without bucket", func(c *Config) { c.Storage.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.validate())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "crm", Password: "p@ss word", DBName: "crm", SSLMode: "disable"}
	assert.Equal(t, "postgres://crm:p%40ss%20word@db:5432/crm?sslmode=disable", d.DSN())
}
