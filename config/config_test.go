package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SURVEY_STORE", "")
	t.Setenv("NOTIFICATION_STORE", "")
	t.Setenv("NOTIFICATION_DELIVERY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StoreMemory, cfg.Ledger.SurveyStore)
	assert.Equal(t, StoreMemory, cfg.Ledger.NotificationStore)
	assert.Equal(t, DeliveryDirect, cfg.Ledger.Delivery)
	assert.False(t, cfg.NeedsPostgres())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SURVEY_STORE", "Postgres")
	t.Setenv("NOTIFICATION_STORE", "redis")
	t.Setenv("NOTIFICATION_DELIVERY", "queue")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("AWS_S3_EXPORTS_BUCKET", "survey-exports")
	t.Setenv("AWS_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("REALTIME_REDIS_FANOUT", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, StorePostgres, cfg.Ledger.SurveyStore)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.Equal(t, "survey-exports", cfg.AWS.ExportsBucket)
	assert.Equal(t, "http://localhost:9000", cfg.AWS.Endpoint)
	assert.True(t, cfg.Realtime.RedisFanout)
	assert.True(t, cfg.NeedsPostgres())
	assert.True(t, cfg.NeedsRedis())
}

func TestLoad_RejectsUnknownModes(t *testing.T) {
	cases := map[string]map[string]string{
		"survey store":       {"SURVEY_STORE": "mongo"},
		"notification store": {"NOTIFICATION_STORE": "kafka"},
		"delivery":           {"NOTIFICATION_DELIVERY": "carrier-pigeon"},
		"queue without redis": {
			"NOTIFICATION_STORE":    "memory",
			"NOTIFICATION_DELIVERY": "queue",
		},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("SURVEY_STORE", "")
			t.Setenv("NOTIFICATION_STORE", "")
			t.Setenv("NOTIFICATION_DELIVERY", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "surveys", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/surveys?sslmode=disable", d.DSN())

	d.URL = "postgres://elsewhere/x"
	assert.Equal(t, "postgres://elsewhere/x", d.DSN())
}

func TestSplitTrim(t *testing.T) {
	assert.Nil(t, SplitTrim("", ","))
	assert.Equal(t, []string{"a", "b"}, SplitTrim(" a, ,b ,", ","))
}
