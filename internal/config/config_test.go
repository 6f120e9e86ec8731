package config

import (
	"os"
	"path/filepath"
	"testing"

	"slotnik/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validConfig = `
app:
  name: slotnik
  environment: test
database:
  path: /tmp/slotnik-test.db
businesses:
  - id: 1
    slug: studio
    name: Studio
    services:
      - id: 10
        name: Consultation
        duration_min: 60
        is_active: true
    windows:
      - weekday: 1
        start: "09:00"
        end: "17:00"
        active: true
    exceptions:
      - "2025-05-01"
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, models.DefaultSlotStepMinutes, cfg.Scheduling.SlotStepMinutes)
	assert.Equal(t, models.DefaultCodeTTL, cfg.Scheduling.CodeTTLSeconds)
	assert.Equal(t, models.DefaultResendCooldown, cfg.Scheduling.ResendCooldownSeconds)
	assert.Equal(t, models.DefaultMaxAdvanceDays, cfg.Scheduling.MaxAdvanceDays)
	assert.Equal(t, "exports", cfg.Exports.Path)
	assert.Equal(t, 5*60, int(cfg.Scheduling.CodeTTL().Seconds()))
	assert.Equal(t, 60, int(cfg.Scheduling.ResendCooldown().Seconds()))
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("SLOTNIK_DB_PATH", "/tmp/expanded.db")
	cfg, err := Load(writeConfig(t, `
database:
  path: ${SLOTNIK_DB_PATH}
`))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/expanded.db", cfg.Database.Path)
}

func TestLoad_MissingDatabasePath(t *testing.T) {
	_, err := Load(writeConfig(t, `
app:
  name: slotnik
`))
	assert.Error(t, err)
}

func TestValidateBusinesses(t *testing.T) {
	base := func() []models.Business {
		return []models.Business{{
			ID:   1,
			Slug: "studio",
			Services: []models.Service{
				{ID: 10, Name: "Consultation", DurationMin: 60, IsActive: true},
			},
			Windows: []models.TimeWindow{
				{Weekday: 1, Start: "09:00", End: "17:00", Active: true},
			},
		}}
	}

	assert.NoError(t, ValidateBusinesses(base()))

	t.Run("duplicate slug", func(t *testing.T) {
		bs := append(base(), models.Business{ID: 2, Slug: "studio"})
		assert.Error(t, ValidateBusinesses(bs))
	})

	t.Run("zero service duration", func(t *testing.T) {
		bs := base()
		bs[0].Services[0].DurationMin = 0
		assert.Error(t, ValidateBusinesses(bs))
	})

	t.Run("window start after end", func(t *testing.T) {
		bs := base()
		bs[0].Windows[0].Start = "18:00"
		assert.Error(t, ValidateBusinesses(bs))
	})

	t.Run("bad weekday", func(t *testing.T) {
		bs := base()
		bs[0].Windows[0].Weekday = 7
		assert.Error(t, ValidateBusinesses(bs))
	})

	t.Run("bad exception date", func(t *testing.T) {
		bs := base()
		bs[0].Exceptions = []string{"01.05.2025"}
		assert.Error(t, ValidateBusinesses(bs))
	})

	t.Run("duplicate service id", func(t *testing.T) {
		bs := base()
		bs[0].Services = append(bs[0].Services, models.Service{ID: 10, Name: "Dup", DurationMin: 30})
		assert.Error(t, ValidateBusinesses(bs))
	})
}
