package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// ==========================
// Defaults
// ==========================

func TestDefault_UsesBuiltInRules(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultRules(), cfg.Rules)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, validateConfig(cfg))
}

func TestDefaultRules_Valid(t *testing.T) {
	rules := DefaultRules()
	require.NoError(t, rules.Validate())

	assert.Equal(t, []string{"price", "competition", "timing"}, []string{
		rules.Coaching.LostReasons[0].Keyword,
		rules.Coaching.LostReasons[1].Keyword,
		rules.Coaching.LostReasons[2].Keyword,
	})
	assert.Equal(t, "lead", rules.PipelineStages[0])
	assert.True(t, rules.RiskFactors.CompetitorMentioned)
}

// ==========================
// LoadFromFile
// ==========================

func TestLoadFromFile_PartialRulesKeepDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
rules:
  quotation:
    validity: 14 days
  pipeline_stages: [lead, won]
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "14 days", cfg.Rules.Quotation.Validity)
	assert.Equal(t, []string{"lead", "won"}, cfg.Rules.PipelineStages)
	assert.Equal(t, 100000.0, cfg.Rules.Quotation.EnterpriseThreshold)
	assert.Equal(t, DefaultRules().FollowupTemplates, cfg.Rules.FollowupTemplates)
	assert.True(t, cfg.Rules.RiskFactors.CompetitorMentioned)
}

func TestLoadFromFile_CompetitorFlagCanBeDisabled(t *testing.T) {
	path := writeConfig(t, `
rules:
  risk_factors:
    competitor_mentioned: false
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.False(t, cfg.Rules.RiskFactors.CompetitorMentioned)
	assert.Equal(t, 14, cfg.Rules.RiskFactors.InactiveDays)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "localhost:6390")
	path := writeConfig(t, `
cache:
  enabled: true
database:
  redis:
    address: ${TEST_REDIS_ADDR}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:6390", cfg.Database.Redis.Address)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "camunda enabled without broker",
			body:    "camunda:\n  enabled: true\n",
			wantErr: "camunda.broker_address",
		},
		{
			name:    "cache enabled without redis",
			body:    "cache:\n  enabled: true\n",
			wantErr: "database.redis.address",
		},
		{
			name:    "duplicate stage",
			body:    "rules:\n  pipeline_stages: [lead, lead]\n",
			wantErr: "duplicate stage",
		},
		{
			name:    "negative weight",
			body:    "rules:\n  lead_scoring:\n    deal_size:\n      weight: -1\n      thresholds: {high: 10, medium: 5, low: 0}\n",
			wantErr: "must not be negative",
		},
		{
			name:    "missing general template",
			body:    "rules:\n  followup_templates:\n    site_visit:\n      subject: hi\n      template: hi\n",
			wantErr: "followup_templates.general",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// ==========================
// Worker helpers
// ==========================

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"sales-coach": {Enabled: false, MaxJobsActive: 2, Timeout: 500},
	}}

	assert.Equal(t, 2, GetWorkerConfig(cfg, "sales-coach").MaxJobsActive)
	assert.False(t, IsWorkerEnabled(cfg, "sales-coach"))
	assert.True(t, IsWorkerEnabled(cfg, "lead-qualifier"))
	assert.Equal(t, 10000, GetWorkerConfig(cfg, "lead-qualifier").Timeout)
}
