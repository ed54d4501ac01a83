package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/bulkmail/pkg/apperrors"
	"github.com/telekom/bulkmail/pkg/config"
)

func validConfig() config.Config {
	cfg := config.Default()
	cfg.Source.Kind = "csv"
	cfg.Source.Path = "contacts.csv"
	cfg.Template.HTMLPath = "mail.html"
	cfg.Template.Subject = "Hello {{ name }}"
	cfg.Sender.Address = "news@example.com"
	cfg.SMTP.Host = "smtp.example.com"
	cfg.SMTP.Username = "user"
	cfg.SMTP.Password = "secret"
	return cfg
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bulkmail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "email", cfg.Source.EmailField)
	assert.Equal(t, "utf-8", cfg.Source.Encoding)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Zero(t, cfg.Delivery.DelaySeconds)
	assert.False(t, cfg.Delivery.TestMode)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		expectError bool
		check       func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "full config",
			content: `
source:
  kind: sqlite
  path: contacts.db
  query: "SELECT name, email FROM people"
template:
  subject: "Hi {{ name }}"
  html: mail.html
  text: mail.txt
  strict: true
sender:
  address: news@example.com
  name: Newsletter
smtp:
  host: smtp.example.com
  port: 2525
  username: user
  password: secret
delivery:
  delaySeconds: 1.5
  test: true
logging:
  level: debug
  file: email_sender.log
metricsFile: /var/lib/node_exporter/bulkmail.prom
`,
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "sqlite", cfg.Source.Kind)
				assert.Equal(t, "SELECT name, email FROM people", cfg.Source.Query)
				assert.Equal(t, "email", cfg.Source.EmailField, "defaults survive partial files")
				assert.True(t, cfg.Template.Strict)
				assert.Equal(t, 2525, cfg.SMTP.Port)
				assert.Equal(t, 1500*time.Millisecond, cfg.Delay())
				assert.True(t, cfg.Delivery.TestMode)
				assert.Equal(t, "email_sender.log", cfg.Logging.File)
				assert.NoError(t, cfg.Validate())
			},
		},
		{
			name:    "empty file keeps defaults",
			content: "",
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, 587, cfg.SMTP.Port)
			},
		},
		{
			name:        "unknown key",
			content:     "smtp:\n  hots: typo\n",
			expectError: true,
		},
		{
			name:        "malformed yaml",
			content:     "source: [",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load(writeConfig(t, tt.content))
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, apperrors.Is(err, apperrors.KindConfig))
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConfig))

	_, err = config.Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(c *config.Config)
		wantContains []string
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{
			name:         "everything missing",
			mutate:       func(c *config.Config) { *c = config.Default() },
			wantContains: []string{"source.kind", "source.path", "template.html", "template.subject", "sender.address", "smtp.host", "smtp.username", "smtp.password"},
		},
		{
			name:         "unknown source kind",
			mutate:       func(c *config.Config) { c.Source.Kind = "xlsx" },
			wantContains: []string{"invalid source.kind (xlsx)"},
		},
		{
			name:         "query with csv",
			mutate:       func(c *config.Config) { c.Source.Query = "SELECT 1" },
			wantContains: []string{"source.query"},
		},
		{
			name:   "query with sqlite",
			mutate: func(c *config.Config) { c.Source.Kind = "sqlite"; c.Source.Query = "SELECT * FROM people" },
		},
		{
			name:         "bad port",
			mutate:       func(c *config.Config) { c.SMTP.Port = 70000 },
			wantContains: []string{"smtp.port (70000)"},
		},
		{
			name:         "bad sender",
			mutate:       func(c *config.Config) { c.Sender.Address = "not an address" },
			wantContains: []string{"sender.address"},
		},
		{
			name:         "bad reply-to",
			mutate:       func(c *config.Config) { c.Sender.ReplyTo = "@@" },
			wantContains: []string{"sender.replyTo"},
		},
		{
			name:         "negative delay",
			mutate:       func(c *config.Config) { c.Delivery.DelaySeconds = -1 },
			wantContains: []string{"delivery.delaySeconds"},
		},
		{
			name:         "negative max emails",
			mutate:       func(c *config.Config) { c.Delivery.MaxEmails = -2 },
			wantContains: []string{"delivery.maxEmails"},
		},
		{
			name:         "unknown encoding",
			mutate:       func(c *config.Config) { c.Source.Encoding = "klingon" },
			wantContains: []string{"source.encoding"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if len(tt.wantContains) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.KindConfig))
			for _, s := range tt.wantContains {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}

func TestValidateForPreview_IgnoresSMTP(t *testing.T) {
	cfg := validConfig()
	cfg.SMTP = config.SMTPConfig{}
	cfg.Sender = config.SenderConfig{}
	assert.NoError(t, cfg.ValidateForPreview())
	assert.Error(t, cfg.Validate())

	cfg.Template.HTMLPath = ""
	err := cfg.ValidateForPreview()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template.html")
}

func TestLimit(t *testing.T) {
	tests := []struct {
		name      string
		testMode  bool
		maxEmails int
		want      int
	}{
		{name: "no caps", want: 0},
		{name: "test mode", testMode: true, want: 3},
		{name: "max emails", maxEmails: 10, want: 10},
		{name: "test mode beats larger max", testMode: true, maxEmails: 10, want: 3},
		{name: "smaller max beats test mode", testMode: true, maxEmails: 2, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Delivery.TestMode = tt.testMode
			cfg.Delivery.MaxEmails = tt.maxEmails
			assert.Equal(t, tt.want, cfg.Limit())
		})
	}
}
