package config

import (
	"fmt"
	"net/mail"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/telekom/bulkmail/pkg/apperrors"
	"github.com/telekom/bulkmail/pkg/charset"
)

const (
	DefaultSMTPPort   = 587
	DefaultEmailField = "email"
	DefaultLogLevel   = "info"

	// TestModeLimit is the number of contacts a test run is capped to.
	TestModeLimit = 3
)

type SourceConfig struct {
	// Kind is csv or sqlite.
	Kind string `yaml:"kind"`
	// Path is the CSV file or the SQLite database file.
	Path string `yaml:"path"`
	// Query overrides the default contacts query (sqlite only).
	Query      string `yaml:"query,omitempty"`
	EmailField string `yaml:"emailField,omitempty"`
	// Encoding of the CSV file and of the template files.
	Encoding string `yaml:"encoding,omitempty"`
}

type TemplateConfig struct {
	Subject  string `yaml:"subject"`
	HTMLPath string `yaml:"html"`
	TextPath string `yaml:"text,omitempty"`
	// Strict turns a placeholder without a matching contact field into a
	// per-contact error instead of substituting an empty string.
	Strict bool `yaml:"strict,omitempty"`
}

type SenderConfig struct {
	Address string `yaml:"address"`
	Name    string `yaml:"name,omitempty"`
	ReplyTo string `yaml:"replyTo,omitempty"`
}

type SMTPConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify,omitempty"`
}

type DeliveryConfig struct {
	// DelaySeconds is the pause between two sends.
	DelaySeconds float64 `yaml:"delaySeconds"`
	TestMode     bool    `yaml:"test"`
	// MaxEmails caps the number of contacts processed; 0 means no cap.
	MaxEmails int `yaml:"maxEmails,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Template TemplateConfig `yaml:"template"`
	Sender   SenderConfig   `yaml:"sender"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Logging  LoggingConfig  `yaml:"logging"`
	// MetricsFile, when set, receives the run's counters in Prometheus text
	// format so a node_exporter textfile collector can pick them up.
	MetricsFile string `yaml:"metricsFile,omitempty"`
}

func Default() Config {
	return Config{
		Source: SourceConfig{
			EmailField: DefaultEmailField,
			Encoding:   charset.Default,
		},
		SMTP: SMTPConfig{
			Port: DefaultSMTPPort,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// Load reads a YAML config file on top of Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, apperrors.New(apperrors.KindConfig, "config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.KindConfig, err, "read config file %s", path)
	}
	cfg := Default()
	if err := yaml.UnmarshalStrict(content, &cfg); err != nil {
		return nil, apperrors.Wrapf(apperrors.KindConfig, err, "parse config file %s", path)
	}
	return &cfg, nil
}

// Delay returns the pause between two sends.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.Delivery.DelaySeconds * float64(time.Second))
}

// Limit returns the maximum number of contacts to process, 0 for no limit.
// Test mode caps the run to TestModeLimit; a smaller MaxEmails still wins.
func (c *Config) Limit() int {
	limit := c.Delivery.MaxEmails
	if c.Delivery.TestMode && (limit <= 0 || limit > TestModeLimit) {
		limit = TestModeLimit
	}
	if limit < 0 {
		return 0
	}
	return limit
}

// Validate checks everything a send run needs.
func (c *Config) Validate() error {
	p := &problems{}
	c.validateSource(p)
	c.validateTemplate(p)

	if strings.TrimSpace(c.Sender.Address) == "" {
		p.missing("sender.address")
	} else if _, err := mail.ParseAddress(c.Sender.Address); err != nil {
		p.invalid("sender.address", c.Sender.Address)
	}
	if c.Sender.ReplyTo != "" {
		if _, err := mail.ParseAddress(c.Sender.ReplyTo); err != nil {
			p.invalid("sender.replyTo", c.Sender.ReplyTo)
		}
	}

	if strings.TrimSpace(c.SMTP.Host) == "" {
		p.missing("smtp.host")
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		p.invalid("smtp.port", fmt.Sprint(c.SMTP.Port))
	}
	if c.SMTP.Username == "" {
		p.missing("smtp.username")
	}
	if c.SMTP.Password == "" {
		p.missing("smtp.password")
	}

	if c.Delivery.DelaySeconds < 0 {
		p.invalid("delivery.delaySeconds", fmt.Sprint(c.Delivery.DelaySeconds))
	}
	if c.Delivery.MaxEmails < 0 {
		p.invalid("delivery.maxEmails", fmt.Sprint(c.Delivery.MaxEmails))
	}
	return p.err()
}

// ValidateForPreview checks only what rendering needs: the source and the
// templates. No SMTP settings are required.
func (c *Config) ValidateForPreview() error {
	p := &problems{}
	c.validateSource(p)
	c.validateTemplate(p)
	return p.err()
}

func (c *Config) validateSource(p *problems) {
	switch c.Source.Kind {
	case "":
		p.missing("source.kind")
	case "csv":
		if c.Source.Query != "" {
			p.invalid("source.query", "only supported with sqlite sources")
		}
	case "sqlite":
	default:
		p.invalid("source.kind", c.Source.Kind)
	}
	if strings.TrimSpace(c.Source.Path) == "" {
		p.missing("source.path")
	}
	if !charset.Valid(c.Source.Encoding) {
		p.invalid("source.encoding", c.Source.Encoding)
	}
}

func (c *Config) validateTemplate(p *problems) {
	if strings.TrimSpace(c.Template.HTMLPath) == "" {
		p.missing("template.html")
	}
	if strings.TrimSpace(c.Template.Subject) == "" {
		p.missing("template.subject")
	}
}

type problems struct {
	missingFields []string
	invalidFields []string
}

func (p *problems) missing(field string) {
	p.missingFields = append(p.missingFields, field)
}

func (p *problems) invalid(field, value string) {
	p.invalidFields = append(p.invalidFields, fmt.Sprintf("%s (%s)", field, value))
}

func (p *problems) err() error {
	var parts []string
	if len(p.missingFields) > 0 {
		parts = append(parts, "missing "+strings.Join(p.missingFields, ", "))
	}
	if len(p.invalidFields) > 0 {
		parts = append(parts, "invalid "+strings.Join(p.invalidFields, ", "))
	}
	if len(parts) == 0 {
		return nil
	}
	return apperrors.New(apperrors.KindConfig, "invalid configuration: "+strings.Join(parts, "; "))
}
