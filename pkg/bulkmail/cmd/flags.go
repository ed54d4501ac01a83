package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/telekom/bulkmail/pkg/charset"
	"github.com/telekom/bulkmail/pkg/config"
)

// sourceFlags and templateFlags are shared by send and preview. A flag only
// overrides the config file when it was given on the command line.
type sourceFlags struct {
	kind       string
	path       string
	query      string
	emailField string
	encoding   string
	test       bool
	maxEmails  int
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.kind, "source", "", "Contact source: csv or sqlite")
	fs.StringVar(&f.path, "source-file", "", "CSV file or SQLite database with the contacts")
	fs.StringVar(&f.query, "query", "", "SQL query selecting the contacts (sqlite only)")
	fs.StringVar(&f.emailField, "email-field", config.DefaultEmailField, "Contact field holding the recipient address")
	fs.StringVar(&f.encoding, "encoding", charset.Default, "Encoding of the CSV and template files")
	fs.BoolVar(&f.test, "test", false, "Test mode: process at most 3 contacts")
	fs.IntVar(&f.maxEmails, "max-emails", 0, "Process at most this many contacts (0 = all)")
}

func (f *sourceFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("source") {
		cfg.Source.Kind = f.kind
	}
	if fs.Changed("source-file") {
		cfg.Source.Path = f.path
	}
	if fs.Changed("query") {
		cfg.Source.Query = f.query
	}
	if fs.Changed("email-field") {
		cfg.Source.EmailField = f.emailField
	}
	if fs.Changed("encoding") {
		cfg.Source.Encoding = f.encoding
	}
	if fs.Changed("test") {
		cfg.Delivery.TestMode = f.test
	}
	if fs.Changed("max-emails") {
		cfg.Delivery.MaxEmails = f.maxEmails
	}
}

type templateFlags struct {
	html    string
	text    string
	subject string
	strict  bool
}

func (f *templateFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.html, "template", "", "HTML body template file")
	fs.StringVar(&f.text, "text-template", "", "Plain text body template file (optional)")
	fs.StringVar(&f.subject, "subject", "", "Subject template, e.g. \"Hello {{ name }}\"")
	fs.BoolVar(&f.strict, "strict", false, "Fail a contact that lacks a field used by the templates")
}

func (f *templateFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("template") {
		cfg.Template.HTMLPath = f.html
	}
	if fs.Changed("text-template") {
		cfg.Template.TextPath = f.text
	}
	if fs.Changed("subject") {
		cfg.Template.Subject = f.subject
	}
	if fs.Changed("strict") {
		cfg.Template.Strict = f.strict
	}
}

type deliveryFlags struct {
	from        string
	fromName    string
	replyTo     string
	host        string
	port        int
	user        string
	password    string
	insecure    bool
	delay       float64
	metricsFile string
}

func (f *deliveryFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.from, "from", "", "Sender address")
	fs.StringVar(&f.fromName, "from-name", "", "Sender display name")
	fs.StringVar(&f.replyTo, "reply-to", "", "Reply-To address")
	fs.StringVar(&f.host, "smtp-server", "", "SMTP server host")
	fs.IntVar(&f.port, "smtp-port", config.DefaultSMTPPort, "SMTP server port (465 uses implicit TLS)")
	fs.StringVar(&f.user, "smtp-user", "", "SMTP username (env "+EnvSMTPUser+")")
	fs.StringVar(&f.password, "smtp-password", "", "SMTP password (env "+EnvSMTPPassword+")")
	fs.BoolVar(&f.insecure, "smtp-insecure-skip-verify", false, "Do not verify the SMTP server certificate")
	fs.Float64Var(&f.delay, "delay", 0, "Seconds to wait between two messages")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
}

func (f *deliveryFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("from") {
		cfg.Sender.Address = f.from
	}
	if fs.Changed("from-name") {
		cfg.Sender.Name = f.fromName
	}
	if fs.Changed("reply-to") {
		cfg.Sender.ReplyTo = f.replyTo
	}
	if fs.Changed("smtp-server") {
		cfg.SMTP.Host = f.host
	}
	if fs.Changed("smtp-port") {
		cfg.SMTP.Port = f.port
	}
	if fs.Changed("smtp-user") {
		cfg.SMTP.Username = f.user
	} else if v := os.Getenv(EnvSMTPUser); v != "" {
		cfg.SMTP.Username = v
	}
	if fs.Changed("smtp-password") {
		cfg.SMTP.Password = f.password
	} else if v := os.Getenv(EnvSMTPPassword); v != "" {
		cfg.SMTP.Password = v
	}
	if fs.Changed("smtp-insecure-skip-verify") {
		cfg.SMTP.InsecureSkipVerify = f.insecure
	}
	if fs.Changed("delay") {
		cfg.Delivery.DelaySeconds = f.delay
	}
	if fs.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
}
