package campaign

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/telekom/bulkmail/pkg/apperrors"
	"github.com/telekom/bulkmail/pkg/config"
	"github.com/telekom/bulkmail/pkg/contacts"
	"github.com/telekom/bulkmail/pkg/mail"
	"github.com/telekom/bulkmail/pkg/metrics"
	"github.com/telekom/bulkmail/pkg/render"
)

// Options control a run independently of where contacts come from.
type Options struct {
	EmailField string
	// Limit caps the number of contacts processed; 0 means all.
	Limit    int
	TestMode bool
	// MetricsFile, when set, receives the Prometheus counters after the run.
	MetricsFile string
}

type Runner struct {
	source     contacts.Source
	renderer   *render.Renderer
	dispatcher *mail.Dispatcher
	opts       Options
	log        *zap.SugaredLogger
	now        func() time.Time
}

func NewRunner(source contacts.Source, renderer *render.Renderer, dispatcher *mail.Dispatcher, opts Options, log *zap.SugaredLogger) *Runner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.EmailField == "" {
		opts.EmailField = contacts.DefaultEmailField
	}
	return &Runner{
		source:     source,
		renderer:   renderer,
		dispatcher: dispatcher,
		opts:       opts,
		log:        log.Named("campaign"),
		now:        time.Now,
	}
}

// New wires a Runner from a validated configuration: the contact source, the
// templates (read and parsed once) and the SMTP dispatcher. Nothing is
// opened or dialled yet.
func New(cfg *config.Config, log *zap.SugaredLogger) (*Runner, error) {
	source, err := contacts.New(cfg.Source)
	if err != nil {
		return nil, err
	}
	renderer, err := NewRenderer(cfg)
	if err != nil {
		return nil, err
	}
	dialer := mail.NewDialer(mail.SMTPSettings{
		Host:               cfg.SMTP.Host,
		Port:               cfg.SMTP.Port,
		Username:           cfg.SMTP.Username,
		Password:           cfg.SMTP.Password,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
	})
	dispatcher := mail.NewDispatcher(dialer, mail.Options{
		From: mail.Identity{
			Address: cfg.Sender.Address,
			Name:    cfg.Sender.Name,
			ReplyTo: cfg.Sender.ReplyTo,
		},
		Delay: cfg.Delay(),
		Host:  cfg.SMTP.Host,
	}, log)

	return NewRunner(source, renderer, dispatcher, Options{
		EmailField:  cfg.Source.EmailField,
		Limit:       cfg.Limit(),
		TestMode:    cfg.Delivery.TestMode,
		MetricsFile: cfg.MetricsFile,
	}, log), nil
}

// NewRenderer loads the configured template files and parses them.
func NewRenderer(cfg *config.Config) (*render.Renderer, error) {
	html, err := render.LoadFile(cfg.Template.HTMLPath, cfg.Source.Encoding)
	if err != nil {
		return nil, err
	}
	var text string
	if cfg.Template.TextPath != "" {
		if text, err = render.LoadFile(cfg.Template.TextPath, cfg.Source.Encoding); err != nil {
			return nil, err
		}
	}
	return render.New(render.Templates{
		Subject: cfg.Template.Subject,
		HTML:    html,
		Text:    text,
	}, render.Options{Strict: cfg.Template.Strict})
}

// Run sends one message per contact over a single SMTP session.
//
// A failure that concerns one contact (missing address, render error, a
// rejected message) is recorded in the report and the run goes on. Source
// and connection errors abort the run; so does cancelling ctx. The report is
// returned in every case.
func (r *Runner) Run(ctx context.Context) (report *Report, err error) {
	report = newReport(r.source.Describe(), r.opts.TestMode, r.now())
	log := r.log.With("runID", report.RunID)
	defer func() {
		report.finish(r.now())
		r.recordMetrics(log, report, err)
		log.Infow("Run finished", "sent", report.Sent, "failed", report.Failed, "duration", report.Duration)
	}()

	if r.opts.TestMode {
		log.Infow("Test mode enabled", "limit", r.opts.Limit)
	}
	log.Infow("Starting run", "source", report.Source)

	it, err := r.source.Open(ctx)
	if err != nil {
		return report, err
	}
	it = contacts.Limit(it, r.opts.Limit)
	defer func() {
		if cerr := it.Close(); cerr != nil {
			log.Warnw("Failed to close contact source", "error", cerr)
		}
	}()

	if !it.Next() {
		if err := iteratorErr(it); err != nil {
			return report, err
		}
		log.Infow("No contacts to send to")
		return report, nil
	}

	session, err := r.dispatcher.Open(ctx)
	if err != nil {
		log.Errorw("Failed to open SMTP session", "error", err)
		return report, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warnw("Failed to close SMTP session", "error", cerr)
		}
	}()

	for index := 0; ; index++ {
		if err := r.deliver(ctx, log, session, index, it.Contact(), report); err != nil {
			return report, err
		}
		if !it.Next() {
			break
		}
	}
	if err := iteratorErr(it); err != nil {
		log.Errorw("Contact source failed mid-run", "error", err)
		return report, err
	}
	return report, nil
}

// deliver records exactly one outcome for c. It returns an error only when
// the run has to stop.
func (r *Runner) deliver(ctx context.Context, log *zap.SugaredLogger, session *mail.Session, index int, c contacts.Contact, report *Report) error {
	if err := ctx.Err(); err != nil {
		report.failed(index, c.Email(r.opts.EmailField), err)
		return err
	}

	recipient := c.Email(r.opts.EmailField)
	log = log.With("index", index, "recipient", recipient)
	if recipient == "" {
		metrics.ContactsSkipped.WithLabelValues("missing_email").Inc()
		err := apperrors.New(apperrors.KindSend, "missing email address")
		log.Warnw("Skipping contact", "error", err)
		report.failed(index, recipient, err)
		return nil
	}

	msg, err := r.renderer.Render(c)
	if err != nil {
		metrics.ContactsSkipped.WithLabelValues("render").Inc()
		log.Warnw("Failed to render message", "error", err)
		report.failed(index, recipient, err)
		return nil
	}

	err = session.Send(ctx, mail.Envelope{
		To:       recipient,
		Subject:  msg.Subject,
		HTMLBody: msg.HTMLBody,
		TextBody: msg.TextBody,
	})
	switch {
	case err == nil:
		log.Infow("Mail sent")
		report.sent(index, recipient)
		return nil
	case apperrors.Is(err, apperrors.KindSend):
		log.Errorw("Failed to send mail", "error", err)
		report.failed(index, recipient, err)
		return nil
	default:
		report.failed(index, recipient, err)
		return err
	}
}

func (r *Runner) recordMetrics(log *zap.SugaredLogger, report *Report, runErr error) {
	metrics.RunDurationSeconds.Set(report.Finished.Sub(report.Started).Seconds())
	if runErr == nil {
		metrics.RunLastSuccessTimestamp.Set(float64(report.Finished.Unix()))
	}
	if r.opts.MetricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(r.opts.MetricsFile); err != nil {
		log.Warnw("Failed to write metrics file", "path", r.opts.MetricsFile, "error", err)
	}
}

func iteratorErr(it contacts.Iterator) error {
	err := it.Err()
	if err == nil || apperrors.KindOf(err) != apperrors.KindUnknown {
		return err
	}
	return apperrors.Wrap(apperrors.KindSource, errors.WithStack(err), "read contacts")
}
