package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkmail_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkmail_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"host"})
	SMTPConnectFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkmail_smtp_connect_failure_total",
		Help: "Total number of SMTP connections that failed during dial, handshake or authentication",
	}, []string{"host"})

	// Contacts that never reached the SMTP server, by reason
	// (missing_email, render).
	ContactsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkmail_contacts_skipped_total",
		Help: "Total number of contacts that were not sent to",
	}, []string{"reason"})

	// Run metrics
	RunDurationSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bulkmail_run_duration_seconds",
		Help: "Duration of the last run",
	})
	RunLastSuccessTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bulkmail_run_last_success_timestamp_seconds",
		Help: "Unix time of the last run that finished without a fatal error",
	})
)

func init() {
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(SMTPConnectFailure)
	prometheus.MustRegister(ContactsSkipped)
	prometheus.MustRegister(RunDurationSeconds)
	prometheus.MustRegister(RunLastSuccessTimestamp)
}

// WriteTextfile writes all registered metrics to path in the text exposition
// format. The file is replaced atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", path)
	}
	return nil
}
