package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMailMetricsIncrement(t *testing.T) {
	host := "test-mail"
	MailSendSuccess.WithLabelValues(host).Inc()
	if v := testutil.ToFloat64(MailSendSuccess.WithLabelValues(host)); v < 1 {
		t.Fatalf("expected MailSendSuccess >= 1, got %v", v)
	}
	MailSendFailure.WithLabelValues(host).Inc()
	if v := testutil.ToFloat64(MailSendFailure.WithLabelValues(host)); v < 1 {
		t.Fatalf("expected MailSendFailure >= 1, got %v", v)
	}
	SMTPConnectFailure.WithLabelValues(host).Inc()
	if v := testutil.ToFloat64(SMTPConnectFailure.WithLabelValues(host)); v < 1 {
		t.Fatalf("expected SMTPConnectFailure >= 1, got %v", v)
	}
}

func TestContactsSkippedLabels(t *testing.T) {
	ContactsSkipped.WithLabelValues("missing_email").Inc()
	ContactsSkipped.WithLabelValues("render").Add(2)
	if v := testutil.ToFloat64(ContactsSkipped.WithLabelValues("render")); v < 2 {
		t.Fatalf("expected render skips >= 2, got %v", v)
	}
}

func TestWriteTextfile(t *testing.T) {
	RunDurationSeconds.Set(12.5)
	MailSendSuccess.WithLabelValues("textfile-host").Inc()

	path := filepath.Join(t.TempDir(), "bulkmail.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	for _, want := range []string{
		"bulkmail_run_duration_seconds 12.5",
		`bulkmail_mail_send_success_total{host="textfile-host"} 1`,
	} {
		if !strings.Contains(string(content), want) {
			t.Errorf("textfile missing %q:\n%s", want, content)
		}
	}
}

func TestWriteTextfile_BadPath(t *testing.T) {
	if err := WriteTextfile(filepath.Join(t.TempDir(), "missing-dir", "x.prom")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
