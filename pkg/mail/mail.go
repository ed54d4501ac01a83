// SPDX-FileCopyrightText: 2024 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/telekom/bulkmail/pkg/apperrors"
	"github.com/telekom/bulkmail/pkg/metrics"
)

// SMTPSettings describes the relay to connect to.
type SMTPSettings struct {
	Host               string
	Port               int
	Username           string
	Password           string
	InsecureSkipVerify bool
}

// Identity is the sender of every message in a run.
type Identity struct {
	Address string
	Name    string
	ReplyTo string
}

// Envelope is one personalised message for one recipient. TextBody is
// optional; when set the message is sent as multipart/alternative.
type Envelope struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Dialer opens an authenticated SMTP connection. *gomail.Dialer satisfies it.
type Dialer interface {
	Dial() (gomail.SendCloser, error)
}

// NewDialer returns a gomail dialer for s. STARTTLS is used when the server
// offers it; port 465 uses implicit TLS.
func NewDialer(s SMTPSettings) *gomail.Dialer {
	d := gomail.NewDialer(s.Host, s.Port, s.Username, s.Password)
	d.TLSConfig = &tls.Config{ServerName: s.Host, InsecureSkipVerify: s.InsecureSkipVerify} //nolint:gosec // opt-in for internal relays
	return d
}

type Options struct {
	From Identity
	// Delay is the pause between two consecutive sends.
	Delay time.Duration
	// Host labels log lines and metrics.
	Host string
}

// Dispatcher sends messages through sessions opened with its Dialer.
type Dispatcher struct {
	dialer Dialer
	opts   Options
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewDispatcher(dialer Dialer, opts Options, log *zap.SugaredLogger) *Dispatcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Dispatcher{
		dialer: dialer,
		opts:   opts,
		log:    log.Named("mail"),
		now:    time.Now,
	}
}

// Open connects and authenticates. The returned Session owns the connection
// until Close. Failure is a ConnectionError.
func (d *Dispatcher) Open(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.log.Infow("Connecting to SMTP server", "host", d.opts.Host)
	sc, err := d.dial()
	if err != nil {
		return nil, err
	}
	d.log.Infow("SMTP session established", "host", d.opts.Host)
	return &Session{d: d, conn: sc}, nil
}

func (d *Dispatcher) dial() (gomail.SendCloser, error) {
	sc, err := d.dialer.Dial()
	if err != nil {
		metrics.SMTPConnectFailure.WithLabelValues(d.opts.Host).Inc()
		return nil, apperrors.Wrapf(apperrors.KindConnection, err, "connect to SMTP server %s", d.opts.Host)
	}
	return sc, nil
}

// Session is one SMTP connection. It is not safe for concurrent use.
type Session struct {
	d        *Dispatcher
	conn     gomail.SendCloser
	attempts int
	// dirty is set after a failed send: the SMTP transaction may still be
	// open, so the next send starts on a fresh connection.
	dirty bool
	// broken is set when a reconnect failed; the session has no connection.
	broken bool
	closed bool
}

// Send delivers one envelope. Every send but the first is preceded by the
// configured delay. A delivery failure is returned as a SendError and leaves
// the session usable; a ConnectionError or a context error means the run
// cannot continue.
func (s *Session) Send(ctx context.Context, env Envelope) error {
	if s.closed {
		return errors.New("mail session is closed")
	}
	if s.broken {
		return apperrors.Newf(apperrors.KindConnection, "SMTP session to %s was lost and could not be re-established", s.d.opts.Host)
	}
	to, err := netmail.ParseAddress(env.To)
	if err != nil {
		return apperrors.Wrapf(apperrors.KindSend, err, "invalid recipient address %q", env.To)
	}

	if s.attempts > 0 {
		if err := s.wait(ctx); err != nil {
			return err
		}
	}
	s.attempts++

	if s.dirty {
		s.d.log.Debugw("Reconnecting after failed send", "host", s.d.opts.Host)
		if s.conn != nil {
			_ = s.conn.Close()
			s.conn = nil
		}
		conn, err := s.d.dial()
		if err != nil {
			s.broken = true
			return err
		}
		s.conn = conn
		s.dirty = false
	}

	msg := s.d.compose(to.Address, env)
	if err := gomail.Send(s.conn, msg); err != nil {
		s.dirty = true
		metrics.MailSendFailure.WithLabelValues(s.d.opts.Host).Inc()
		return apperrors.Wrapf(apperrors.KindSend, err, "send mail to %s", to.Address)
	}
	metrics.MailSendSuccess.WithLabelValues(s.d.opts.Host).Inc()
	return nil
}

// Attempts is the number of messages handed to the SMTP server so far.
func (s *Session) Attempts() int { return s.attempts }

// Close ends the SMTP session. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if err != nil && !s.dirty {
		return errors.Wrap(err, "failed to close SMTP session")
	}
	s.d.log.Infow("SMTP session closed", "host", s.d.opts.Host)
	return nil
}

func (s *Session) wait(ctx context.Context) error {
	if s.d.opts.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.d.opts.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (d *Dispatcher) compose(to string, env Envelope) *gomail.Message {
	m := gomail.NewMessage()
	if d.opts.From.Name != "" {
		m.SetAddressHeader("From", d.opts.From.Address, d.opts.From.Name)
	} else {
		m.SetHeader("From", d.opts.From.Address)
	}
	m.SetHeader("To", to)
	if d.opts.From.ReplyTo != "" {
		m.SetHeader("Reply-To", d.opts.From.ReplyTo)
	}
	m.SetHeader("Subject", env.Subject)
	m.SetDateHeader("Date", d.now())
	m.SetHeader("Message-ID", messageID(d.opts.From.Address))

	if env.TextBody != "" {
		m.SetBody("text/plain", env.TextBody)
		m.AddAlternative("text/html", env.HTMLBody)
	} else {
		m.SetBody("text/html", env.HTMLBody)
	}
	return m
}

func messageID(sender string) string {
	domain := "localhost"
	if addr, err := netmail.ParseAddress(sender); err == nil {
		if i := strings.LastIndex(addr.Address, "@"); i >= 0 && i < len(addr.Address)-1 {
			domain = addr.Address[i+1:]
		}
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
