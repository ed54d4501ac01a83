// Package mailtest provides an in-process SMTP server for tests.
//
// The server is an emersion/go-smtp server backed by memory. It accepts
// AUTH PLAIN when credentials are configured, can reject chosen recipients
// and records every message it receives.
package mailtest

import (
	"errors"
	"io"
	"mime"
	"net"
	netmail "net/mail"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

type Options struct {
	// Username and Password enable AUTH PLAIN. Clients presenting other
	// credentials get a 535 reply.
	Username string
	Password string
	// Reject, when set, is asked for every RCPT TO address; true answers 550.
	Reject func(rcpt string) bool
}

// Message is one accepted DATA payload.
type Message struct {
	From string
	To   []string
	Data string
}

// Header parses the message headers.
func (m Message) Header() (netmail.Header, error) {
	msg, err := netmail.ReadMessage(strings.NewReader(m.Data))
	if err != nil {
		return nil, err
	}
	return msg.Header, nil
}

// Subject returns the decoded Subject header, or "" if it cannot be read.
func (m Message) Subject() string {
	h, err := m.Header()
	if err != nil {
		return ""
	}
	s, err := new(mime.WordDecoder).DecodeHeader(h.Get("Subject"))
	if err != nil {
		return h.Get("Subject")
	}
	return s
}

var (
	errAuthFailed = &smtp.SMTPError{
		Code:         535,
		EnhancedCode: smtp.EnhancedCode{5, 7, 8},
		Message:      "Authentication credentials invalid",
	}
	errAuthRequired = &smtp.SMTPError{
		Code:         530,
		EnhancedCode: smtp.EnhancedCode{5, 7, 0},
		Message:      "Authentication required",
	}
)

type Server struct {
	opts Options
	ln   net.Listener
	srv  *smtp.Server
	done chan struct{}

	mu          sync.Mutex
	messages    []Message
	connections int
	authFailed  int
	logouts     int
	closing     bool
}

// NewServer starts a server on 127.0.0.1 and stops it when the test ends.
func NewServer(t testing.TB, opts Options) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	s := &Server{opts: opts, done: make(chan struct{})}
	s.ln = &countingListener{Listener: ln, s: s}

	s.srv = smtp.NewServer(s)
	s.srv.Domain = "localhost"
	s.srv.AllowInsecureAuth = true
	s.srv.ReadTimeout = 10 * time.Second
	s.srv.WriteTimeout = 10 * time.Second

	go func() {
		defer close(s.done)
		_ = s.srv.Serve(s.ln)
	}()
	t.Cleanup(s.Close)
	return s
}

// Host is always 127.0.0.1 so that net/smtp allows PLAIN auth without TLS.
func (s *Server) Host() string { return "127.0.0.1" }

func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host(), strconv.Itoa(s.Port()))
}

// Messages returns a copy of the accepted messages in arrival order.
func (s *Server) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Connections is the number of accepted TCP connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

// AuthFailures is the number of rejected AUTH attempts.
func (s *Server) AuthFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authFailed
}

// Logouts is the number of sessions the client ended, by QUIT or by
// dropping the connection. Sessions torn down by Close are not counted.
// The server notices a QUIT just after replying to it, so callers poll.
func (s *Server) Logouts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logouts
}

// Close stops the server and drops open connections. It is safe to call
// more than once.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return
	}
	s.closing = true
	s.mu.Unlock()
	_ = s.srv.Close()
	<-s.done
}

// NewSession implements smtp.Backend.
func (s *Server) NewSession(*smtp.Conn) (smtp.Session, error) {
	sess := &session{s: s, authenticated: s.opts.Username == ""}
	if s.opts.Username == "" {
		return sess, nil
	}
	return &authSession{session: sess}, nil
}

type countingListener struct {
	net.Listener
	s *Server
}

func (l *countingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err == nil {
		l.s.mu.Lock()
		l.s.connections++
		l.s.mu.Unlock()
	}
	return conn, err
}

type session struct {
	s             *Server
	authenticated bool
	current       Message
}

func (se *session) Mail(from string, _ *smtp.MailOptions) error {
	if !se.authenticated {
		return errAuthRequired
	}
	se.current = Message{From: from}
	return nil
}

func (se *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	if se.s.opts.Reject != nil && se.s.opts.Reject(to) {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "<" + to + ">: mailbox unavailable",
		}
	}
	se.current.To = append(se.current.To, to)
	return nil
}

func (se *session) Data(r io.Reader) error {
	if len(se.current.To) == 0 {
		return &smtp.SMTPError{
			Code:         503,
			EnhancedCode: smtp.EnhancedCode{5, 5, 1},
			Message:      "No valid recipients",
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	se.current.Data = string(data)
	se.s.mu.Lock()
	se.s.messages = append(se.s.messages, se.current)
	se.s.mu.Unlock()
	se.current = Message{}
	return nil
}

func (se *session) Reset() { se.current = Message{} }

func (se *session) Logout() error {
	se.s.mu.Lock()
	defer se.s.mu.Unlock()
	if !se.s.closing {
		se.s.logouts++
	}
	return nil
}

type authSession struct {
	*session
}

func (se *authSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (se *authSession) Auth(mech string) (sasl.Server, error) {
	if mech != sasl.Plain {
		return nil, errors.New("unsupported mechanism")
	}
	return sasl.NewPlainServer(func(_, username, password string) error {
		if username != se.s.opts.Username || password != se.s.opts.Password {
			se.s.mu.Lock()
			se.s.authFailed++
			se.s.mu.Unlock()
			return errAuthFailed
		}
		se.authenticated = true
		return nil
	}), nil
}
