// Package ingest feeds raw messages from the outside world into the pipeline.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/pipeline"
)

// Processor consumes one raw RFC 5322 message
type Processor interface {
	Process(ctx context.Context, raw []byte) (*pipeline.Result, error)
}

// SMTPServer accepts messages over SMTP and threads each delivered message
type SMTPServer struct {
	processor       Processor
	logger          *zap.Logger
	listenAddr      string
	domain          string
	maxMessageBytes int64

	server   *smtp.Server
	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	closing  bool
	inflight sync.WaitGroup
}

// NewSMTPServer creates a new SMTP ingester
func NewSMTPServer(
	processor Processor,
	logger *zap.Logger,
	listenAddr string,
	domain string,
	maxMessageBytes int64,
) *SMTPServer {
	return &SMTPServer{
		processor:       processor,
		logger:          logger,
		listenAddr:      listenAddr,
		domain:          domain,
		maxMessageBytes: maxMessageBytes,
	}
}

// Start starts the SMTP server
func (s *SMTPServer) Start() error {
	l, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listenAddr, err)
	}
	s.listener = l
	s.ctx, s.cancel = context.WithCancel(context.Background())

	// Create a new SMTP server
	s.server = smtp.NewServer(&smtpBackend{ingester: s})

	// Configure the server
	s.server.Domain = s.domain
	s.server.ReadTimeout = 30 * time.Second
	s.server.WriteTimeout = 30 * time.Second
	s.server.MaxMessageBytes = s.maxMessageBytes
	s.server.MaxRecipients = 50

	s.logger.Info("SMTP ingester starting", zap.String("address", l.Addr().String()))

	go func() {
		if err := s.server.Serve(l); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			s.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the address the server listens on, once started
func (s *SMTPServer) Addr() string {
	if s.listener == nil {
		return s.listenAddr
	}
	return s.listener.Addr().String()
}

// Stop stops the SMTP server and waits for messages being processed
func (s *SMTPServer) Stop() error {
	if s.server == nil {
		return nil
	}
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	err := s.server.Close()
	s.inflight.Wait()
	s.cancel()
	if err != nil && !errors.Is(err, smtp.ErrServerClosed) {
		return fmt.Errorf("failed to stop SMTP server: %w", err)
	}
	return nil
}

// Name returns the ingester name
func (s *SMTPServer) Name() string {
	return "smtp"
}

// errShuttingDown rejects deliveries that arrive once Stop has begun
var errShuttingDown = &smtp.SMTPError{
	Code:         421,
	EnhancedCode: smtp.EnhancedCode{4, 3, 2},
	Message:      "Service shutting down, try again later",
}

func (s *SMTPServer) deliver(raw []byte) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return errShuttingDown
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	res, err := s.processor.Process(s.ctx, raw)
	if err != nil {
		s.logger.Error("Failed to process delivered message", zap.Error(err))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Message could not be processed, try again later",
		}
	}

	s.logger.Debug("Delivered message threaded",
		zap.String("message_id", res.MessageID),
		zap.String("thread_id", res.ThreadID))
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	ingester *SMTPServer
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{ingester: b.ingester}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	ingester   *SMTPServer
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data reads the message and hands it to the pipeline
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.ingester.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	s.ingester.logger.Debug("Received message",
		zap.String("sender", s.sender),
		zap.Strings("recipients", s.recipients),
		zap.Int("size", len(raw)))

	return s.ingester.deliver(raw)
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
