package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/mixelka/codewatch/pkg/models"
)

const (
	defaultDialTimeout = 30 * time.Second
	logoutTimeout      = 2 * time.Second
)

// ProviderConfig configuration for IMAP connections
type ProviderConfig struct {
	Server      string // host:port, resolved from the address when empty
	DialTimeout time.Duration
}

// Provider opens IMAP sessions using the app password from settings
type Provider struct {
	config   ProviderConfig
	resolver *Resolver
	logger   *slog.Logger
}

// NewProvider creates a new IMAP provider
func NewProvider(cfg ProviderConfig, logger *slog.Logger) *Provider {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	return &Provider{
		config:   cfg,
		resolver: NewResolver(),
		logger:   logger.With("component", "imap"),
	}
}

// Open connects, logs in and selects INBOX
func (p *Provider) Open(ctx context.Context, settings *models.Settings) (*Mailbox, error) {
	if settings.GmailEmail == "" || settings.GmailAppPassword == "" {
		return nil, fmt.Errorf("mail address or app password is not configured")
	}

	server := p.config.Server
	if server == "" {
		var err error
		server, err = p.resolver.Resolve(ctx, settings.GmailEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IMAP server: %w", err)
		}
	}

	logger := p.logger.With("email", settings.GmailEmail)
	logger.Debug("connecting to IMAP server", "server", server)

	dialer := &tls.Dialer{NetDialer: &net.Dialer{Timeout: p.config.DialTimeout}}
	conn, err := dialer.DialContext(ctx, "tcp", server)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	imapClient, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create IMAP client: %w", err)
	}

	if err := imapClient.Login(settings.GmailEmail, settings.GmailAppPassword); err != nil {
		imapClient.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	if _, err := imapClient.Select("INBOX", false); err != nil {
		imapClient.Logout()
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	return newMailbox(imapClient, settings.GmailEmail, logger), nil
}

// Mailbox is one logged-in IMAP session with INBOX selected
type Mailbox struct {
	client *client.Client
	email  string
	logger *slog.Logger
	mu     sync.Mutex
	closed bool
}

// newMailbox wraps a logged-in client that already has INBOX selected
func newMailbox(c *client.Client, email string, logger *slog.Logger) *Mailbox {
	return &Mailbox{client: c, email: email, logger: logger}
}

// ListMessages returns UIDs matching the query, newest first
func (m *Mailbox) ListMessages(ctx context.Context, q models.SearchQuery, max int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	uids, err := m.client.UidSearch(BuildCriteria(q, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	slices.Sort(uids)
	slices.Reverse(uids)
	if max > 0 && len(uids) > max {
		uids = uids[:max]
	}

	ids := make([]string, len(uids))
	for i, uid := range uids {
		ids[i] = strconv.FormatUint(uint64(uid), 10)
	}
	return ids, nil
}

// GetMessage fetches a message without setting \Seen
func (m *Mailbox) GetMessage(ctx context.Context, id string) (*models.MailMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uid, err := parseUID(id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqSet, items, messages)
	}()

	var fetched *imap.Message
	for msg := range messages {
		if fetched == nil {
			fetched = msg
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	if fetched == nil {
		return nil, fmt.Errorf("message %s not found", id)
	}

	var subject string
	if fetched.Envelope != nil {
		subject = fetched.Envelope.Subject
	}

	body := fetched.GetBody(section)
	if body == nil {
		return &models.MailMessage{ID: id, Subject: subject}, nil
	}
	return parseMessage(id, subject, body)
}

// MarkProcessed adds the \Seen flag
func (m *Mailbox) MarkProcessed(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	uid, err := parseUID(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}

	if err := m.client.UidStore(seqSet, item, flags, nil); err != nil {
		return fmt.Errorf("failed to mark as read: %w", err)
	}
	return nil
}

// Profile checks the session is alive and returns the login address
func (m *Mailbox) Profile(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.client.Noop(); err != nil {
		return "", fmt.Errorf("failed to ping server: %w", err)
	}
	return m.email, nil
}

// Close logs out, terminating the connection if the server is slow to answer
func (m *Mailbox) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- m.client.Logout()
	}()

	select {
	case err := <-done:
		if err != nil && err != client.ErrAlreadyLoggedOut {
			return fmt.Errorf("failed to logout: %w", err)
		}
		return nil
	case <-time.After(logoutTimeout):
		m.logger.Warn("logout timed out, terminating connection")
		return m.client.Terminate()
	}
}

// parseMessage reads the inline text parts of an RFC 5322 message.
// A message with a single text part yields Body, otherwise Parts.
func parseMessage(id, subject string, r io.Reader) (*models.MailMessage, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail reader: %w", err)
	}
	defer mr.Close()

	if subject == "" {
		subject, _ = mr.Header.Subject()
	}
	msg := &models.MailMessage{ID: id, Subject: subject}

	var parts []models.MessagePart
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read part: %w", err)
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		if ct == "" {
			ct = "text/plain"
		}
		if !strings.HasPrefix(ct, "text/") {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read part body: %w", err)
		}
		parts = append(parts, models.MessagePart{
			MimeType: ct,
			Data:     string(data),
			Encoding: models.EncodingIdentity,
		})
	}

	if len(parts) == 1 {
		msg.Body = &parts[0]
	} else {
		msg.Parts = parts
	}
	return msg, nil
}

func parseUID(id string) (uint32, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("invalid message uid %q", id)
	}
	return uint32(uid), nil
}
