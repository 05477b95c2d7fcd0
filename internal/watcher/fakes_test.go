package watcher

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mixelka/codewatch/pkg/models"
)

// events is a shared, ordered log of side effects across fakes
type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(ev string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, ev)
}

func (e *events) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

type fakeStore struct {
	ev          *events
	mu          sync.Mutex
	settings    *models.Settings
	settingsErr error
	createErr   error
	codes       []*models.FoundCode
}

func (s *fakeStore) GetSettings(ctx context.Context) (*models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settingsErr != nil {
		return nil, s.settingsErr
	}
	cp := *s.settings
	return &cp, nil
}

func (s *fakeStore) CreateCode(ctx context.Context, code *models.FoundCode) error {
	s.ev.add("create:" + code.Code)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	code.ID = int64(len(s.codes) + 1)
	code.FoundAt = time.Now().UTC()
	s.codes = append(s.codes, code)
	return nil
}

func (s *fakeStore) storedCodes() []*models.FoundCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.FoundCode(nil), s.codes...)
}

type fakeMailbox struct {
	ev          *events
	mu          sync.Mutex
	ids         []string
	messages    map[string]*models.MailMessage
	getErr      map[string]error
	markErr     error
	profileErr  error
	marked      []string
	queries     []models.SearchQuery
	closed      int
	panicOnList bool
	beforeGet   func(id string)

	entered chan struct{} // signalled when ListMessages is reached
	release chan struct{} // ListMessages blocks until closed
}

func (m *fakeMailbox) ListMessages(ctx context.Context, q models.SearchQuery, max int) ([]string, error) {
	if m.entered != nil {
		select {
		case m.entered <- struct{}{}:
		default:
		}
	}
	if m.release != nil {
		<-m.release
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicOnList {
		panic("mailbox exploded")
	}
	m.queries = append(m.queries, q)
	ids := m.ids
	if len(ids) > max {
		ids = ids[:max]
	}
	return ids, nil
}

func (m *fakeMailbox) GetMessage(ctx context.Context, id string) (*models.MailMessage, error) {
	if m.beforeGet != nil {
		m.beforeGet(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.getErr[id]; err != nil {
		return nil, err
	}
	msg, ok := m.messages[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return msg, nil
}

func (m *fakeMailbox) MarkProcessed(ctx context.Context, id string) error {
	m.ev.add("mark:" + id)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.marked = append(m.marked, id)
	return nil
}

func (m *fakeMailbox) Profile(ctx context.Context) (string, error) {
	if m.profileErr != nil {
		return "", m.profileErr
	}
	return "me@gmail.com", nil
}

func (m *fakeMailbox) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *fakeMailbox) markedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.marked...)
}

type fakeProvider struct {
	mb      *fakeMailbox
	openErr error
	opens   atomic.Int32
}

func (p *fakeProvider) Open(ctx context.Context, settings *models.Settings) (Mailbox, error) {
	p.opens.Add(1)
	if p.openErr != nil {
		return nil, p.openErr
	}
	return p.mb, nil
}

type sentMessage struct {
	chatID string
	text   string
}

type fakeNotifier struct {
	ev          *events
	mu          sync.Mutex
	sent        []sentMessage
	sendErr     error
	identityErr error
}

func (n *fakeNotifier) Send(ctx context.Context, chatID, text string) error {
	n.ev.add("send:" + chatID)
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (n *fakeNotifier) Identity(ctx context.Context) (string, error) {
	if n.identityErr != nil {
		return "", n.identityErr
	}
	return "@codes_bot", nil
}

func (n *fakeNotifier) sentMessages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

type harness struct {
	ev       *events
	store    *fakeStore
	mailbox  *fakeMailbox
	provider *fakeProvider
	notifier *fakeNotifier
	tokens   atomic.Int32
	svc      *Service
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	ev := &events{}
	settings := &models.Settings{
		ID:             1,
		TelegramToken:  "123:token",
		TelegramChatID: "42",
		GmailEmail:     "me@gmail.com",
	}
	h := &harness{
		ev:       ev,
		store:    &fakeStore{ev: ev, settings: settings},
		mailbox:  &fakeMailbox{ev: ev, messages: map[string]*models.MailMessage{}},
		notifier: &fakeNotifier{ev: ev},
	}
	h.provider = &fakeProvider{mb: h.mailbox}

	factory := func(token string) (Notifier, error) {
		h.tokens.Add(1)
		return h.notifier, nil
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.svc = NewService(h.store, h.provider, factory, opts, logger)
	// Direct RunPass calls need a notifier without going through Start
	h.svc.notifier = h.notifier
	t.Cleanup(func() {
		h.svc.Stop()
		h.svc.Wait()
	})
	return h
}

// addMessage registers a single-body message with a base64url body
func (h *harness) addMessage(id, subject, body string) {
	h.addRaw(&models.MailMessage{
		ID:      id,
		Subject: subject,
		Body: &models.MessagePart{
			MimeType: "text/plain",
			Data:     base64.RawURLEncoding.EncodeToString([]byte(body)),
			Encoding: models.EncodingBase64URL,
		},
	})
}

func (h *harness) addRaw(msg *models.MailMessage) {
	h.mailbox.mu.Lock()
	defer h.mailbox.mu.Unlock()
	h.mailbox.ids = append(h.mailbox.ids, msg.ID)
	h.mailbox.messages[msg.ID] = msg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
