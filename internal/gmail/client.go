package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mixelka/codewatch/pkg/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	user        = "me"
	unreadLabel = "UNREAD"
)

// Provider opens Gmail API clients from OAuth credential and token files
type Provider struct {
	CredentialsFile string
	TokenFile       string
}

// Open builds an authorized client. Files are re-read on every call so a
// refreshed token is picked up without a restart.
func (p *Provider) Open(ctx context.Context) (*Client, error) {
	cfg, err := loadOAuthConfig(p.CredentialsFile)
	if err != nil {
		return nil, err
	}

	tok, err := tokenFromFile(p.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read token file %s (run with -authorize): %w", p.TokenFile, err)
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return NewClientWithService(srv), nil
}

// Client is a mailbox backed by the Gmail API
type Client struct {
	srv *gmail.Service
}

// NewClientWithService wraps an existing Gmail service
func NewClientWithService(srv *gmail.Service) *Client {
	return &Client{srv: srv}
}

// ListMessages returns IDs of messages matching the query, newest first
func (c *Client) ListMessages(ctx context.Context, q models.SearchQuery, max int) ([]string, error) {
	res, err := c.srv.Users.Messages.List(user).
		Q(BuildQuery(q)).
		MaxResults(int64(max)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// GetMessage fetches the full message
func (c *Client) GetMessage(ctx context.Context, id string) (*models.MailMessage, error) {
	msg, err := c.srv.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return convertMessage(msg), nil
}

// MarkProcessed removes the UNREAD label
func (c *Client) MarkProcessed(ctx context.Context, id string) error {
	err := c.srv.Users.Messages.BatchModify(user, &gmail.BatchModifyMessagesRequest{
		Ids:            []string{id},
		RemoveLabelIds: []string{unreadLabel},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	return nil
}

// Profile returns the mailbox address
func (c *Client) Profile(ctx context.Context) (string, error) {
	p, err := c.srv.Users.GetProfile(user).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}
	return p.EmailAddress, nil
}

// Close is a no-op; the HTTP client holds no session
func (c *Client) Close() error {
	return nil
}

func convertMessage(msg *gmail.Message) *models.MailMessage {
	out := &models.MailMessage{ID: msg.Id}
	if msg.Payload == nil {
		return out
	}

	for _, h := range msg.Payload.Headers {
		if h.Name == "Subject" {
			out.Subject = h.Value
			break
		}
	}

	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		out.Body = convertPart(msg.Payload)
	}
	for _, p := range msg.Payload.Parts {
		if p.Body == nil || p.Body.Data == "" {
			out.Parts = append(out.Parts, models.MessagePart{MimeType: p.MimeType, Encoding: models.EncodingBase64URL})
			continue
		}
		out.Parts = append(out.Parts, *convertPart(p))
	}
	return out
}

func convertPart(p *gmail.MessagePart) *models.MessagePart {
	return &models.MessagePart{
		MimeType: p.MimeType,
		Data:     p.Body.Data,
		Encoding: models.EncodingBase64URL,
	}
}

func loadOAuthConfig(path string) (*oauth2.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, gmail.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	return cfg, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
