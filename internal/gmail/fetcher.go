package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"prsummarizer/internal/model"
	"prsummarizer/pkg/config"
	"prsummarizer/pkg/logger"
)

// ErrNoMessages is returned when the watched label is empty.
var ErrNoMessages = errors.New("gmail: no messages in label")

// Fetcher reads the newest message of a label. It relies on an existing
// token file and never starts the consent flow.
type Fetcher struct {
	srv    *gmailapi.Service
	user   string
	label  string
	logger *zap.Logger
}

func NewFetcher(ctx context.Context, cfg config.GmailConfig, log *zap.Logger) (*Fetcher, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(b, gmailapi.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	tok, err := tokenFromFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("unable to load oauth token %s: %w", cfg.TokenFile, err)
	}

	return NewFetcherWithOptions(ctx, cfg, log, option.WithHTTPClient(oauthConfig.Client(ctx, tok)))
}

// NewFetcherWithOptions builds a fetcher from explicit client options.
func NewFetcherWithOptions(ctx context.Context, cfg config.GmailConfig, log *zap.Logger, opts ...option.ClientOption) (*Fetcher, error) {
	srv, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	user, label := cfg.User, cfg.Label
	if user == "" {
		user = "me"
	}
	if label == "" {
		label = "INBOX"
	}
	return &Fetcher{srv: srv, user: user, label: label, logger: log}, nil
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

// LatestMessageID returns the id of the newest message in the label.
func (f *Fetcher) LatestMessageID(ctx context.Context) (string, error) {
	resp, err := f.srv.Users.Messages.List(f.user).
		LabelIds(f.label).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	if len(resp.Messages) == 0 {
		return "", ErrNoMessages
	}
	return resp.Messages[0].Id, nil
}

// Fetch downloads one message with its full payload tree.
func (f *Fetcher) Fetch(ctx context.Context, id string) (*model.RawMessage, error) {
	msg, err := f.srv.Users.Messages.Get(f.user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}

	logger.WithTrace(ctx, f.logger).Debug("Fetched message",
		zap.String("message_id", msg.Id),
		zap.Int("snippet_length", len(msg.Snippet)),
	)
	return ToRawMessage(msg), nil
}

// ToRawMessage copies the parts of a Gmail message the pipeline reads.
func ToRawMessage(msg *gmailapi.Message) *model.RawMessage {
	if msg == nil {
		return nil
	}
	return &model.RawMessage{
		ID:      msg.Id,
		Snippet: msg.Snippet,
		Payload: convertPart(msg.Payload),
	}
}

func convertPart(p *gmailapi.MessagePart) *model.Part {
	if p == nil {
		return nil
	}

	part := &model.Part{MimeType: p.MimeType}
	for _, h := range p.Headers {
		if h == nil {
			continue
		}
		part.Headers = append(part.Headers, model.Header{Name: h.Name, Value: h.Value})
	}
	if p.Body != nil {
		part.Body.Data = p.Body.Data
	}
	for _, child := range p.Parts {
		if c := convertPart(child); c != nil {
			part.Parts = append(part.Parts, c)
		}
	}
	return part
}
