package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// PostmarkSender delivers messages through Postmark's transactional API.
// Replies go to the support address.
type PostmarkSender struct {
	client  *postmark.Client
	from    string
	replyTo string
}

// NewPostmarkClient validates cfg and returns a Postmark-backed sender.
func NewPostmarkClient(cfg Config) (EmailSender, error) {
	if err := cfg.validatePostmark(); err != nil {
		return nil, err
	}
	return &PostmarkSender{
		client:  postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:    cfg.SenderEmail,
		replyTo: cfg.SupportEmail,
	}, nil
}

// MustNewPostmarkClient is NewPostmarkClient that panics on invalid config.
func MustNewPostmarkClient(cfg Config) EmailSender {
	s, err := NewPostmarkClient(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *PostmarkSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, s.message(params))
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode != 0 {
		return fmt.Errorf("%w: postmark code %d: %s", ErrFailedToSendEmail, resp.ErrorCode, resp.Message)
	}
	return nil
}

func (s *PostmarkSender) message(p SendEmailParams) postmark.Email {
	m := postmark.Email{
		From:       s.from,
		ReplyTo:    s.replyTo,
		To:         p.SendTo,
		Subject:    p.Subject,
		Tag:        p.Tag,
		HTMLBody:   p.BodyHTML,
		TextBody:   p.BodyText,
		TrackOpens: p.BodyHTML != "",
	}
	if p.BodyHTML != "" {
		m.TrackLinks = "HtmlOnly"
	}
	return m
}
