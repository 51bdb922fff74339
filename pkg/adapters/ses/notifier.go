// Package ses emails captured leads to the sales team through Amazon SES.
package ses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/greenoffice/leadchat/pkg/domain"
)

// API is the subset of the SES client the notifier uses.
type API interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Notifier implements ports.LeadNotifier.
type Notifier struct {
	client API
	from   string
	to     []string
}

// New loads the default AWS credential chain for region.
func New(ctx context.Context, region, from string, to []string) (*Notifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(ses.NewFromConfig(cfg), from, to)
}

// NewWithClient wraps an existing SES client.
func NewWithClient(client API, from string, to []string) (*Notifier, error) {
	if from == "" || len(to) == 0 {
		return nil, errors.New("ses: sender and at least one recipient are required")
	}
	return &Notifier{client: client, from: from, to: to}, nil
}

// NotifyLead sends one plain-text email per lead.
func (n *Notifier) NotifyLead(ctx context.Context, lead domain.Lead) error {
	subject := fmt.Sprintf("New retreat lead: %s (score %d)", displayName(lead), lead.Score)
	body := Body(lead)

	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: n.to,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
		Source:           aws.String(n.from),
		ReplyToAddresses: replyTo(lead),
	})
	if err != nil {
		return fmt.Errorf("ses: send lead %s: %w", lead.SessionID, err)
	}
	return nil
}

// Body renders the email text for lead.
func Body(lead domain.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", displayName(lead))
	fmt.Fprintf(&b, "Email: %s\n", lead.Email)
	fmt.Fprintf(&b, "Score: %d/100\n", lead.Score)
	fmt.Fprintf(&b, "Reason: %s\n", reasonText(lead.Reason))
	fmt.Fprintf(&b, "Session: %s\n", lead.SessionID)
	if len(lead.Details) > 0 {
		b.WriteString("\nAnswers\n")
		for _, f := range lead.Details {
			fmt.Fprintf(&b, "- %s: %s\n", f.Label, f.Value)
		}
	}
	return b.String()
}

func displayName(lead domain.Lead) string {
	if lead.Name == "" {
		return "(no name)"
	}
	return lead.Name
}

func replyTo(lead domain.Lead) []string {
	if lead.Email == "" {
		return nil
	}
	return []string{lead.Email}
}

func reasonText(o domain.Outcome) string {
	switch o {
	case domain.OutcomeWaitlist:
		return "group exceeds current capacity (waitlist)"
	case domain.OutcomeTooLarge:
		return "group larger than planned capacity"
	case domain.OutcomePartner:
		return "partnership or corporate program inquiry"
	case domain.OutcomeComplete:
		return "completed qualification"
	}
	return string(o)
}
