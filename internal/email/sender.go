package email

import (
	"context"
	"errors"
	"strings"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/config"
)

// ProposalEmail carries the summary of a generated proposal for the lead.
type ProposalEmail struct {
	To               string
	BusinessName     string
	ExecutiveSummary string
	RecommendedTier  string
	MonthlyPrice     string
	NextSteps        []string
	ProposalURL      string
}

type Sender interface {
	SendProposalEmail(ctx context.Context, msg ProposalEmail) error
}

type NoopSender struct{}

func (NoopSender) SendProposalEmail(ctx context.Context, msg ProposalEmail) error {
	return nil
}

// NewSender returns an SMTP sender, or a NoopSender when email is disabled.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	if strings.TrimSpace(cfg.GetSMTPHost()) == "" || strings.TrimSpace(cfg.GetEmailFromAddress()) == "" {
		return nil, errors.New("email enabled but SMTP_HOST or EMAIL_FROM_ADDRESS is missing")
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
