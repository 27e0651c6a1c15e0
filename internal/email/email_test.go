package email

import (
	"context"
	"strings"
	"testing"
)

type emailConfig struct {
	enabled bool
	host    string
	from    string
}

func (c emailConfig) GetEmailEnabled() bool       { return c.enabled }
func (c emailConfig) GetSMTPHost() string         { return c.host }
func (c emailConfig) GetSMTPPort() int            { return 587 }
func (c emailConfig) GetSMTPUsername() string     { return "" }
func (c emailConfig) GetSMTPPassword() string     { return "" }
func (c emailConfig) GetEmailFromName() string    { return "DraggonnB" }
func (c emailConfig) GetEmailFromAddress() string { return c.from }

func TestNewSender(t *testing.T) {
	tests := []struct {
		name     string
		cfg      emailConfig
		wantNoop bool
		wantErr  bool
	}{
		{name: "disabled", cfg: emailConfig{}, wantNoop: true},
		{name: "enabled without host", cfg: emailConfig{enabled: true, from: "hello@example.com"}, wantErr: true},
		{name: "enabled", cfg: emailConfig{enabled: true, host: "smtp.example.com", from: "hello@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := NewSender(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			_, isNoop := sender.(NoopSender)
			if isNoop != tt.wantNoop {
				t.Fatalf("noop = %v, want %v", isNoop, tt.wantNoop)
			}
		})
	}
}

func TestNoopSenderAcceptsEverything(t *testing.T) {
	if err := (NoopSender{}).SendProposalEmail(context.Background(), ProposalEmail{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRenderProposal(t *testing.T) {
	html, err := renderProposal(ProposalEmail{
		To:               "owner@example.com",
		BusinessName:     "Acme <Plumbing>",
		ExecutiveSummary: "Automate quoting and follow-ups.",
		RecommendedTier:  "growth",
		MonthlyPrice:     "3500",
		NextSteps:        []string{"Book a call", "Share invoices"},
		ProposalURL:      "https://app.example.com/api/v1/leads/lead-1/proposal",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"Acme &lt;Plumbing&gt;",
		"Automate quoting and follow-ups.",
		"R3500",
		"<li>Book a call</li>",
		"<li>Share invoices</li>",
		"View full proposal",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected rendered email to contain %q", want)
		}
	}
	if strings.Contains(html, "<Plumbing>") {
		t.Error("business name must be escaped")
	}
}

func TestRenderProposalWithoutLink(t *testing.T) {
	html, err := renderProposal(ProposalEmail{BusinessName: "Acme", RecommendedTier: "starter"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "View full proposal") {
		t.Error("no call to action expected without a proposal URL")
	}
	if strings.Contains(html, "Next steps") {
		t.Error("next steps heading expected only with steps")
	}
}

func TestBuildMessage(t *testing.T) {
	sender := NewSMTPSender("smtp.example.com", 587, "", "", "hello@example.com", "DraggonnB")
	if _, err := sender.buildMessage("not-an-address", "subject", "<p>hi</p>"); err == nil {
		t.Fatal("expected invalid recipient error")
	}
	msg, err := sender.buildMessage("owner@example.com", "subject", "<p>hi</p>")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	to, err := msg.GetRecipients()
	if err != nil || len(to) != 1 || to[0] != "owner@example.com" {
		t.Fatalf("unexpected recipients %v, %v", to, err)
	}
}
