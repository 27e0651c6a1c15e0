package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type proposalEmailData struct {
	baseEmailData
	BusinessName     string
	ExecutiveSummary string
	RecommendedTier  string
	MonthlyPrice     string
	NextSteps        []string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderProposal(msg ProposalEmail) (string, error) {
	data := proposalEmailData{
		baseEmailData: baseEmailData{
			Title:      "Your automation proposal",
			Heading:    "Your automation proposal is ready",
			Subheading: msg.BusinessName,
		},
		BusinessName:     msg.BusinessName,
		ExecutiveSummary: msg.ExecutiveSummary,
		RecommendedTier:  msg.RecommendedTier,
		MonthlyPrice:     formatCurrencyZAR(msg.MonthlyPrice),
		NextSteps:        msg.NextSteps,
	}
	if msg.ProposalURL != "" {
		data.CTALabel = "View full proposal"
		data.CTAURL = msg.ProposalURL
	}
	return renderEmailTemplate("proposal.html", data)
}

func formatCurrencyZAR(amount string) string {
	if amount == "" {
		return ""
	}
	return "R" + amount
}
