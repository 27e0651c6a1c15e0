package telegram

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/sanitize"
)

const maxReasoningRunes = 300

// Legacy Markdown only treats these as entity delimiters.
var markdownSpecial = regexp.MustCompile("([_*`\\[])")

// LeadSummary is what the operator sees before approving a lead.
type LeadSummary struct {
	LeadID       string
	BusinessName string
	Phone        string
	Email        string
	Website      string
	Industry     string
	Issues       []string
	Qualified    bool
	Scores       domain.Scores
	Tier         domain.Tier
	Reasoning    string
}

// SummaryFromLead builds the operator summary from a scored lead.
func SummaryFromLead(lead domain.Lead) LeadSummary {
	summary := LeadSummary{
		LeadID:       lead.ID,
		BusinessName: deref(lead.BusinessName),
		Phone:        lead.Phone(),
		Email:        lead.EmailAddress(),
		Website:      deref(lead.Website),
		Industry:     deref(lead.Industry),
		Issues:       lead.BusinessIssues,
		Qualified:    lead.QualificationStatus == domain.StatusQualified,
		Reasoning:    deref(lead.Reasoning),
	}
	if lead.Scores != nil {
		summary.Scores = *lead.Scores
	}
	if lead.RecommendedTier != nil {
		summary.Tier = *lead.RecommendedTier
	}
	return summary
}

// EscapeMarkdown escapes user supplied text for ParseMode Markdown.
func EscapeMarkdown(s string) string {
	return markdownSpecial.ReplaceAllString(s, `\$1`)
}

// FormatLeadSummary renders the summary as Markdown.
func FormatLeadSummary(s LeadSummary) string {
	var b strings.Builder

	b.WriteString("*New Lead from WhatsApp*\n\n")
	writeField(&b, "Business", s.BusinessName)
	writeField(&b, "Phone", s.Phone)
	writeField(&b, "Email", s.Email)
	writeField(&b, "Website", s.Website)
	writeField(&b, "Industry", s.Industry)

	b.WriteString("\n*Issues:*\n")
	if len(s.Issues) == 0 {
		b.WriteString("  - N/A\n")
	}
	for _, issue := range s.Issues {
		b.WriteString("  - " + EscapeMarkdown(issue) + "\n")
	}

	status := "Not Qualified"
	if s.Qualified {
		status = "Qualified"
	}
	b.WriteString("\n*Qualification Result*\n")
	b.WriteString("*Status:* " + status + "\n")
	b.WriteString("*Fit:* " + score(s.Scores.Fit) + "/10  *Urgency:* " + score(s.Scores.Urgency) + "/10  *Size:* " + score(s.Scores.Size) + "/10\n")
	b.WriteString("*Overall:* " + score(s.Scores.Overall) + "/10\n")
	writeField(&b, "Recommended Tier", string(s.Tier))

	reasoning := strings.TrimSpace(s.Reasoning)
	if truncated := sanitize.Truncate(reasoning, maxReasoningRunes); truncated != reasoning {
		reasoning = truncated + "..."
	}
	b.WriteString("\n*Reasoning:*\n" + EscapeMarkdown(reasoning))

	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		value = "N/A"
	}
	b.WriteString("*" + label + ":* " + EscapeMarkdown(value) + "\n")
}

func score(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
