package repository

import (
	"context"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id string) (domain.Lead, error)
	FindLatestByPhone(ctx context.Context, phone string) (domain.Lead, error)
	FindRecentByEmail(ctx context.Context, email string, since time.Time) (domain.Lead, error)
}

// LeadWriter creates leads.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (domain.Lead, error)
}

// ConversationWriter advances the WhatsApp intake conversation.
type ConversationWriter interface {
	AdvanceConversation(ctx context.Context, id string, expected, next domain.ConversationState, update domain.FieldUpdate) error
}

// StatusWriter applies conditional qualification status changes.
type StatusWriter interface {
	TransitionStatus(ctx context.Context, id string, from, to domain.QualificationStatus) error
	SaveQualification(ctx context.Context, id string, outcome QualificationOutcome) error
}

// StaleQualifyingLister finds leads stuck in qualifying.
type StaleQualifyingLister interface {
	ListStaleQualifying(ctx context.Context, startedBefore time.Time, limit int) ([]domain.Lead, error)
}

// LeadsRepository is the full contract of Repository.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	ConversationWriter
	StatusWriter
	StaleQualifyingLister
}

var _ LeadsRepository = (*Repository)(nil)
