// Package leadstest provides an in-memory lead store with the same conditional
// update semantics as the Postgres repository, for package tests.
package leadstest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/repository"
)

// Store is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	leads  map[string]domain.Lead
	order  []string
	nextID int
	now    func() time.Time

	// BeforeAdvance runs inside AdvanceConversation before the compare, letting
	// tests simulate a concurrent writer.
	BeforeAdvance func(id string)
}

var _ repository.LeadsRepository = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		leads: make(map[string]domain.Lead),
		now:   time.Now,
	}
}

// Put inserts or replaces a lead as-is.
func (s *Store) Put(lead domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = s.now()
	}
	if _, exists := s.leads[lead.ID]; !exists {
		s.order = append(s.order, lead.ID)
	}
	s.leads[lead.ID] = cloneLead(lead)
}

// Get returns the stored lead and whether it exists.
func (s *Store) Get(id string) (domain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	return cloneLead(lead), ok
}

// Count returns the number of stored leads.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leads)
}

func (s *Store) GetByID(_ context.Context, id string) (domain.Lead, error) {
	lead, ok := s.Get(id)
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (s *Store) FindLatestByPhone(_ context.Context, phone string) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		lead := s.leads[s.order[i]]
		if lead.PhoneNumber != nil && *lead.PhoneNumber == phone {
			return cloneLead(lead), nil
		}
	}
	return domain.Lead{}, repository.ErrNotFound
}

func (s *Store) FindRecentByEmail(_ context.Context, email string, since time.Time) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		lead := s.leads[s.order[i]]
		if lead.Email != nil && strings.EqualFold(*lead.Email, strings.TrimSpace(email)) && !lead.CreatedAt.Before(since) {
			return cloneLead(lead), nil
		}
	}
	return domain.Lead{}, repository.ErrNotFound
}

func (s *Store) Create(_ context.Context, params repository.CreateLeadParams) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	state := params.ConversationState
	if state == "" {
		state = domain.StateStarted
	}
	lead := domain.Lead{
		ID:                  fmt.Sprintf("lead-%d", s.nextID),
		PhoneNumber:         params.PhoneNumber,
		Source:              params.Source,
		ConversationState:   state,
		BusinessName:        params.BusinessName,
		ContactName:         params.ContactName,
		Website:             params.Website,
		Email:               params.Email,
		Industry:            params.Industry,
		CompanySize:         params.CompanySize,
		BusinessIssues:      append([]string(nil), params.BusinessIssues...),
		QualificationStatus: domain.StatusPending,
		CreatedAt:           s.now(),
		UpdatedAt:           s.now(),
	}
	s.leads[lead.ID] = lead
	s.order = append(s.order, lead.ID)
	return cloneLead(lead), nil
}

func (s *Store) AdvanceConversation(_ context.Context, id string, expected, next domain.ConversationState, update domain.FieldUpdate) error {
	if s.BeforeAdvance != nil {
		s.BeforeAdvance(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return repository.ErrNotFound
	}
	if lead.ConversationState != expected {
		return domain.ErrConversationConflict
	}

	lead.ConversationState = next
	if update.BusinessName != nil {
		lead.BusinessName = strPtr(*update.BusinessName)
	}
	if update.ClearWebsite {
		lead.Website = nil
	} else if update.Website != nil {
		lead.Website = strPtr(*update.Website)
	}
	if update.Email != nil {
		lead.Email = strPtr(*update.Email)
	}
	if update.BusinessIssues != nil {
		lead.BusinessIssues = append([]string(nil), update.BusinessIssues...)
	}
	if update.Industry != nil {
		lead.Industry = strPtr(*update.Industry)
	}
	lead.UpdatedAt = s.now()
	s.leads[id] = lead
	return nil
}

func (s *Store) TransitionStatus(_ context.Context, id string, from, to domain.QualificationStatus) error {
	if err := domain.ValidateTransition(from, to); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return repository.ErrNotFound
	}
	if lead.QualificationStatus != from {
		return domain.ErrStatusConflict
	}
	lead.QualificationStatus = to
	if to == domain.StatusQualifying {
		started := s.now()
		lead.QualifyingStartedAt = &started
	} else {
		lead.QualifyingStartedAt = nil
	}
	lead.UpdatedAt = s.now()
	s.leads[id] = lead
	return nil
}

func (s *Store) SaveQualification(_ context.Context, id string, outcome repository.QualificationOutcome) error {
	if err := domain.ValidateTransition(domain.StatusQualifying, outcome.Status); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return repository.ErrNotFound
	}
	if lead.QualificationStatus != domain.StatusQualifying {
		return domain.ErrStatusConflict
	}
	scores := outcome.Scores
	tier := outcome.Tier
	reasoning := outcome.Reasoning
	blueprint := outcome.Blueprint
	lead.QualificationStatus = outcome.Status
	lead.Scores = &scores
	lead.RecommendedTier = &tier
	lead.Reasoning = &reasoning
	lead.Blueprint = &blueprint
	lead.QualifyingStartedAt = nil
	lead.UpdatedAt = s.now()
	s.leads[id] = lead
	return nil
}

func (s *Store) ListStaleQualifying(_ context.Context, startedBefore time.Time, limit int) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.Lead, 0)
	for _, id := range s.order {
		lead := s.leads[id]
		if lead.QualificationStatus != domain.StatusQualifying {
			continue
		}
		started := lead.UpdatedAt
		if lead.QualifyingStartedAt != nil {
			started = *lead.QualifyingStartedAt
		}
		if started.Before(startedBefore) {
			items = append(items, cloneLead(lead))
		}
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

// Lead builds a lead fixture with a phone, business name and email.
func Lead(id string, status domain.QualificationStatus) domain.Lead {
	return domain.Lead{
		ID:                  id,
		PhoneNumber:         strPtr("+27123456789"),
		Source:              domain.SourceWhatsApp,
		ConversationState:   domain.StateComplete,
		BusinessName:        strPtr("My Cool Business"),
		Email:               strPtr("owner@example.com"),
		Industry:            strPtr("Retail"),
		BusinessIssues:      []string{"slow invoicing", "missed leads"},
		QualificationStatus: status,
	}
}

func cloneLead(lead domain.Lead) domain.Lead {
	lead.BusinessIssues = append([]string(nil), lead.BusinessIssues...)
	return lead
}

func strPtr(s string) *string {
	return &s
}
