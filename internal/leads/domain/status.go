package domain

import "errors"

// QualificationStatus is the lead's position in the qualification and approval pipeline.
type QualificationStatus string

const (
	StatusPending      QualificationStatus = "pending"
	StatusQualifying   QualificationStatus = "qualifying"
	StatusQualified    QualificationStatus = "qualified"
	StatusDisqualified QualificationStatus = "disqualified"
	StatusApproved     QualificationStatus = "approved"
	StatusRejected     QualificationStatus = "rejected"
	StatusProvisioning QualificationStatus = "provisioning"
	StatusProvisioned  QualificationStatus = "provisioned"
)

var (
	// ErrInvalidTransition is returned when a status change is not in the transition table.
	ErrInvalidTransition = errors.New("invalid qualification status transition")
	// ErrStatusConflict is returned when a conditional update lost a race.
	ErrStatusConflict = errors.New("lead status changed concurrently")
)

var allowedTransitions = map[QualificationStatus][]QualificationStatus{
	StatusPending:      {StatusQualifying},
	StatusQualifying:   {StatusPending, StatusQualified, StatusDisqualified},
	StatusQualified:    {StatusApproved, StatusRejected},
	StatusDisqualified: {StatusRejected},
	StatusApproved:     {StatusProvisioning},
	StatusProvisioning: {StatusProvisioned},
}

func (s QualificationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusQualifying, StatusQualified, StatusDisqualified,
		StatusApproved, StatusRejected, StatusProvisioning, StatusProvisioned:
		return true
	}
	return false
}

// CanTransitionTo reports whether next directly follows s.
func (s QualificationStatus) CanTransitionTo(next QualificationStatus) bool {
	for _, candidate := range allowedTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition when from → to is not allowed.
func ValidateTransition(from, to QualificationStatus) error {
	if !from.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	return nil
}

// IsApprovedOrLater covers the statuses where a second approval is a no-op.
func (s QualificationStatus) IsApprovedOrLater() bool {
	return s == StatusApproved || s == StatusProvisioning || s == StatusProvisioned
}

// IsReviewable reports whether an operator decision can be applied.
func (s QualificationStatus) IsReviewable() bool {
	return s == StatusQualified || s == StatusDisqualified
}
