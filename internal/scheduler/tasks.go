package scheduler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

const TaskQualifyLead = "leads.qualify"

const TaskGenerateProposal = "leads.proposal"

// LeadTaskPayload identifies the lead a task works on.
type LeadTaskPayload struct {
	LeadID string `json:"leadId"`
}

func NewQualifyLeadTask(payload LeadTaskPayload) (*asynq.Task, error) {
	return newLeadTask(TaskQualifyLead, payload)
}

func NewGenerateProposalTask(payload LeadTaskPayload) (*asynq.Task, error) {
	return newLeadTask(TaskGenerateProposal, payload)
}

func ParseLeadTaskPayload(task *asynq.Task) (LeadTaskPayload, error) {
	var payload LeadTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadTaskPayload{}, err
	}
	if strings.TrimSpace(payload.LeadID) == "" {
		return LeadTaskPayload{}, fmt.Errorf("%s: missing lead id", task.Type())
	}
	return payload, nil
}

func newLeadTask(typename string, payload LeadTaskPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.LeadID) == "" {
		return nil, fmt.Errorf("%s: missing lead id", typename)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typename, data), nil
}
