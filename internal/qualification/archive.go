package qualification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/adapters/storage"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/qualification/agent"
)

// ProposalArchive keeps a copy of every generated proposal outside the database.
type ProposalArchive interface {
	Archive(ctx context.Context, leadID string, proposal agent.Proposal) (string, error)
}

// ObjectArchive writes proposals as JSON objects under proposals/{leadID}/.
type ObjectArchive struct {
	store  storage.StorageService
	bucket string
}

func NewObjectArchive(store storage.StorageService, bucket string) *ObjectArchive {
	return &ObjectArchive{store: store, bucket: bucket}
}

func (a *ObjectArchive) Archive(ctx context.Context, leadID string, proposal agent.Proposal) (string, error) {
	payload, err := json.MarshalIndent(proposal, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode proposal: %w", err)
	}
	key, err := a.store.UploadFile(ctx, a.bucket, "proposals/"+leadID, "proposal.json", "application/json", bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", fmt.Errorf("archive proposal: %w", err)
	}
	return key, nil
}
