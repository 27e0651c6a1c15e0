package provisioningtest

import (
	"context"
	"sync"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/provisioning"
)

// Orchestrator records requests and replies with Result and Err, or panics
// with Panic when set.
type Orchestrator struct {
	mu       sync.Mutex
	requests []provisioning.Request
	Result   provisioning.Result
	Err      error
	Panic    interface{}
}

func (o *Orchestrator) Provision(_ context.Context, req provisioning.Request) (provisioning.Result, error) {
	o.mu.Lock()
	o.requests = append(o.requests, req)
	o.mu.Unlock()
	if o.Panic != nil {
		panic(o.Panic)
	}
	return o.Result, o.Err
}

func (o *Orchestrator) Requests() []provisioning.Request {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]provisioning.Request(nil), o.requests...)
}
