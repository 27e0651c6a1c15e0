package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/logger"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/resilience"
)

func useFastRetry(t *testing.T) {
	t.Helper()
	saved := startupRetry
	startupRetry = resilience.RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond}
	t.Cleanup(func() { startupRetry = saved })
}

func TestWithRetryRecoversAndLogsAttempts(t *testing.T) {
	useFastRetry(t)
	var buf bytes.Buffer
	calls := 0

	err := withRetry(context.Background(), logger.NewWithWriter("test", &buf), "database connection", func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if got := strings.Count(buf.String(), "retryable operation failed"); got != 2 {
		t.Fatalf("expected 2 logged failures, got %d", got)
	}
}

func TestWithRetryNamesTheOperationOnExhaustion(t *testing.T) {
	useFastRetry(t)
	calls := 0

	err := withRetry(context.Background(), logger.NewWithWriter("test", &bytes.Buffer{}), "database connection", func() error {
		calls++
		return errors.New("connection refused")
	})
	if err == nil || err.Error() != "database connection: connection refused" {
		t.Fatalf("unexpected error %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}
