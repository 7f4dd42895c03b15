package failover

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNewRequiresEndpoints(t *testing.T) {
	if _, err := New(nil, time.Second, 4); err == nil {
		t.Fatal("expected error for empty endpoint list")
	}
	if _, err := New([]string{" ", ""}, time.Second, 4); err == nil {
		t.Fatal("expected error for blank endpoint entries")
	}
}

func TestNewDefaultsBudgetToTwicePerEndpoint(t *testing.T) {
	ex, err := New([]string{"a", "b", "c"}, time.Second, 0)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}
	if got := ex.MaxAttempts(); got != 6 {
		t.Fatalf("expected default budget 6, got %d", got)
	}
}

func TestExecuteReturnsFirstSuccessWithoutFurtherAttempts(t *testing.T) {
	ex, err := New([]string{"node1", "node2"}, time.Second, 4)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}
	var visited []string
	result, err := Execute(context.Background(), ex, "broadcast",
		func(ctx context.Context, endpoint string) (string, error) {
			visited = append(visited, endpoint)
			return "tx-ok", nil
		})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result != "tx-ok" {
		t.Fatalf("unexpected result %q", result)
	}
	if len(visited) != 1 || visited[0] != "node1" {
		t.Fatalf("expected exactly one attempt against node1, got %v", visited)
	}
}

func TestExecuteFailsOverInRoundRobinOrder(t *testing.T) {
	ex, err := New([]string{"node1", "node2", "node3"}, time.Second, 6)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}
	var visited []string
	result, err := Execute(context.Background(), ex, "broadcast",
		func(ctx context.Context, endpoint string) (string, error) {
			visited = append(visited, endpoint)
			if endpoint == "node3" {
				return "tx-from-node3", nil
			}
			return "", fmt.Errorf("%s unavailable", endpoint)
		})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result != "tx-from-node3" {
		t.Fatalf("expected node3 result, got %q", result)
	}
	want := []string{"node1", "node2", "node3"}
	if len(visited) != len(want) {
		t.Fatalf("expected %d attempts, got %v", len(want), visited)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("attempt %d hit %s, want %s", i+1, visited[i], want[i])
		}
	}
}

func TestExecuteExhaustionCarriesEveryCause(t *testing.T) {
	endpoints := []string{"node1", "node2", "node3"}
	ex, err := New(endpoints, time.Second, 2*len(endpoints))
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}
	_, err = Execute(context.Background(), ex, "broadcast",
		func(ctx context.Context, endpoint string) (string, error) {
			return "", errors.New("down")
		})
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Label != "broadcast" {
		t.Fatalf("unexpected label %q", exhausted.Label)
	}
	if len(exhausted.Attempts) != 2*len(endpoints) {
		t.Fatalf("expected %d recorded causes, got %d", 2*len(endpoints), len(exhausted.Attempts))
	}
	for i, attempt := range exhausted.Attempts {
		wantEndpoint := endpoints[i%len(endpoints)]
		if attempt.Endpoint != wantEndpoint {
			t.Fatalf("cause %d recorded endpoint %s, want %s", i+1, attempt.Endpoint, wantEndpoint)
		}
		if attempt.Attempt != i+1 {
			t.Fatalf("cause %d recorded attempt %d", i+1, attempt.Attempt)
		}
		if attempt.Err == nil {
			t.Fatalf("cause %d missing error", i+1)
		}
	}
}

func TestExecuteCountsTimeoutAsFailure(t *testing.T) {
	ex, err := New([]string{"slow"}, 5*time.Millisecond, 2)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}
	_, err = Execute(context.Background(), ex, "broadcast",
		func(ctx context.Context, endpoint string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if len(exhausted.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(exhausted.Attempts))
	}
	for _, attempt := range exhausted.Attempts {
		if !errors.Is(attempt.Err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded cause, got %v", attempt.Err)
		}
	}
}

func TestExecuteStopsOnParentCancellation(t *testing.T) {
	ex, err := New([]string{"node1"}, time.Second, 10)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err = Execute(ctx, ex, "broadcast",
		func(ctx context.Context, endpoint string) (string, error) {
			attempts++
			cancel()
			return "", errors.New("down")
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected loop to stop after cancellation, got %d attempts", attempts)
	}
}
