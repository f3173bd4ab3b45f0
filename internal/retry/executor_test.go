package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// mockOperation fails with a transient error until failUntil, then returns fatalErr (or nil).
type mockOperation struct {
	invocations int
	failUntil   int
	fatalErr    error
}

func (m *mockOperation) execute(ctx context.Context) error {
	m.invocations++
	if m.invocations < m.failUntil {
		return &pgconn.PgError{Code: "08006", Message: "connection failure"}
	}
	if m.invocations == m.failUntil && m.fatalErr != nil {
		return m.fatalErr
	}
	return nil
}

func fastBackoff(attempts int) *ExponentialBackoff {
	return NewExponentialBackoff(attempts, WithInitialDelay(time.Millisecond), WithJitter(0))
}

func TestExecutor_SuccessOnFirstAttempt(t *testing.T) {
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(3))
	op := &mockOperation{failUntil: 1}

	if err := executor.Execute(context.Background(), op.execute); err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}
	if op.invocations != 1 {
		t.Errorf("Expected 1 invocation, got %d", op.invocations)
	}
}

func TestExecutor_SuccessAfterRetries(t *testing.T) {
	var retries []int
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(5)).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			retries = append(retries, attempt)
		})
	op := &mockOperation{failUntil: 3}

	if err := executor.Execute(context.Background(), op.execute); err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}
	if op.invocations != 3 {
		t.Errorf("Expected 3 invocations, got %d", op.invocations)
	}
	if len(retries) != 2 || retries[0] != 0 || retries[1] != 1 {
		t.Errorf("Expected retry callbacks [0 1], got %v", retries)
	}
}

func TestExecutor_ZeroAttemptsRunsOnce(t *testing.T) {
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(0))
	op := &mockOperation{failUntil: 10}

	err := executor.Execute(context.Background(), op.execute)
	if err == nil {
		t.Fatal("Expected transient error to surface")
	}
	if op.invocations != 1 {
		t.Errorf("Expected exactly 1 invocation, got %d", op.invocations)
	}
}

func TestExecutor_ExhaustsAttempts(t *testing.T) {
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(2))
	op := &mockOperation{failUntil: 10}

	err := executor.Execute(context.Background(), op.execute)
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "08006" {
		t.Fatalf("Expected last transient error, got %v", err)
	}
	if op.invocations != 3 {
		t.Errorf("Expected 3 invocations (1 + 2 retries), got %d", op.invocations)
	}
}

func TestExecutor_FatalErrorStopsImmediately(t *testing.T) {
	fatal := &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}
	executor := NewExecutor(NewPostgreSQLErrorClassifier(), fastBackoff(5))
	op := &mockOperation{failUntil: 2, fatalErr: fatal}

	err := executor.Execute(context.Background(), op.execute)
	if !errors.Is(err, fatal) {
		t.Fatalf("Expected fatal error, got %v", err)
	}
	if op.invocations != 2 {
		t.Errorf("Expected 2 invocations, got %d", op.invocations)
	}
}

func TestExecutor_ContextCancelledDuringBackoff(t *testing.T) {
	executor := NewExecutor(NewPostgreSQLErrorClassifier(),
		NewExponentialBackoff(5, WithInitialDelay(time.Hour), WithJitter(0)))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	op := &mockOperation{failUntil: 10}

	err := executor.Execute(ctx, op.execute)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestNewExecutor_PanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for nil classifier")
		}
	}()
	NewExecutor(nil, fastBackoff(1))
}
