package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type MockRunner struct{ mock.Mock }

func (m *MockRunner) Run(ctx context.Context) (*models.RunResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RunResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSchedulerService_InvalidSpec(t *testing.T) {
	_, err := NewSchedulerService(new(MockRunner), "every evening", time.UTC, newNoopLogger())
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything).Return(&models.RunResult{RunID: "r1"}, nil)

	s, err := NewSchedulerService(runner, "0 21 * * *", time.UTC, newNoopLogger())
	require.NoError(t, err)

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r1", res.RunID)
}

func TestRunOnce_Busy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	runner := new(MockRunner)
	runner.On("Run", mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(&models.RunResult{}, nil).Once()

	s, err := NewSchedulerService(runner, "0 21 * * *", time.UTC, newNoopLogger())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_, _ = s.RunOnce(context.Background())
		close(done)
	}()
	<-started

	_, err = s.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	<-done
}

func TestStart_StopsOnCancel(t *testing.T) {
	s, err := NewSchedulerService(new(MockRunner), "0 21 * * *", time.UTC, newNoopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
