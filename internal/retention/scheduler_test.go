package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	repoMocks "markui/internal/repository/mocks"
	storeMocks "markui/internal/storage/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestScheduler_SweepsThroughTheGate(t *testing.T) {
	mRepo := new(repoMocks.MockDocumentRepository)
	mStore := new(storeMocks.MockStorage)
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	mgr := NewManager(mRepo, mStore, testConfig(), metrics)

	ticked := make(chan struct{}, 1)
	mRepo.On("Aggregate", mock.Anything).
		Run(func(args mock.Arguments) {
			select {
			case ticked <- struct{}{}:
			default:
			}
		}).
		Return(1, int64(1), nil)

	sched, err := NewScheduler(mgr, 10*time.Millisecond)
	require.NoError(t, err)

	sched.Start()
	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never ran a sweep")
	}
	sched.Stop()
}

func TestScheduler_StopWaitsForInFlightSweep(t *testing.T) {
	mRepo := new(repoMocks.MockDocumentRepository)
	mStore := new(storeMocks.MockStorage)
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	mgr := NewManager(mRepo, mStore, testConfig(), metrics)

	mRepo.On("Aggregate", mock.Anything).Return(1, int64(1), nil)

	sched, err := NewScheduler(mgr, time.Hour)
	require.NoError(t, err)

	sched.Start()
	// A manual trigger uses the same gate the scheduler does.
	report, err := mgr.TriggerCleanup(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	sched.Stop()
}

func TestScheduler_RetriesSoonAfterFailedSweep(t *testing.T) {
	mRepo := new(repoMocks.MockDocumentRepository)
	mStore := new(storeMocks.MockStorage)
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	mgr := NewManager(mRepo, mStore, testConfig(), metrics)

	recovered := make(chan struct{}, 1)
	mRepo.On("Aggregate", mock.Anything).
		Return(0, int64(0), errors.New("db down")).Once()
	mRepo.On("Aggregate", mock.Anything).
		Run(func(args mock.Arguments) {
			select {
			case recovered <- struct{}{}:
			default:
			}
		}).
		Return(1, int64(1), nil)

	sched, err := NewScheduler(mgr, time.Hour)
	require.NoError(t, err)
	sched.retryDelay = 10 * time.Millisecond

	sched.Start()
	sched.runSweep()
	select {
	case <-recovered:
	case <-time.After(2 * time.Second):
		t.Fatal("failed sweep was never retried")
	}
	sched.Stop()
}

func TestScheduler_StopCancelsPendingRetry(t *testing.T) {
	mRepo := new(repoMocks.MockDocumentRepository)
	mStore := new(storeMocks.MockStorage)
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	mgr := NewManager(mRepo, mStore, testConfig(), metrics)

	mRepo.On("Aggregate", mock.Anything).Return(0, int64(0), errors.New("db down"))

	sched, err := NewScheduler(mgr, time.Hour)
	require.NoError(t, err)
	sched.retryDelay = 50 * time.Millisecond

	sched.Start()
	sched.runSweep()
	sched.Stop()

	time.Sleep(100 * time.Millisecond)
	mRepo.AssertNumberOfCalls(t, "Aggregate", 1)
}

func TestNewScheduler_InvalidInterval(t *testing.T) {
	mRepo := new(repoMocks.MockDocumentRepository)
	mStore := new(storeMocks.MockStorage)
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	mgr := NewManager(mRepo, mStore, testConfig(), metrics)

	_, err = NewScheduler(mgr, -time.Minute)
	assert.Error(t, err)
}
