package iocache

import (
	"context"
	"time"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"github.com/crackerjack/gitmetrics/schema"
	"github.com/stretchr/testify/mock"
)

// MockMetricsStore is a mock implementation of MetricsStore for testing.
type MockMetricsStore struct {
	mock.Mock
}

var _ contract.MetricsStore = &MockMetricsStore{} // Compile-time check

// StoreCommits implements the MetricsStore interface.
func (m *MockMetricsStore) StoreCommits(ctx context.Context, repoPath string, commits []schema.CommitData) (int, error) {
	args := m.Called(ctx, repoPath, commits)
	return args.Int(0), args.Error(1)
}

// StoreBranchEvents implements the MetricsStore interface.
func (m *MockMetricsStore) StoreBranchEvents(ctx context.Context, repoPath string, events []schema.BranchEvent) (int, error) {
	args := m.Called(ctx, repoPath, events)
	return args.Int(0), args.Error(1)
}

// StoreMergeEvents implements the MetricsStore interface.
func (m *MockMetricsStore) StoreMergeEvents(ctx context.Context, repoPath string, merges []schema.MergeEvent) (int, error) {
	args := m.Called(ctx, repoPath, merges)
	return args.Int(0), args.Error(1)
}

// StoreSnapshot implements the MetricsStore interface.
func (m *MockMetricsStore) StoreSnapshot(ctx context.Context, dashboard schema.VelocityDashboard) error {
	args := m.Called(ctx, dashboard)
	return args.Error(0)
}

// StoreRepositoryHealth implements the MetricsStore interface.
func (m *MockMetricsStore) StoreRepositoryHealth(ctx context.Context, health schema.RepositoryHealth, recordedAt time.Time) error {
	args := m.Called(ctx, health, recordedAt)
	return args.Error(0)
}

// QueryCommits implements the MetricsStore interface.
func (m *MockMetricsStore) QueryCommits(ctx context.Context, repoPath string, since, until time.Time) ([]schema.CommitData, error) {
	args := m.Called(ctx, repoPath, since, until)
	commits, _ := args.Get(0).([]schema.CommitData)
	return commits, args.Error(1)
}

// QueryMergeEvents implements the MetricsStore interface.
func (m *MockMetricsStore) QueryMergeEvents(ctx context.Context, repoPath string, since, until time.Time) ([]schema.MergeEvent, error) {
	args := m.Called(ctx, repoPath, since, until)
	merges, _ := args.Get(0).([]schema.MergeEvent)
	return merges, args.Error(1)
}

// LatestCommitTime implements the MetricsStore interface.
func (m *MockMetricsStore) LatestCommitTime(ctx context.Context, repoPath string) (time.Time, error) {
	args := m.Called(ctx, repoPath)
	return args.Get(0).(time.Time), args.Error(1)
}

// ListRepositories implements the MetricsStore interface.
func (m *MockMetricsStore) ListRepositories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	repos, _ := args.Get(0).([]string)
	return repos, args.Error(1)
}

// GetStatus implements the MetricsStore interface.
func (m *MockMetricsStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the MetricsStore interface.
func (m *MockMetricsStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
