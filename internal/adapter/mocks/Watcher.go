package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mouse-blink/tracelift/internal/adapter"
	m "github.com/mouse-blink/tracelift/internal/model"
)

// MockWatcher is a mock of adapter.Watcher.
type MockWatcher struct {
	mock.Mock
}

var _ adapter.Watcher = (*MockWatcher)(nil)

// NewMockWatcher creates a mock that asserts its expectations on cleanup.
func NewMockWatcher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWatcher {
	mockWatcher := &MockWatcher{}
	mockWatcher.Mock.Test(t)

	t.Cleanup(func() { mockWatcher.AssertExpectations(t) })

	return mockWatcher
}

// Watch provides a mock function. Use Run on the expectation to fire the
// callback.
func (_m *MockWatcher) Watch(ctx context.Context, path m.Path, fn func(m.Path)) error {
	ret := _m.Called(ctx, path, fn)

	return ret.Error(0)
}
