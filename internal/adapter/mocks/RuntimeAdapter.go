package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mouse-blink/tracelift/internal/adapter"
	m "github.com/mouse-blink/tracelift/internal/model"
)

// MockRuntimeAdapter is a mock of adapter.RuntimeAdapter.
type MockRuntimeAdapter struct {
	mock.Mock
}

var _ adapter.RuntimeAdapter = (*MockRuntimeAdapter)(nil)

// NewMockRuntimeAdapter creates a mock that asserts its expectations on cleanup.
func NewMockRuntimeAdapter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRuntimeAdapter {
	mockAdapter := &MockRuntimeAdapter{}
	mockAdapter.Mock.Test(t)

	t.Cleanup(func() { mockAdapter.AssertExpectations(t) })

	return mockAdapter
}

// Interpreter provides a mock function.
func (_m *MockRuntimeAdapter) Interpreter(ctx context.Context) (string, error) {
	ret := _m.Called(ctx)

	return ret.String(0), ret.Error(1)
}

// Execute provides a mock function.
func (_m *MockRuntimeAdapter) Execute(ctx context.Context, script m.Path, timeout time.Duration) (adapter.ExecResult, error) {
	ret := _m.Called(ctx, script, timeout)

	return ret.Get(0).(adapter.ExecResult), ret.Error(1)
}
