// Package mocks holds testify mocks of the adapter interfaces.
package mocks

import (
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/mouse-blink/tracelift/internal/adapter"
	m "github.com/mouse-blink/tracelift/internal/model"
)

// MockSourceFSAdapter is a mock of adapter.SourceFSAdapter.
type MockSourceFSAdapter struct {
	mock.Mock
}

var _ adapter.SourceFSAdapter = (*MockSourceFSAdapter)(nil)

// NewMockSourceFSAdapter creates a mock that asserts its expectations on cleanup.
func NewMockSourceFSAdapter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSourceFSAdapter {
	mockAdapter := &MockSourceFSAdapter{}
	mockAdapter.Mock.Test(t)

	t.Cleanup(func() { mockAdapter.AssertExpectations(t) })

	return mockAdapter
}

// Get provides a mock function.
func (_m *MockSourceFSAdapter) Get(roots []m.Path) ([]m.Source, error) {
	ret := _m.Called(roots)

	var sources []m.Source
	if v := ret.Get(0); v != nil {
		sources = v.([]m.Source)
	}

	return sources, ret.Error(1)
}

// Walk provides a mock function.
func (_m *MockSourceFSAdapter) Walk(root m.Path, recursive bool, fn adapter.FilepathWalkFunc) error {
	ret := _m.Called(root, recursive, fn)

	return ret.Error(0)
}

// ReadFile provides a mock function.
func (_m *MockSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	ret := _m.Called(path)

	var content []byte
	if v := ret.Get(0); v != nil {
		content = v.([]byte)
	}

	return content, ret.Error(1)
}

// HashFile provides a mock function.
func (_m *MockSourceFSAdapter) HashFile(path m.Path) (string, error) {
	ret := _m.Called(path)

	return ret.String(0), ret.Error(1)
}

// FileInfo provides a mock function.
func (_m *MockSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	ret := _m.Called(path)

	var info os.FileInfo
	if v := ret.Get(0); v != nil {
		info = v.(os.FileInfo)
	}

	return info, ret.Error(1)
}

// WriteFile provides a mock function.
func (_m *MockSourceFSAdapter) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	ret := _m.Called(path, content, perm)

	return ret.Error(0)
}

// HookedPath provides a mock function.
func (_m *MockSourceFSAdapter) HookedPath(path m.Path) m.Path {
	ret := _m.Called(path)

	return ret.Get(0).(m.Path)
}
