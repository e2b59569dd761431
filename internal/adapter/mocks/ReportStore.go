package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/mouse-blink/tracelift/internal/adapter"
	m "github.com/mouse-blink/tracelift/internal/model"
)

// MockReportStore is a mock of adapter.ReportStore.
type MockReportStore struct {
	mock.Mock
}

var _ adapter.ReportStore = (*MockReportStore)(nil)

// NewMockReportStore creates a mock that asserts its expectations on cleanup.
func NewMockReportStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockReportStore {
	mockStore := &MockReportStore{}
	mockStore.Mock.Test(t)

	t.Cleanup(func() { mockStore.AssertExpectations(t) })

	return mockStore
}

// Save provides a mock function.
func (_m *MockReportStore) Save(report m.Report) ([]m.Path, error) {
	ret := _m.Called(report)

	var paths []m.Path
	if v := ret.Get(0); v != nil {
		paths = v.([]m.Path)
	}

	return paths, ret.Error(1)
}

// Load provides a mock function.
func (_m *MockReportStore) Load(path m.Path) (m.Report, error) {
	ret := _m.Called(path)

	return ret.Get(0).(m.Report), ret.Error(1)
}
