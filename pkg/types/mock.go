package types

import (
	"github.com/stretchr/testify/mock"

	"github.com/aquasecurity/vulner/pkg/set"
)

// MockAdvisories is a testify mock of the CVE lookup used by scans.
type MockAdvisories struct {
	mock.Mock
}

func (_m *MockAdvisories) KnownExploited() (set.Set[string], error) {
	ret := _m.Called()
	ret0, ok := ret.Get(0).(set.Set[string])
	if !ok {
		return set.New[string](), ret.Error(1)
	}
	return ret0, ret.Error(1)
}

func (_m *MockAdvisories) Summaries(cpe string, knownExploited set.Set[string]) ([]CveSummary, error) {
	ret := _m.Called(cpe, knownExploited)
	ret0 := ret.Get(0)
	if ret0 == nil {
		return nil, ret.Error(1)
	}
	r, ok := ret0.([]CveSummary)
	if !ok {
		return nil, ret.Error(1)
	}
	return r, ret.Error(1)
}

// MockTracker is a testify mock of a distribution tracker.
type MockTracker struct {
	mock.Mock
}

func (_m *MockTracker) TicketsByCVE(cveID string) ([]string, error) {
	ret := _m.Called(cveID)
	ret0 := ret.Get(0)
	if ret0 == nil {
		return nil, ret.Error(1)
	}
	r, ok := ret0.([]string)
	if !ok {
		return nil, ret.Error(1)
	}
	return r, ret.Error(1)
}
