package db

import (
	"github.com/stretchr/testify/mock"
)

// MockOperation is a testify mock of Operation.
type MockOperation struct {
	mock.Mock
}

func (_m *MockOperation) PutKnownExploited(kev KnownExploited) error {
	ret := _m.Called(kev)
	return ret.Error(0)
}

func (_m *MockOperation) GetKnownExploited() (KnownExploited, error) {
	ret := _m.Called()
	ret0, ok := ret.Get(0).(KnownExploited)
	if !ok {
		return KnownExploited{}, ret.Error(1)
	}
	return ret0, ret.Error(1)
}

func (_m *MockOperation) PutCVECache(cpe string, entry CVECacheEntry) error {
	ret := _m.Called(cpe, entry)
	return ret.Error(0)
}

func (_m *MockOperation) GetCVECache(cpe string) (CVECacheEntry, bool, error) {
	ret := _m.Called(cpe)
	ret0, ok := ret.Get(0).(CVECacheEntry)
	if !ok {
		return CVECacheEntry{}, false, ret.Error(2)
	}
	return ret0, ret.Bool(1), ret.Error(2)
}

func (_m *MockOperation) SetMetadata(metadata Metadata) error {
	ret := _m.Called(metadata)
	return ret.Error(0)
}
