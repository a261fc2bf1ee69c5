// Package mocks provides generated mock implementations of the port interfaces.
//
// This package uses go.uber.org/mock (gomock). To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	reader := mocks.NewMockSessionReader(ctrl)
//	reader.EXPECT().Read(gomock.Any()).Return(ports.SessionRead{}, nil)
package mocks

// Generate mock for SessionReader interface from internal/ports package.
// This creates MockSessionReader with methods for all SessionReader interface methods:
// Read
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_reader_mock.go github.com/medportal/portalgate/internal/ports SessionReader

// Generate mock for ProfileStore interface from internal/ports package.
// This creates MockProfileStore with methods for all ProfileStore interface methods:
// GetRole, SetRole
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_store_mock.go github.com/medportal/portalgate/internal/ports ProfileStore
