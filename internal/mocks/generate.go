// Package mocks provides mock implementations for testing the gateway.
//
// The AccountStore mock is generated with go.uber.org/mock (gomock); the
// simpler ports have hand-written doubles under mocks/sso.
//
// To regenerate after interface changes, run:
//
//	go generate ./internal/mocks
package mocks

// Generate mock for AccountStore interface from internal/ports.
// This creates MockAccountStore with FindByUsername, Create, Update.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=account_store_mock.go github.com/campusops/shibgate/internal/ports AccountStore
