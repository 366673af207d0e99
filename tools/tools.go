//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools run through `go run` or `go generate` and are not imported by
// any runtime code.
package tools

// Development tools:
//
// mockgen - generates the port interface mocks in internal/mocks
//   Run: go generate ./internal/mocks
//   Version: pinned through go.uber.org/mock in go.mod
//   Docs: https://github.com/uber-go/mock
