// Package tests contains test utilities and end-to-end test files for the
// mailsync backend.
package tests
