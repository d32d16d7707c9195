// Package integration holds end-to-end tests that run the backend against
// postgres and redis containers. Run with -tags integration_test.
package integration
