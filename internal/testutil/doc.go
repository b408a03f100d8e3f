// Package testutil contains helpers used across tests to build histories,
// count tool invocations and assert message order. They are not intended for
// production usage.
package testutil
