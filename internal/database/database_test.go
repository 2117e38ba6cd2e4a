package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaDeclaresConstraints(t *testing.T) {
	for _, name := range []string{
		"CREATE TABLE IF NOT EXISTS events",
		"CREATE TABLE IF NOT EXISTS participation_requests",
		"uq_request_event_requester",
		"ck_event_capacity",
	} {
		assert.Contains(t, schema, name)
	}
}
