package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcommandsRegistered(t *testing.T) {
	for _, name := range []string{"migrate", "expire-reservations", "backfill-reservation-expiry", "audit"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	flag := backfillCmd.Flags().Lookup("dry-run")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}

func TestRejectsPositionalArgs(t *testing.T) {
	assert.Error(t, auditCmd.Args(auditCmd, []string{"extra"}))
	assert.NoError(t, auditCmd.Args(auditCmd, nil))
}

func TestWriteJSONIndents(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"count": 2}))
	assert.Equal(t, "{\n  \"count\": 2\n}\n", buf.String())
}
