package duplex_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/duplexdb/duplex"
	"github.com/duplexdb/duplex/test_helpers"
)

func TestCheckHealthHealthy(t *testing.T) {
	db, _, _ := newTestDB(t)

	health := db.CheckHealth(context.Background())
	assert.Equal(t, StatusHealthy, health.Status)
	assert.NotEmpty(t, health.Details)
}

func TestCheckHealthUnhealthyCarriesMessage(t *testing.T) {
	main := &test_helpers.RecordingConn{PingErr: errors.New("connection refused")}
	db, err := New(main, nil)
	require.NoError(t, err)

	health := db.CheckHealth(context.Background())
	assert.Equal(t, StatusUnhealthy, health.Status)
	assert.Equal(t, "connection refused", health.Details)
}

func TestCheckHealthBlankErrorMessage(t *testing.T) {
	main := &test_helpers.RecordingConn{PingErr: errors.New("")}
	db, err := New(main, nil)
	require.NoError(t, err)

	health := db.CheckHealth(context.Background())
	assert.Equal(t, StatusUnhealthy, health.Status)
	assert.Equal(t, "unknown error", health.Details)
}

func TestCheckHealthProbesOnlyMain(t *testing.T) {
	primary := &test_helpers.RecordingConn{PingErr: errors.New("primary down")}
	db, err := New(&test_helpers.RecordingConn{}, primary)
	require.NoError(t, err)

	// an unhealthy primary must not fail the probe
	health := db.CheckHealth(context.Background())
	assert.Equal(t, StatusHealthy, health.Status)
}

func TestCheckHealthAfterDisconnect(t *testing.T) {
	db, _, _ := newTestDB(t)
	db.DisconnectAll()

	health := db.CheckHealth(context.Background())
	assert.Equal(t, StatusUnhealthy, health.Status)
}
