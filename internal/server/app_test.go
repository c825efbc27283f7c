package server

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/workout/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.LogLevel = "error"
	cfg.ShutdownTimeout = time.Second
	// nothing listens on port 1, so migrations fail fast
	cfg.DatabaseDSN = "postgres://u:p@127.0.0.1:1/workout?connect_timeout=1"
	cfg.CognitoUserPoolID = "us-east-1_test"
	cfg.CognitoClientID = "client"
	return cfg
}

func TestNewApp(t *testing.T) {
	app, err := NewApp(testConfig())
	require.NoError(t, err)
	assert.NotNil(t, app.server)
	assert.NotNil(t, app.db)
	require.NoError(t, app.db.Close())
}

func TestRun_SurvivesUnreachableDatabase(t *testing.T) {
	app, err := NewApp(testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.NotNil(t, app.server.Addr())
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}
}
