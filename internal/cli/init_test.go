package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finpocket/internal/config"
	"finpocket/internal/ledger"
	"finpocket/internal/ledger/memory"
	"finpocket/internal/log"
)

func TestSetupLoggerWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("debug", &buf)
	logger.Debug("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "component=app")
}

func TestBuildLedgerRemote(t *testing.T) {
	cfg := &config.Config{LedgerBackend: config.BackendRemote, LedgerEndpoint: "https://example.com/exec?key=secret"}
	var buf bytes.Buffer
	svc, err := BuildLedger(cfg, SetupLogger("info", &buf))
	require.NoError(t, err)

	client, ok := svc.(*ledger.Client)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/exec?key=secret", client.Endpoint())
	assert.NotContains(t, buf.String(), "secret")
}

func TestBuildLedgerMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.txt")
	require.NoError(t, os.WriteFile(path, []byte("Cash,Cash,500\n"), 0o644))
	cfg := &config.Config{LedgerBackend: config.BackendMemory, DemoUsername: "demo", DemoPassword: "pw", DemoSeedFile: path}

	svc, err := BuildLedger(cfg, log.Discard())
	require.NoError(t, err)
	_, ok := svc.(*memory.Store)
	require.True(t, ok)

	user, err := svc.Login(context.Background(), "demo", "pw")
	require.NoError(t, err)
	accounts, err := svc.GetAccounts(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestBuildLedgerUnknown(t *testing.T) {
	_, err := BuildLedger(&config.Config{LedgerBackend: "csv"}, log.Discard())
	assert.Error(t, err)
}

func TestBuildPublisherDisabled(t *testing.T) {
	assert.Nil(t, BuildPublisher(context.Background(), &config.Config{}, log.Discard()))
}

func TestEndpointHost(t *testing.T) {
	assert.Equal(t, "https://script.google.com", endpointHost("https://script.google.com/macros/s/x/exec?k=v"))
}
