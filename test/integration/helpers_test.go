package integration

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/msto63/bankprobe/internal/fakebank"
	"github.com/msto63/bankprobe/pkg/core/certs"
	coregrpc "github.com/msto63/bankprobe/pkg/core/grpc"
)

// TestConfig points the tests at a bank. Without TEST_BANK_ADDR a fake bank
// is started on a loopback port with freshly generated mutual-TLS material.
type TestConfig struct {
	BankAddr     string
	BankID       string
	TrustedCerts string
	CertChain    string
	PrivateKey   string
	ServerName   string
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// isServiceAvailable checks if a TCP connection can be established
func isServiceAvailable(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

// getTestConfig returns the configured external bank, or starts a local fake
// one following script. The returned bank is nil for an external bank.
func getTestConfig(t *testing.T, script fakebank.Script) (TestConfig, *fakebank.Bank) {
	t.Helper()

	if addr := os.Getenv("TEST_BANK_ADDR"); addr != "" {
		if !isServiceAvailable(addr) {
			t.Skipf("Skipping: bank not available at %s", addr)
		}
		tlsDir := getEnv("TEST_TLS_DIR", "config/tls")
		return TestConfig{
			BankAddr:     addr,
			BankID:       getEnv("TEST_BANK_ID", "bankprobe-it"),
			TrustedCerts: tlsDir + "/trusted-certs.pem",
			CertChain:    tlsDir + "/cert.pem",
			PrivateKey:   tlsDir + "/key.pem",
			ServerName:   os.Getenv("TEST_SERVER_NAME"),
		}, nil
	}

	set, err := certs.GenerateSet("localhost", "127.0.0.1")
	require.NoError(t, err)
	files, err := certs.WriteSet(t.TempDir(), set)
	require.NoError(t, err)
	serverCreds, err := coregrpc.NewCredentials(set.CA.CertPEM, set.Server.CertPEM, set.Server.KeyPEM)
	require.NoError(t, err)

	cfg := coregrpc.DefaultServerConfig()
	cfg.Port = freePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)

	bank := fakebank.New(script)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fakebank.Serve(ctx, cfg, serverCreds, bank, time.Second) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	require.Eventually(t, func() bool { return isServiceAvailable(addr) }, 5*time.Second, 20*time.Millisecond)

	return TestConfig{
		BankAddr:     addr,
		BankID:       "bankprobe-it",
		TrustedCerts: files.TrustedCerts,
		CertChain:    files.ClientCert,
		PrivateKey:   files.ClientKey,
	}, bank
}

// dial opens a mutual-TLS channel to the configured bank
func dial(t *testing.T, tc TestConfig) *coregrpc.Channel {
	t.Helper()
	creds, err := coregrpc.LoadCredentials(coregrpc.TLSFiles{
		TrustedCerts: tc.TrustedCerts,
		CertChain:    tc.CertChain,
		PrivateKey:   tc.PrivateKey,
		ServerName:   tc.ServerName,
	})
	require.NoError(t, err)

	ch, err := coregrpc.Open(coregrpc.DefaultClientConfig(tc.BankAddr), creds)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close(2 * time.Second) })
	return ch
}
