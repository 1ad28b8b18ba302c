package certs

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSet_ChainsToCA(t *testing.T) {
	set, err := GenerateSet("localhost", "127.0.0.1")
	require.NoError(t, err)

	pool := x509.NewCertPool()
	require.True(t, pool.AppendCertsFromPEM(set.CA.CertPEM))

	server := parse(t, set.Server.CertPEM)
	_, err = server.Verify(x509.VerifyOptions{
		Roots:     pool,
		DNSName:   "localhost",
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	assert.NoError(t, err)

	client := parse(t, set.Client.CertPEM)
	_, err = client.Verify(x509.VerifyOptions{
		Roots:     pool,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	})
	assert.NoError(t, err)

	_, err = tls.X509KeyPair(set.Client.CertPEM, set.Client.KeyPEM)
	assert.NoError(t, err)
}

func TestWriteSet(t *testing.T) {
	set, err := GenerateSet()
	require.NoError(t, err)

	files, err := WriteSet(t.TempDir(), set)
	require.NoError(t, err)

	info, err := os.Stat(files.ClientKey)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(files.TrustedCerts)
	require.NoError(t, err)
	assert.Equal(t, set.CA.CertPEM, data)
}

func parse(t *testing.T, certPEM []byte) *x509.Certificate {
	t.Helper()
	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	return cert
}
