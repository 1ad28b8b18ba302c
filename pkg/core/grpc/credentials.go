package grpc

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"google.golang.org/grpc/credentials"

	coreerrors "github.com/msto63/bankprobe/pkg/core/errors"
)

// TLSFiles names the PEM files holding the mutual-TLS material
type TLSFiles struct {
	TrustedCerts string // CA bundle used to verify the server
	CertChain    string // client certificate chain presented to the server
	PrivateKey   string // client private key
	ServerName   string // optional SNI / verification name override
}

// Credentials holds the loaded trust anchor and client identity. It is
// immutable once loaded.
type Credentials struct {
	rootCAs     *x509.CertPool
	certificate tls.Certificate
	serverName  string
}

// LoadCredentials reads and validates the PEM files in files
func LoadCredentials(files TLSFiles) (*Credentials, error) {
	rootPEM, err := readPEM("tls.trusted_certs", files.TrustedCerts)
	if err != nil {
		return nil, err
	}
	certPEM, err := readPEM("tls.cert_chain", files.CertChain)
	if err != nil {
		return nil, err
	}
	keyPEM, err := readPEM("tls.private_key", files.PrivateKey)
	if err != nil {
		return nil, err
	}

	creds, err := NewCredentials(rootPEM, certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	creds.serverName = files.ServerName
	return creds, nil
}

// NewCredentials builds credentials from in-memory PEM material
func NewCredentials(rootPEM, certPEM, keyPEM []byte) (*Credentials, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(rootPEM) {
		return nil, coreerrors.NewConfigurationError("tls.trusted_certs", "no certificates found in trust bundle", nil)
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, coreerrors.NewConfigurationError("tls.cert_chain", "certificate and private key do not form a valid pair", err)
	}

	return &Credentials{rootCAs: pool, certificate: cert}, nil
}

// WithServerName returns a copy that verifies the server against name
func (c *Credentials) WithServerName(name string) *Credentials {
	clone := *c
	clone.serverName = name
	return &clone
}

// RootCAs returns the trust anchor
func (c *Credentials) RootCAs() *x509.CertPool {
	return c.rootCAs
}

// Certificate returns the client certificate chain and key
func (c *Credentials) Certificate() tls.Certificate {
	return c.certificate
}

// Leaf returns the parsed first certificate of the chain, or nil if it cannot
// be parsed
func (c *Credentials) Leaf() *x509.Certificate {
	if c.certificate.Leaf != nil {
		return c.certificate.Leaf
	}
	if len(c.certificate.Certificate) == 0 {
		return nil
	}
	leaf, err := x509.ParseCertificate(c.certificate.Certificate[0])
	if err != nil {
		return nil
	}
	return leaf
}

// ClientTLSConfig returns the client side TLS configuration
func (c *Credentials) ClientTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		RootCAs:      c.rootCAs,
		Certificates: []tls.Certificate{c.certificate},
		ServerName:   c.serverName,
	}
}

// TransportCredentials returns gRPC client credentials presenting the client
// certificate and verifying the server against the trust anchor
func (c *Credentials) TransportCredentials() credentials.TransportCredentials {
	return credentials.NewTLS(c.ClientTLSConfig())
}

// ServerTransportCredentials returns gRPC server credentials that require and
// verify a client certificate signed by the trust anchor
func (c *Credentials) ServerTransportCredentials() credentials.TransportCredentials {
	return credentials.NewTLS(&tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{c.certificate},
		ClientCAs:    c.rootCAs,
		ClientAuth:   tls.RequireAndVerifyClientCert,
	})
}

func readPEM(field, path string) ([]byte, error) {
	if path == "" {
		return nil, coreerrors.NewConfigurationError(field, "path is empty", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerrors.NewConfigurationError(field, fmt.Sprintf("cannot read %s", path), err)
	}
	return data, nil
}
