// Package certs generates throwaway mutual-TLS material for the fake bank
// and for tests. It is not meant for production certificates.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// Options controls a generated certificate
type Options struct {
	CommonName string
	DNSNames   []string
	IPs        []net.IP
	ValidFor   time.Duration
	IsCA       bool
	IsClient   bool
	Serial     int64
}

// Pair is a PEM encoded certificate and private key plus the parsed forms
// needed to sign further certificates
type Pair struct {
	CertPEM []byte
	KeyPEM  []byte

	cert *x509.Certificate
	key  *ecdsa.PrivateKey
}

// Set is the material for one mutual-TLS deployment: a CA plus a server and a
// client leaf signed by it
type Set struct {
	CA     *Pair
	Server *Pair
	Client *Pair
}

// Generate creates a certificate signed by parent, or self-signed when parent
// is nil
func Generate(opts Options, parent *Pair) (*Pair, error) {
	if opts.ValidFor == 0 {
		opts.ValidFor = 24 * time.Hour
	}
	if opts.Serial == 0 {
		opts.Serial = time.Now().UnixNano()
	}
	if opts.CommonName == "" {
		opts.CommonName = "localhost"
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(opts.Serial),
		Subject:               pkix.Name{CommonName: opts.CommonName, Organization: []string{"bankprobe"}},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(opts.ValidFor),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              opts.DNSNames,
		IPAddresses:           opts.IPs,
	}

	switch {
	case opts.IsCA:
		template.IsCA = true
		template.KeyUsage |= x509.KeyUsageCertSign
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth}
	case opts.IsClient:
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	default:
		if len(template.DNSNames) == 0 && len(template.IPAddresses) == 0 {
			template.DNSNames = []string{"localhost"}
			template.IPAddresses = []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback}
		}
	}

	signer, signerKey := template, key
	if parent != nil {
		signer, signerKey = parent.cert, parent.key
	}

	der, err := x509.CreateCertificate(rand.Reader, template, signer, &key.PublicKey, signerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	return &Pair{
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		KeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
		cert:    cert,
		key:     key,
	}, nil
}

// GenerateSet creates a CA with one server and one client certificate
func GenerateSet(serverNames ...string) (*Set, error) {
	ca, err := Generate(Options{CommonName: "bankprobe test CA", IsCA: true, ValidFor: 7 * 24 * time.Hour, Serial: 1}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CA certificate: %w", err)
	}

	serverOpts := Options{CommonName: "localhost", Serial: 2}
	for _, name := range serverNames {
		if ip := net.ParseIP(name); ip != nil {
			serverOpts.IPs = append(serverOpts.IPs, ip)
		} else {
			serverOpts.DNSNames = append(serverOpts.DNSNames, name)
		}
	}
	server, err := Generate(serverOpts, ca)
	if err != nil {
		return nil, fmt.Errorf("failed to generate server certificate: %w", err)
	}

	client, err := Generate(Options{CommonName: "bankprobe client", IsClient: true, Serial: 3}, ca)
	if err != nil {
		return nil, fmt.Errorf("failed to generate client certificate: %w", err)
	}

	return &Set{CA: ca, Server: server, Client: client}, nil
}

// Files lists where WriteSet put each PEM file
type Files struct {
	TrustedCerts string
	ServerCert   string
	ServerKey    string
	ClientCert   string
	ClientKey    string
}

// WriteSet writes the set into dir using the harness' default file names
func WriteSet(dir string, set *Set) (Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("failed to create certificate directory: %w", err)
	}

	files := Files{
		TrustedCerts: filepath.Join(dir, "trusted-certs.pem"),
		ServerCert:   filepath.Join(dir, "server-cert.pem"),
		ServerKey:    filepath.Join(dir, "server-key.pem"),
		ClientCert:   filepath.Join(dir, "cert.pem"),
		ClientKey:    filepath.Join(dir, "key.pem"),
	}

	writes := []struct {
		path string
		data []byte
		mode os.FileMode
	}{
		{files.TrustedCerts, set.CA.CertPEM, 0o644},
		{files.ServerCert, set.Server.CertPEM, 0o644},
		{files.ServerKey, set.Server.KeyPEM, 0o600},
		{files.ClientCert, set.Client.CertPEM, 0o644},
		{files.ClientKey, set.Client.KeyPEM, 0o600},
	}
	for _, w := range writes {
		if err := os.WriteFile(w.path, w.data, w.mode); err != nil {
			return Files{}, fmt.Errorf("failed to write %s: %w", w.path, err)
		}
	}
	return files, nil
}
