// Package certs keeps a self-signed certificate for serving the API over
// HTTPS on a local machine.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	validity = 365 * 24 * time.Hour
	// renewBefore regenerates certificates this close to expiry.
	renewBefore = 30 * 24 * time.Hour
)

// FileManager stores a certificate and key pair in a directory.
type FileManager struct {
	now      func() time.Time
	certDir  string
	certFile string
	keyFile  string
	hosts    []string
}

// NewFileManager creates a FileManager for certDir. The certificate covers
// localhost and loopback addresses plus any extra hosts, which may be names
// or IP addresses.
func NewFileManager(certDir string, hosts ...string) *FileManager {
	return &FileManager{
		now:      time.Now,
		certDir:  certDir,
		certFile: filepath.Join(certDir, "books.crt"),
		keyFile:  filepath.Join(certDir, "books.key"),
		hosts:    append([]string{"localhost", "127.0.0.1", "::1"}, hosts...),
	}
}

// TLSConfig returns a server TLS config using the stored certificate,
// generating a new one if it is missing, unreadable or about to expire.
func (m *FileManager) TLSConfig() (*tls.Config, error) {
	cert, err := m.GetOrCreateCertificate()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// GetOrCreateCertificate returns the stored certificate or a fresh one.
func (m *FileManager) GetOrCreateCertificate() (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(m.certFile, m.keyFile)
	if err == nil {
		if verifyErr := m.verify(cert); verifyErr == nil {
			return cert, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		// Unreadable pair; replace it below.
		if removeErr := m.remove(); removeErr != nil {
			return tls.Certificate{}, removeErr
		}
	}

	return m.generate()
}

func (m *FileManager) generate() (tls.Certificate, error) {
	if err := os.MkdirAll(m.certDir, 0o700); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate directory: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate private key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := m.now()
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"the-books-must-balance"}, CommonName: "localhost"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, host := range m.hosts {
		if ip := net.ParseIP(host); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, host)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to encode private key: %w", err)
	}

	if err := writePEM(m.certFile, "CERTIFICATE", der); err != nil {
		return tls.Certificate{}, err
	}
	if err := writePEM(m.keyFile, "EC PRIVATE KEY", keyDER); err != nil {
		return tls.Certificate{}, err
	}

	return tls.LoadX509KeyPair(m.certFile, m.keyFile)
}

// verify rejects certificates that expire soon or miss a configured host.
func (m *FileManager) verify(cert tls.Certificate) error {
	if len(cert.Certificate) == 0 {
		return fmt.Errorf("no certificates found")
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}

	now := m.now()
	if now.Before(leaf.NotBefore) {
		return fmt.Errorf("certificate not yet valid")
	}
	if now.Add(renewBefore).After(leaf.NotAfter) {
		return fmt.Errorf("certificate expires %s", leaf.NotAfter.Format(time.DateOnly))
	}

	for _, host := range m.hosts {
		if err := leaf.VerifyHostname(host); err != nil {
			return fmt.Errorf("certificate not valid for %s: %w", host, err)
		}
	}
	return nil
}

func (m *FileManager) remove() error {
	for _, path := range []string{m.certFile, m.keyFile} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

func writePEM(path, blockType string, der []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to open %s for writing: %w", path, err)
	}

	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
