package trust

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"
)

// TrustStore holds the CA certificates signers must chain to. An empty
// store means no anchors are configured.
type TrustStore struct {
	roots     *x509.CertPool
	rootCerts []*x509.Certificate
	now       func() time.Time
}

// TrustStoreOption configures a TrustStore
type TrustStoreOption func(*TrustStore)

// WithCertificates adds anchors to the store
func WithCertificates(certs ...*x509.Certificate) TrustStoreOption {
	return func(s *TrustStore) {
		s.AddCertificates(certs...)
	}
}

// WithClock sets the time used for chain validation
func WithClock(now func() time.Time) TrustStoreOption {
	return func(s *TrustStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTrustStore creates a trust store without anchors
func NewTrustStore(opts ...TrustStoreOption) *TrustStore {
	store := &TrustStore{
		roots:     x509.NewCertPool(),
		rootCerts: make([]*x509.Certificate, 0),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// LoadFile creates a trust store from a PEM bundle. An empty path yields an
// empty store.
func LoadFile(path string, opts ...TrustStoreOption) (*TrustStore, error) {
	store := NewTrustStore(opts...)
	if path == "" {
		return store, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	if err := store.AddCertificatesFromPEM(data); err != nil {
		return nil, fmt.Errorf("failed to load CA file %s: %w", path, err)
	}
	return store, nil
}

// AddCertificate adds a single certificate to the trust store
func (s *TrustStore) AddCertificate(cert *x509.Certificate) {
	if cert != nil {
		s.roots.AddCert(cert)
		s.rootCerts = append(s.rootCerts, cert)
	}
}

// AddCertificates adds multiple certificates to the trust store
func (s *TrustStore) AddCertificates(certs ...*x509.Certificate) {
	for _, cert := range certs {
		s.AddCertificate(cert)
	}
}

// AddCertificatesFromPEM parses and adds every CERTIFICATE block in pemData
func (s *TrustStore) AddCertificatesFromPEM(pemData []byte) error {
	var added int
	for {
		block, rest := pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return fmt.Errorf("failed to parse certificate: %w", err)
			}
			s.AddCertificate(cert)
			added++
		}
		pemData = rest
	}
	if added == 0 {
		return fmt.Errorf("no certificates found in PEM data")
	}
	return nil
}

// VerifyChain verifies the certificate chain against trusted roots and
// returns the first valid chain, leaf first
func (s *TrustStore) VerifyChain(cert *x509.Certificate, intermediates []*x509.Certificate) ([]*x509.Certificate, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is nil")
	}

	var interPool *x509.CertPool
	if len(intermediates) > 0 {
		interPool = x509.NewCertPool()
		for _, inter := range intermediates {
			interPool.AddCert(inter)
		}
	}

	chains, err := cert.Verify(x509.VerifyOptions{
		Roots:         s.roots,
		Intermediates: interPool,
		CurrentTime:   s.now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return nil, err
	}
	if len(chains) == 0 {
		return nil, fmt.Errorf("no valid certificate chains found")
	}
	return chains[0], nil
}

// Now returns the store's notion of the current time
func (s *TrustStore) Now() time.Time {
	return s.now()
}

// Empty reports whether no anchors are configured
func (s *TrustStore) Empty() bool {
	return len(s.rootCerts) == 0
}

// RootCerts returns the anchors as a slice
func (s *TrustStore) RootCerts() []*x509.Certificate {
	return s.rootCerts
}
