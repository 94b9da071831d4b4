package xml

import (
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"

	xmlparser "github.com/rezonia/ubl-pdf/internal/parser/xml"
	"github.com/rezonia/ubl-pdf/internal/signature"
)

// XMLDSigNamespace is the namespace of enveloped signature elements
const XMLDSigNamespace = "http://www.w3.org/2000/09/xmldsig#"

var errNoCertificate = errors.New("no X509Certificate found in Signature")

// ExtractionResult contains the extracted signature and related elements
type ExtractionResult struct {
	// SignatureElement is the first Signature element in the document
	SignatureElement *etree.Element
	// SignedElement is the UBL document element the signature covers
	SignedElement *etree.Element
	// Certificates holds the KeyInfo certificates, signer first
	Certificates []*x509.Certificate
	// CertError is set when the signer certificate could not be read
	CertError error
	// SignedAt is the XAdES signing time, when present
	SignedAt *time.Time
}

// SignatureExtractor finds XMLDSig signatures in UBL documents
type SignatureExtractor struct{}

// NewSignatureExtractor creates a new signature extractor
func NewSignatureExtractor() *SignatureExtractor {
	return &SignatureExtractor{}
}

// Extract parses data and returns the first Signature element, matched by
// local name wherever it sits (UBLExtensions or directly under the root)
func (e *SignatureExtractor) Extract(data []byte) (*ExtractionResult, error) {
	tree, err := xmlparser.Read(data)
	if err != nil {
		return nil, signature.ErrMalformedDocument(err)
	}

	sig := xmlparser.FindDescendant(tree.DocumentElement(), "Signature")
	if sig == nil {
		return nil, signature.ErrNoSignature()
	}

	result := &ExtractionResult{
		SignatureElement: sig,
		SignedElement:    tree.Root(),
		SignedAt:         extractSigningTime(sig),
	}
	result.Certificates, result.CertError = extractCertificates(sig)
	return result, nil
}

// extractCertificates decodes every KeyInfo/X509Data/X509Certificate in order
func extractCertificates(sig *etree.Element) ([]*x509.Certificate, error) {
	keyInfo := xmlparser.FindChild(sig, "KeyInfo")
	var certs []*x509.Certificate
	for _, data := range xmlparser.FindChildren(keyInfo, "X509Data") {
		for _, el := range xmlparser.FindChildren(data, "X509Certificate") {
			der, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(xmlparser.RawText(el)), ""))
			if err != nil {
				return certs, fmt.Errorf("failed to decode certificate: %w", err)
			}
			cert, err := x509.ParseCertificate(der)
			if err != nil {
				return certs, fmt.Errorf("failed to parse certificate: %w", err)
			}
			certs = append(certs, cert)
		}
	}
	if len(certs) == 0 {
		return nil, errNoCertificate
	}
	return certs, nil
}

var signingTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// extractSigningTime reads the XAdES SigningTime inside the signature
func extractSigningTime(sig *etree.Element) *time.Time {
	text := xmlparser.Text(xmlparser.FindDescendant(sig, "SigningTime"))
	if text == "" {
		return nil
	}
	for _, layout := range signingTimeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return &t
		}
	}
	return nil
}
