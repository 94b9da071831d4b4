package xml

import (
	"context"
	"crypto/x509"
	"errors"

	dsig "github.com/russellhaering/goxmldsig"
	"go.uber.org/zap"

	"github.com/rezonia/ubl-pdf/internal/processor"
	"github.com/rezonia/ubl-pdf/internal/signature"
	"github.com/rezonia/ubl-pdf/internal/signature/trust"
)

// IntegrityOnlyWarning is reported when no trust anchors are configured
const IntegrityOnlyWarning = "no trust anchors configured: signature checked for integrity only, signer is untrusted"

// XMLVerifier verifies enveloped XMLDSig signatures on UBL documents
type XMLVerifier struct {
	trustStore *trust.TrustStore
	extractor  *SignatureExtractor
	logger     *zap.Logger
}

// Option configures the verifier
type Option func(*XMLVerifier)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(v *XMLVerifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewXMLVerifier creates a verifier checking signers against ts. A nil or
// empty store selects integrity-only mode.
func NewXMLVerifier(ts *trust.TrustStore, opts ...Option) *XMLVerifier {
	if ts == nil {
		ts = trust.NewTrustStore()
	}
	v := &XMLVerifier{
		trustStore: ts,
		extractor:  NewSignatureExtractor(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify verifies the signature in data. An error is returned only when
// nothing could be verified: malformed input or no signature at all.
// Verification failures are reported in the result.
func (v *XMLVerifier) Verify(ctx context.Context, data []byte) (*signature.VerificationResult, error) {
	result := signature.NewVerificationResult()
	result.Format = signature.FormatXML

	if err := ctx.Err(); err != nil {
		return result, err
	}

	extraction, err := v.extractor.Extract(data)
	if err != nil {
		result.AddError(err.Error())
		return result, err
	}

	result.SignatureFound = true
	result.SignedAt = extraction.SignedAt

	if extraction.CertError != nil {
		result.AddError(signature.ErrMissingCert(extraction.CertError).Error())
		result.ComputeValidity()
		return result, nil
	}

	leaf := extraction.Certificates[0]
	result.SetSigner(leaf)
	v.checkValidityPeriod(result, leaf)
	v.checkChain(result, leaf, extraction.Certificates[1:])

	// goxmldsig only accepts certificates found in its store, so the chain is
	// checked above and the store is pinned to the signer
	validationCtx := dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{
		Roots: []*x509.Certificate{leaf},
	})
	if _, err := validationCtx.Validate(extraction.SignedElement); err != nil {
		result.AddError(signature.ErrInvalidSignature(err).Error())
	} else {
		result.SignatureValid = true
	}

	result.ComputeValidity()
	v.logger.Debug("Signature verified",
		zap.Bool("valid", result.Valid),
		zap.Bool("integrity_only", result.IntegrityOnly),
		zap.String("signer", leaf.Subject.CommonName))
	return result, nil
}

func (v *XMLVerifier) checkValidityPeriod(result *signature.VerificationResult, cert *x509.Certificate) {
	now := v.trustStore.Now()
	switch {
	case now.Before(cert.NotBefore):
		result.AddError(signature.ErrCertNotYetValid(cert.Subject.CommonName).Error())
	case now.After(cert.NotAfter):
		result.AddError(signature.ErrCertExpired(cert.Subject.CommonName).Error())
	}
}

func (v *XMLVerifier) checkChain(result *signature.VerificationResult, leaf *x509.Certificate, intermediates []*x509.Certificate) {
	if v.trustStore.Empty() {
		result.IntegrityOnly = true
		result.AddWarning(IntegrityOnlyWarning)
		return
	}

	chain, err := v.trustStore.VerifyChain(leaf, intermediates)
	if err != nil {
		result.AddError(signature.ErrChainInvalid(err).Error())
		return
	}
	result.CertChain = chain
	result.CertChainValid = true
}

// CanVerify returns true if the data appears to be XML
func (v *XMLVerifier) CanVerify(data []byte) bool {
	return processor.DetectFormat(data) == processor.FormatXML
}

// Format returns the format this verifier handles
func (v *XMLVerifier) Format() string {
	return signature.FormatXML
}

// IsNoSignature reports whether err means the document carries no signature
func IsNoSignature(err error) bool {
	return errors.Is(err, signature.ErrNoSignature())
}
