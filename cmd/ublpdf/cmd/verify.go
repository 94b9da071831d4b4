package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rezonia/ubl-pdf/internal/signature"
	"github.com/rezonia/ubl-pdf/internal/signature/trust"
	sigxml "github.com/rezonia/ubl-pdf/internal/signature/xml"
)

var verifyFormat string

var verifyCmd = &cobra.Command{
	Use:   "verify [files...]",
	Short: "Verify XMLDSig signatures",
	Long: `Verify the enveloped XMLDSig signature of UBL documents.

Verifies:
  - Signature validity (digest and signature value)
  - Certificate chain to the anchors in --ca-file
  - Signer certificate validity period

Without --ca-file the embedded certificate is only used to check the
document's integrity and the signer is reported as untrusted.

Examples:
  ublpdf verify invoice.xml
  ublpdf verify --ca-file roots.pem invoice.xml
  ublpdf verify -f json signed/*.xml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("ca-file", "", "Trusted CA certificates (PEM)")
	verifyCmd.Flags().StringVarP(&verifyFormat, "format", "f", "table", "Output format (json, table)")

	mustBind("trust.ca_file", verifyCmd.Flags().Lookup("ca-file"))
}

// VerifyResult holds the result of verifying a single file
type VerifyResult struct {
	File           string                `json:"file"`
	Valid          bool                  `json:"valid"`
	Trusted        bool                  `json:"trusted"`
	Format         string                `json:"format,omitempty"`
	SignatureFound bool                  `json:"signature_found"`
	SignatureValid bool                  `json:"signature_valid"`
	CertChainValid bool                  `json:"cert_chain_valid"`
	IntegrityOnly  bool                  `json:"integrity_only,omitempty"`
	Signer         *signature.SignerInfo `json:"signer,omitempty"`
	SignedAt       *time.Time            `json:"signed_at,omitempty"`
	Errors         []string              `json:"errors,omitempty"`
	Warnings       []string              `json:"warnings,omitempty"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	trustStore, err := trust.LoadFile(cfg.Trust.CAFile)
	if err != nil {
		return fmt.Errorf("failed to create trust store: %w", err)
	}
	log.Debug("Trust store loaded",
		zap.String("ca_file", cfg.Trust.CAFile),
		zap.Int("anchors", len(trustStore.RootCerts())))

	registry := signature.NewVerifierRegistry(
		sigxml.NewXMLVerifier(trustStore, sigxml.WithLogger(log)),
	)

	results := make([]*VerifyResult, 0, len(args))
	allValid := true
	for _, file := range args {
		printVerbose("Verifying: %s\n", file)

		result := verifyFile(cmd.Context(), registry, file)
		results = append(results, result)
		if !result.Valid {
			allValid = false
		}
	}

	if verifyFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return err
		}
	} else {
		printVerifyTable(results)
	}

	if !allValid {
		return fmt.Errorf("verification failed for some files")
	}
	return nil
}

func verifyFile(ctx context.Context, registry *signature.VerifierRegistry, file string) *VerifyResult {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	result := &VerifyResult{File: file}

	data, err := os.ReadFile(file)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read file: %v", err))
		return result
	}

	verifier, err := registry.Detect(data)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.Format = verifier.Format()

	verifyResult, err := verifier.Verify(ctx, data)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Valid = verifyResult.Valid
	result.Trusted = verifyResult.IsTrusted()
	result.SignatureFound = verifyResult.SignatureFound
	result.SignatureValid = verifyResult.SignatureValid
	result.CertChainValid = verifyResult.CertChainValid
	result.IntegrityOnly = verifyResult.IntegrityOnly
	result.Signer = verifyResult.Signer
	result.SignedAt = verifyResult.SignedAt
	result.Errors = append(result.Errors, verifyResult.Errors...)
	result.Warnings = append(result.Warnings, verifyResult.Warnings...)
	return result
}

func printVerifyTable(results []*VerifyResult) {
	for _, r := range results {
		statusIcon := "✓"
		statusText := "VALID"
		switch {
		case !r.Valid:
			statusIcon = "✗"
			statusText = "INVALID"
		case !r.Trusted:
			statusText = "VALID (untrusted signer)"
		}
		fmt.Printf("%s %s: %s\n", statusIcon, r.File, statusText)

		if r.Signer != nil {
			fmt.Printf("  Signer: %s\n", r.Signer.Name)
			if r.Signer.Organization != "" {
				fmt.Printf("  Org:    %s\n", r.Signer.Organization)
			}
			if r.Signer.Issuer != "" {
				fmt.Printf("  Issuer: %s\n", r.Signer.Issuer)
			}
		}
		if r.SignedAt != nil {
			fmt.Printf("  Signed: %s\n", r.SignedAt.Format(time.RFC3339))
		}

		if r.SignatureFound {
			fmt.Printf("  Signature:  %s\n", mark(r.SignatureValid))
			if r.IntegrityOnly {
				fmt.Printf("  Cert Chain: - (no trust anchors)\n")
			} else {
				fmt.Printf("  Cert Chain: %s\n", mark(r.CertChainValid))
			}
		}

		for _, e := range r.Errors {
			fmt.Printf("  ✗ %s\n", e)
		}
		for _, w := range r.Warnings {
			fmt.Printf("  ⚠ %s\n", w)
		}
	}
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
