package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	pdfparser "github.com/rezonia/ubl-pdf/internal/parser/pdf"
	xmlparser "github.com/rezonia/ubl-pdf/internal/parser/xml"
	"github.com/rezonia/ubl-pdf/internal/processor"
	"github.com/rezonia/ubl-pdf/internal/signature"
	"github.com/rezonia/ubl-pdf/internal/signature/trust"
	sigxml "github.com/rezonia/ubl-pdf/internal/signature/xml"
)

const (
	// DefaultMaxBodyBytes caps request bodies when Config leaves it unset
	DefaultMaxBodyBytes = 32 << 20

	processTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	fallbackID      = "unknown"
)

// Config holds server configuration
type Config struct {
	Address          string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	MaxBodyBytes     int64
	ValidateEmbedded bool
	Debug            bool
}

// Server represents the HTTP API server
type Server struct {
	config           *Config
	router           *gin.Engine
	registry         *xmlparser.Registry
	pipeline         *processor.Pipeline
	summaryPipeline  *processor.Pipeline
	verifierRegistry *signature.VerifierRegistry
	trustStore       *trust.TrustStore
	logger           *zap.Logger
}

// Option configures the server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTrustStore sets the anchors used by the verify endpoint
func WithTrustStore(ts *trust.TrustStore) Option {
	return func(s *Server) {
		if ts != nil {
			s.trustStore = ts
		}
	}
}

// NewServer creates a new API server
func NewServer(config *Config, opts ...Option) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:     config,
		router:     gin.New(),
		registry:   xmlparser.NewRegistry(),
		trustStore: trust.NewTrustStore(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	var decoderOpts []pdfparser.Option
	if config.ValidateEmbedded {
		decoderOpts = append(decoderOpts, pdfparser.WithValidation())
	}
	decoder := pdfparser.NewDecoder(decoderOpts...)

	s.pipeline = processor.NewPipeline(
		processor.WithRegistry(s.registry),
		processor.WithDecoder(decoder),
		processor.WithLogger(s.logger),
	)
	s.summaryPipeline = processor.NewPipeline(
		processor.WithRegistry(s.registry),
		processor.WithSkipEmbedded(true),
		processor.WithLogger(s.logger),
	)
	s.verifierRegistry = signature.NewVerifierRegistry(
		sigxml.NewXMLVerifier(s.trustStore, sigxml.WithLogger(s.logger)),
	)

	s.router.Use(gin.Recovery(), requestIDMiddleware(), s.loggingMiddleware(), s.bodyLimitMiddleware())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/process", s.handleProcess)
		v1.POST("/render", s.handleRender)
		v1.POST("/extract", s.handleExtract)
		v1.POST("/parse", s.handleParse)
		v1.POST("/verify", s.handleVerify)
		v1.POST("/info", s.handleInfo)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("address", s.config.Address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// readBody returns the request body, or writes 400/413 and returns false
func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.abort(c, http.StatusRequestEntityTooLarge, "request body too large",
				fmt.Sprintf("limit is %d bytes", maxErr.Limit), nil)
			return nil, false
		}
		s.abort(c, http.StatusBadRequest, "failed to read request body", err.Error(), nil)
		return nil, false
	}
	if len(body) == 0 {
		s.abort(c, http.StatusBadRequest, "empty request body", "", nil)
		return nil, false
	}
	return body, true
}

func (s *Server) abort(c *gin.Context, status int, msg, details string, warnings []string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     msg,
		Details:   details,
		Warnings:  warnings,
		RequestID: c.GetString(requestIDKey),
	})
}

// process runs the pipeline and writes 422 when the document failed
func (s *Server) process(c *gin.Context, p *processor.Pipeline) (*processor.Result, bool) {
	body, ok := s.readBody(c)
	if !ok {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), processTimeout)
	defer cancel()

	result := p.Process(ctx, body)
	if result.Error != nil {
		_ = c.Error(result.Error)
		s.abort(c, http.StatusUnprocessableEntity, "processing failed", result.Error.Error(), result.Warnings)
		return nil, false
	}
	return result, true
}

func (s *Server) handleProcess(c *gin.Context) {
	p := s.pipeline
	if embedded, err := strconv.ParseBool(c.DefaultQuery("embedded", "true")); err == nil && !embedded {
		p = s.summaryPipeline
	}

	result, ok := s.process(c, p)
	if !ok {
		return
	}

	id := result.InvoiceID(c.DefaultQuery("fallback_id", fallbackID))
	outputs := make([]OutputFile, 0, len(result.Outputs))
	for _, o := range result.Outputs {
		outputs = append(outputs, OutputFile{
			Suffix:   string(o.Suffix),
			FileName: processor.FileName(id, o.Suffix),
			Size:     len(o.Data),
			Content:  o.Data,
		})
	}

	c.JSON(http.StatusOK, ProcessResponse{
		Invoice:  result.Invoice,
		Outputs:  outputs,
		Warnings: result.Warnings,
	})
}

func (s *Server) handleRender(c *gin.Context) {
	result, ok := s.process(c, s.summaryPipeline)
	if !ok {
		return
	}
	s.writePDF(c, result, processor.SuffixGenerated)
}

func (s *Server) handleExtract(c *gin.Context) {
	result, ok := s.process(c, s.pipeline)
	if !ok {
		return
	}

	if result.Attachment == nil {
		s.abort(c, http.StatusNotFound, "no embedded PDF attachment", "", result.Warnings)
		return
	}
	if result.Output(processor.SuffixEmbedded) == nil {
		s.abort(c, http.StatusUnprocessableEntity, "embedded attachment could not be decoded", "", result.Warnings)
		return
	}
	s.writePDF(c, result, processor.SuffixEmbedded)
}

func (s *Server) writePDF(c *gin.Context, result *processor.Result, suffix processor.Suffix) {
	out := result.Output(suffix)
	name := processor.FileName(result.InvoiceID(c.DefaultQuery("fallback_id", fallbackID)), suffix)

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	for _, w := range result.Warnings {
		c.Writer.Header().Add("X-Warning", w)
	}
	c.Data(http.StatusOK, "application/pdf", out.Data)
}

func (s *Server) handleParse(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	tree, err := xmlparser.Read(body)
	if err != nil {
		s.abort(c, http.StatusUnprocessableEntity, "XML parsing failed", err.Error(), nil)
		return
	}

	inv, warnings := s.registry.Extract(tree)
	c.JSON(http.StatusOK, ParseResponse{
		Invoice:    inv,
		Attachment: xmlparser.Locate(tree),
		Warnings:   warnings,
	})
}

func (s *Server) handleInfo(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	format := processor.DetectFormat(body)
	resp := InfoResponse{
		Format:   format.String(),
		MimeType: processor.MimeType(body),
		Size:     len(body),
	}

	switch format {
	case processor.FormatXML:
		if tree, err := xmlparser.Read(body); err == nil {
			inv, _ := s.registry.Extract(tree)
			resp.DocumentType = string(inv.DocumentType)
			resp.InvoiceID = inv.ID
		}
	case processor.FormatPDF:
		if info, err := pdfparser.Inspect(body); err == nil {
			resp.PDF = info
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleVerify(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	verifier, err := s.verifierRegistry.Detect(body)
	if err != nil {
		s.abort(c, http.StatusBadRequest, "unsupported file format for signature verification", err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), processTimeout)
	defer cancel()

	result, err := verifier.Verify(ctx, body)
	if err != nil {
		s.abort(c, http.StatusUnprocessableEntity, "signature verification failed", err.Error(), result.Warnings)
		return
	}

	response := VerifyResponse{
		Valid:          result.Valid,
		SignatureFound: result.SignatureFound,
		SignatureValid: result.SignatureValid,
		CertChainValid: result.CertChainValid,
		IntegrityOnly:  result.IntegrityOnly,
		Format:         result.Format,
		SignedAt:       result.SignedAt,
		Warnings:       result.Warnings,
		Errors:         result.Errors,
	}
	if result.Signer != nil {
		response.Signer = &SignerInfoOutput{
			Name:         result.Signer.Name,
			Organization: result.Signer.Organization,
			SerialNumber: result.Signer.SerialNumber,
			Issuer:       result.Signer.Issuer,
			ValidFrom:    &result.Signer.ValidFrom,
			ValidTo:      &result.Signer.ValidTo,
		}
	}

	if result.Valid {
		c.JSON(http.StatusOK, response)
	} else {
		c.JSON(http.StatusUnprocessableEntity, response)
	}
}
