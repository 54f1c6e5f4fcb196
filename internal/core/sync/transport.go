package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/bridgesync/bridgesync/internal/core/document"
	"github.com/bridgesync/bridgesync/internal/core/observability/log"
)

// PatchContentType is the media type of the PATCH request body.
const PatchContentType = "application/json-patch+json"

// Transport is the document endpoint as seen by the sync client.
type Transport interface {
	// LoadDocument fetches the full authoritative document.
	LoadDocument(ctx context.Context) (document.Value, error)

	// SubmitPatch transmits one atomic patch request.
	SubmitPatch(ctx context.Context, ops []document.Op) error
}

var _ Transport = (*HTTPTransport)(nil)

// HTTPTransport talks to the GET/PATCH document endpoint.
type HTTPTransport struct {
	client    *http.Client
	endpoint  string
	listField string
	logger    log.Log
}

// NewHTTPTransport builds a transport from the client config. A nil
// httpClient falls back to http.DefaultClient.
func NewHTTPTransport(cfg Config, httpClient *http.Client, logger log.Log) *HTTPTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPTransport{
		client:    httpClient,
		endpoint:  cfg.BaseURL + cfg.DocumentPath,
		listField: cfg.ListField,
		logger:    logger.With(log.String("component", "transport")),
	}
}

func (t *HTTPTransport) LoadDocument(ctx context.Context) (document.Value, error) {
	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint, nil)
	if err != nil {
		return document.Value{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Error("document load failed", log.String("request_id", requestID), log.Error(err))
		return document.Value{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.logger.Error("document load rejected",
			log.String("request_id", requestID),
			log.Int("status", resp.StatusCode))
		return document.Value{}, fmt.Errorf("%w: status %d", ErrLoadFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return document.Value{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	doc, err := document.Parse(body)
	if err != nil {
		return document.Value{}, fmt.Errorf("%w: %w", ErrInvalidDoc, err)
	}
	if err := t.validate(doc); err != nil {
		return document.Value{}, err
	}

	t.logger.Debug("document loaded", log.String("request_id", requestID))
	return doc, nil
}

func (t *HTTPTransport) SubmitPatch(ctx context.Context, ops []document.Op) error {
	requestID := uuid.NewString()

	body, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	req.Header.Set("Content-Type", PatchContentType)
	req.Header.Set("X-Request-Id", requestID)

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Error("patch request failed",
			log.String("request_id", requestID),
			log.Int("ops", len(ops)),
			log.Error(err))
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.logger.Error("patch rejected",
			log.String("request_id", requestID),
			log.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", ErrSaveFailed, resp.StatusCode)
	}

	t.logger.Debug("patch acknowledged",
		log.String("request_id", requestID),
		log.Int("ops", len(ops)))
	return nil
}

// validate checks the loaded document shape: a mapping carrying the
// configured top-level sequence field.
func (t *HTTPTransport) validate(doc document.Value) error {
	if doc.Kind() != document.KindMapping {
		return fmt.Errorf("%w: body is %s, want mapping", ErrInvalidDoc, doc.Kind())
	}
	field, ok := doc.Get(t.listField)
	if !ok {
		return fmt.Errorf("%w: missing %q field", ErrInvalidDoc, t.listField)
	}
	if field.Kind() != document.KindSequence {
		return fmt.Errorf("%w: %q is %s, want sequence", ErrInvalidDoc, t.listField, field.Kind())
	}
	return nil
}
