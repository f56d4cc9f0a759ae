// Package gist talks to a Gist-style remote document store: each document
// is addressed by an opaque ID and holds a mapping from logical filename
// to string content. Reads work without a credential on public documents;
// writes require one.
package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error taxonomy for remote document access. Callers distinguish these
// with errors.Is.
var (
	ErrNotConfigured    = errors.New("remote document not configured")
	ErrUnauthorized     = errors.New("missing or invalid credential")
	ErrForbidden        = errors.New("credential lacks write scope")
	ErrNotFound         = errors.New("document not found")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrMalformedPayload = errors.New("malformed remote payload")
	ErrUnreachable      = errors.New("remote store unreachable")
)

const acceptHeader = "application/vnd.github.v3+json"

// Document is a fetched remote document, unwrapped to logical filename ->
// content.
type Document struct {
	ID        string
	Files     map[string]string
	UpdatedAt time.Time
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client against baseURL (e.g. the Gist API root). The
// timeout bounds every remote call so a broken network cannot stall the
// debounced write path.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type wireFile struct {
	Content string `json:"content"`
}

type wireDocument struct {
	ID          string              `json:"id"`
	Description string              `json:"description,omitempty"`
	Public      *bool               `json:"public,omitempty"`
	Files       map[string]wireFile `json:"files"`
	UpdatedAt   time.Time           `json:"updated_at,omitempty"`
}

// GetDocument fetches a document. The credential is optional; without one
// only public documents are readable.
func (c *Client) GetDocument(ctx context.Context, id, credential string) (*Document, error) {
	if id == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, id), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, credential)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readStatusError(resp.StatusCode)
	}

	var doc wireDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	files := make(map[string]string, len(doc.Files))
	for name, f := range doc.Files {
		files[name] = f.Content
	}

	return &Document{ID: doc.ID, Files: files, UpdatedAt: doc.UpdatedAt}, nil
}

// UpdateDocument overwrites the given logical files in place. The rest of
// the document is left untouched. Requires a write credential.
func (c *Client) UpdateDocument(ctx context.Context, id, credential, description string, files map[string]string) error {
	if id == "" {
		return ErrNotConfigured
	}
	if credential == "" {
		return ErrUnauthorized
	}

	body, err := marshalDocument(description, nil, files)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, fmt.Sprintf("%s/%s", c.baseURL, id), bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(req, credential)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return writeStatusError(resp.StatusCode)
	}

	return nil
}

// CreateDocument provisions a new secret document and returns its ID.
func (c *Client) CreateDocument(ctx context.Context, credential, description string, files map[string]string) (string, error) {
	if credential == "" {
		return "", ErrUnauthorized
	}

	public := false
	body, err := marshalDocument(description, &public, files)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.setHeaders(req, credential)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", writeStatusError(resp.StatusCode)
	}

	var doc wireDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return doc.ID, nil
}

func (c *Client) setHeaders(req *http.Request, credential string) {
	req.Header.Set("Accept", acceptHeader)
	if credential != "" {
		req.Header.Set("Authorization", "token "+credential)
	}
}

func marshalDocument(description string, public *bool, files map[string]string) ([]byte, error) {
	wire := wireDocument{
		Description: description,
		Public:      public,
		Files:       make(map[string]wireFile, len(files)),
	}
	for name, content := range files {
		wire.Files[name] = wireFile{Content: content}
	}
	return json.Marshal(wire)
}

// Unauthenticated reads hit the shared per-IP quota, so a 403 on the read
// path almost always means rate limiting rather than a scope problem.
func readStatusError(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrRateLimited
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrUnreachable, status)
	}
}

func writeStatusError(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrUnreachable, status)
	}
}
