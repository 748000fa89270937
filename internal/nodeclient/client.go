// Package nodeclient talks to the storage endpoints of other docstore hosts.
// Calls are single attempts; the caller decides what a failure means.
package nodeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"docstore/internal/model"
)

const (
	// HeaderNodeKey carries the shared secret between hosts.
	HeaderNodeKey = "X-Node-Key"
	// HeaderAppToken carries the calling application's token through to the peer.
	HeaderAppToken = "X-App-Token"

	AlivePath     = "/node/alive"
	DocumentsPath = "/node/documents"

	FormFile = "file"
	FormMeta = "meta"

	maxErrorBody = 4 << 10
)

// ErrNoAddress is returned when a server host has neither FQDN nor DNS name.
var ErrNoAddress = errors.New("server host has no address")

// ErrNotFound is wrapped by a TransportError when the peer answered 404.
var ErrNotFound = errors.New("not found on peer")

// TransportError describes a failed call to a peer.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("nodeclient %s %s", e.Op, e.URL)
	if e.StatusCode != 0 {
		msg += ": status " + strconv.Itoa(e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client is the peer-to-peer API used by the storage engine.
type Client interface {
	Alive(ctx context.Context, host *model.ServerHost) error
	Push(ctx context.Context, host *model.ServerHost, appToken string, t model.PeerTransfer) error
	Fetch(ctx context.Context, host *model.ServerHost, appToken string, t model.PeerTransfer) ([]byte, error)
	Delete(ctx context.Context, host *model.ServerHost, appToken string, t model.PeerTransfer) error
}

// Config configures HTTPClient.
type Config struct {
	NodeKey         string
	AliveTimeout    time.Duration
	TransferTimeout time.Duration
}

// HTTPClient implements Client over HTTP with traced transports.
type HTTPClient struct {
	nodeKey  string
	alive    *http.Client
	transfer *http.Client
	logger   *slog.Logger
}

// New builds an HTTPClient on top of http.DefaultTransport.
func New(cfg Config, logger *slog.Logger) *HTTPClient {
	return NewWithTransport(cfg, http.DefaultTransport, logger)
}

// NewWithTransport builds an HTTPClient over base, wrapped for tracing.
func NewWithTransport(cfg Config, base http.RoundTripper, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AliveTimeout <= 0 {
		cfg.AliveTimeout = 10 * time.Second
	}
	if cfg.TransferTimeout <= 0 {
		cfg.TransferTimeout = 60 * time.Second
	}
	rt := otelhttp.NewTransport(base)
	return &HTTPClient{
		nodeKey:  cfg.NodeKey,
		alive:    &http.Client{Transport: rt, Timeout: cfg.AliveTimeout},
		transfer: &http.Client{Transport: rt, Timeout: cfg.TransferTimeout},
		logger:   logger.With("component", "nodeclient"),
	}
}

// BaseURL is the root URL of a server host. FQDN wins over the DNS name.
func BaseURL(host *model.ServerHost) (string, error) {
	if host == nil {
		return "", ErrNoAddress
	}
	name := host.FQDN
	if name == "" {
		name = host.NameDNS
	}
	if name == "" {
		return "", fmt.Errorf("server host %d: %w", host.ID, ErrNoAddress)
	}
	scheme := "http"
	if host.IsHTTPS {
		scheme = "https"
	}
	return scheme + "://" + name, nil
}

// Alive reports whether the peer answers its liveness endpoint.
func (c *HTTPClient) Alive(ctx context.Context, host *model.ServerHost) error {
	u, err := endpoint(host, AlivePath, nil)
	if err != nil {
		return &TransportError{Op: "alive", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &TransportError{Op: "alive", URL: u, Err: err}
	}
	c.authorize(req, "")
	_, err = c.do(c.alive, req, "alive", http.StatusOK, http.StatusNoContent)
	return err
}

// Push sends a replica to the peer, which writes it under t.StoragePath on t.StorageNodeID.
func (c *HTTPClient) Push(ctx context.Context, host *model.ServerHost, appToken string, t model.PeerTransfer) error {
	u, err := endpoint(host, DocumentsPath, nil)
	if err != nil {
		return &TransportError{Op: "push", Err: err}
	}

	meta, err := json.Marshal(t)
	if err != nil {
		return &TransportError{Op: "push", URL: u, Err: err}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField(FormMeta, string(meta)); err != nil {
		return &TransportError{Op: "push", URL: u, Err: err}
	}
	fw, err := mw.CreateFormFile(FormFile, t.FileName)
	if err != nil {
		return &TransportError{Op: "push", URL: u, Err: err}
	}
	if _, err := fw.Write(t.Bytes); err != nil {
		return &TransportError{Op: "push", URL: u, Err: err}
	}
	if err := mw.Close(); err != nil {
		return &TransportError{Op: "push", URL: u, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return &TransportError{Op: "push", URL: u, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req, appToken)

	if _, err := c.do(c.transfer, req, "push", http.StatusOK, http.StatusCreated, http.StatusNoContent); err != nil {
		return err
	}
	c.logger.Debug("replica_pushed", "url", u, "storage_node_id", t.StorageNodeID, "file_name", t.FileName, "bytes", len(t.Bytes))
	return nil
}

// Fetch reads a file the peer holds.
func (c *HTTPClient) Fetch(ctx context.Context, host *model.ServerHost, appToken string, t model.PeerTransfer) ([]byte, error) {
	u, err := endpoint(host, DocumentsPath, transferQuery(t))
	if err != nil {
		return nil, &TransportError{Op: "fetch", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TransportError{Op: "fetch", URL: u, Err: err}
	}
	c.authorize(req, appToken)
	return c.do(c.transfer, req, "fetch", http.StatusOK)
}

// Delete removes a file the peer holds. A missing file is not an error on the peer side.
func (c *HTTPClient) Delete(ctx context.Context, host *model.ServerHost, appToken string, t model.PeerTransfer) error {
	u, err := endpoint(host, DocumentsPath, transferQuery(t))
	if err != nil {
		return &TransportError{Op: "delete", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return &TransportError{Op: "delete", URL: u, Err: err}
	}
	c.authorize(req, appToken)
	_, err = c.do(c.transfer, req, "delete", http.StatusOK, http.StatusNoContent)
	return err
}

func (c *HTTPClient) authorize(req *http.Request, appToken string) {
	req.Header.Set(HeaderNodeKey, c.nodeKey)
	if appToken != "" {
		req.Header.Set(HeaderAppToken, appToken)
	}
}

func (c *HTTPClient) do(hc *http.Client, req *http.Request, op string, ok ...int) ([]byte, error) {
	u := req.URL.String()
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, URL: u, Err: err}
	}
	defer resp.Body.Close()

	for _, code := range ok {
		if resp.StatusCode == code {
			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, &TransportError{Op: op, URL: u, StatusCode: resp.StatusCode, Err: err}
			}
			return data, nil
		}
	}

	te := &TransportError{Op: op, URL: u, StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	if resp.StatusCode == http.StatusNotFound {
		te.Err = ErrNotFound
	}
	c.logger.Warn("peer_call_failed", "op", op, "url", u, "status", resp.StatusCode, "message", te.Message)
	return nil, te
}

// errorMessage pulls the message out of a standard error envelope, falling back to raw text.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return string(bytes.TrimSpace(raw))
}

func endpoint(host *model.ServerHost, p string, q url.Values) (string, error) {
	base, err := BaseURL(host)
	if err != nil {
		return "", err
	}
	u, err := url.JoinPath(base, p)
	if err != nil {
		return "", err
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u, nil
}

func transferQuery(t model.PeerTransfer) url.Values {
	q := url.Values{}
	q.Set("storageNodeId", strconv.FormatInt(t.StorageNodeID, 10))
	q.Set("storagePath", t.StoragePath)
	q.Set("fileName", t.FileName)
	return q
}
