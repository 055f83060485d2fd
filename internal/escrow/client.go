package escrow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Releaser moves escrowed funds to the seller and the platform.
type Releaser interface {
	Release(ctx context.Context, req ReleaseRequest) (ReleaseResult, error)
}

type ReleaseRequest struct {
	EscrowID           string `json:"escrowId"`
	NetToSellerCents   int64  `json:"netToSellerCents"`
	FeeToPlatformCents int64  `json:"feeToPlatformCents"`
	Reference          string `json:"reference"`
}

// ReleaseResult mirrors the provider answer. Status and Body are filled only
// when the provider rejected the release.
type ReleaseResult struct {
	OK        bool   `json:"ok"`
	Reference string `json:"reference,omitempty"`
	Status    int    `json:"status,omitempty"`
	Body      string `json:"body,omitempty"`
}

// Client calls the escrow provider over HTTPS with a bearer token. There are
// no retries; callers surface failures as upstream errors.
type Client struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	HTTP *http.Client
}

type releaseResponse struct {
	OK        *bool  `json:"ok"`
	Reference string `json:"reference"`
}

func (c *Client) Release(ctx context.Context, req ReleaseRequest) (ReleaseResult, error) {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return ReleaseResult{}, errors.New("escrow base url is empty")
	}
	if strings.TrimSpace(req.EscrowID) == "" {
		return ReleaseResult{}, errors.New("escrow id is empty")
	}
	b, err := json.Marshal(req)
	if err != nil {
		return ReleaseResult{}, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/escrow/release", bytes.NewReader(b))
	if err != nil {
		return ReleaseResult{}, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	if tok := strings.TrimSpace(c.Token); tok != "" {
		hreq.Header.Set("Authorization", "Bearer "+tok)
	}
	hreq.Header.Set("Idempotency-Key", req.Reference)

	resp, err := c.httpClient().Do(hreq)
	if err != nil {
		return ReleaseResult{}, fmt.Errorf("escrow release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	bb, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ReleaseResult{}, fmt.Errorf("escrow release: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ReleaseResult{OK: false, Status: resp.StatusCode, Body: strings.TrimSpace(string(bb))}, nil
	}

	out := ReleaseResult{OK: true, Reference: req.Reference}
	if len(bytes.TrimSpace(bb)) == 0 {
		return out, nil
	}
	var rr releaseResponse
	if err := json.Unmarshal(bb, &rr); err != nil {
		return out, nil
	}
	if rr.OK != nil && !*rr.OK {
		return ReleaseResult{OK: false, Status: resp.StatusCode, Body: strings.TrimSpace(string(bb))}, nil
	}
	if strings.TrimSpace(rr.Reference) != "" {
		out.Reference = strings.TrimSpace(rr.Reference)
	}
	return out, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
