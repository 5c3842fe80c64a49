package manager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"rasad/pkg/types"
)

// maxChatResponse caps the upstream body read by Chat.
const maxChatResponse = 4 << 20

// Chat forwards a message to the running endpoint of name and returns the
// upstream JSON body unchanged.
func (m *Manager) Chat(ctx context.Context, name string, req types.ChatRequest) (json.RawMessage, error) {
	if !ValidProjectName(name) {
		return nil, ErrValidation("invalid project name %q", name)
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrValidation("message is required")
	}
	if req.Sender == "" {
		req.Sender = "user"
	}
	port, ok := m.registry.port(name)
	if !ok {
		return nil, ErrPrecondition(fmt.Sprintf("inference for %q is not running", name))
	}

	payload, err := json.Marshal(map[string]string{"sender": req.Sender, "message": req.Message})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ChatTimeout)
	defer cancel()
	url := fmt.Sprintf("http://127.0.0.1:%d/webhooks/rest/webhook", port)
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	resp, err := m.cfg.HTTPClient.Do(hreq)
	if err != nil {
		return nil, upstreamError{err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxChatResponse))
	if err != nil {
		return nil, upstreamError{status: resp.StatusCode, err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, upstreamError{status: resp.StatusCode, body: body}
	}
	return json.RawMessage(body), nil
}
