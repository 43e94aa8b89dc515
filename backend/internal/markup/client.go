package markup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"draftServer/backend/internal/draft"
)

// Client 调用外部 markup 服务：小节标注与把变更落到全文。
// baseURL 不要带路径，这里自己拼接，避免 double slash。
type Client struct {
	base   string
	client *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type annotateRequest struct {
	DraftID string `json:"draftId"`
	Content string `json:"content"`
}

type annotateResponse struct {
	Sections []draft.Section `json:"sections"`
}

type applyRequest struct {
	Content string               `json:"content"`
	Change  *draft.SectionChange `json:"change"`
}

type applyResponse struct {
	Content string `json:"content"`
}

func (c *Client) Annotate(ctx context.Context, draftID, content string) ([]draft.Section, error) {
	var out annotateResponse
	err := c.post(ctx, "/v1/markup/annotate", annotateRequest{DraftID: draftID, Content: content}, &out)
	if err != nil {
		return nil, err
	}
	return out.Sections, nil
}

func (c *Client) ApplyChangeToContent(ctx context.Context, content string, change *draft.SectionChange) (string, error) {
	var out applyResponse
	err := c.post(ctx, "/v1/markup/apply-change", applyRequest{Content: content, Change: change}, &out)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("markup upstream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("markup upstream: %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("markup upstream: invalid response: %w", err)
	}
	return nil
}
