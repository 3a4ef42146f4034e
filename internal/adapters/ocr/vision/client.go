package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kmsconnect/kms-connect/internal/core/ocr"
)

const (
	// DefaultEndpoint は Cloud Vision の images:annotate エンドポイントです。
	DefaultEndpoint = "https://vision.googleapis.com/v1/images:annotate"

	featureDocumentText = "DOCUMENT_TEXT_DETECTION"
	maxErrorBody        = 4 << 10
)

// Client は Google Cloud Vision REST API による OCR プロバイダです。
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewClient は Client を生成します。httpClient が nil の場合はタイムアウト付きの既定クライアントを使用します。
func NewClient(endpoint, apiKey string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{endpoint: endpoint, apiKey: apiKey, http: httpClient}
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    image     `json:"image"`
	Features []feature `json:"features"`
}

type image struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

type annotateResponse struct {
	Responses []imageResponse `json:"responses"`
}

type imageResponse struct {
	FullTextAnnotation *struct {
		Text string `json:"text"`
	} `json:"fullTextAnnotation"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ExtractText は画像の全文テキストを返します。通信失敗・非 2xx・レスポンス内エラーは ocr.ErrProviderUnavailable として扱います。
func (c *Client) ExtractText(ctx context.Context, content []byte) (string, error) {
	body, err := json.Marshal(annotateRequest{Requests: []imageRequest{{
		Image:    image{Content: base64.StdEncoding.EncodeToString(content)},
		Features: []feature{{Type: featureDocumentText}},
	}}})
	if err != nil {
		return "", fmt.Errorf("encode vision request: %w", err)
	}

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse vision endpoint: %w", err)
	}
	if c.apiKey != "" {
		q := endpoint.Query()
		q.Set("key", c.apiKey)
		endpoint.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ocr.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%w: status %d: %s", ocr.ErrProviderUnavailable, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var decoded annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ocr.ErrProviderUnavailable, err)
	}
	if len(decoded.Responses) == 0 {
		return "", nil
	}

	first := decoded.Responses[0]
	if first.Error != nil && first.Error.Message != "" {
		return "", fmt.Errorf("%w: vision error %d: %s", ocr.ErrProviderUnavailable, first.Error.Code, first.Error.Message)
	}
	if first.FullTextAnnotation == nil {
		return "", nil
	}
	return first.FullTextAnnotation.Text, nil
}
