package llm

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"doc-splitter/pkg/config"

	"github.com/Role1776/gigago"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	providerGigaChat = "gigachat"

	gigaChatBaseURL  = "https://gigachat.devices.sberbank.ru/api/v1"
	gigaChatOAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"

	gigaChatTemperature = 0.1
)

// GigaChat implements Client on top of the GigaChat API.
// Text chat goes through gigago; vision goes through the REST files + completions endpoints.
type GigaChat struct {
	client     *gigago.Client
	cfg        *config.GigaChatConfig
	retry      RetryConfig
	templates  *Templates
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
	oauthURL   string

	mu          sync.Mutex
	accessToken string // cached for file uploads and vision requests
}

var _ Client = (*GigaChat)(nil)

func NewGigaChat(ctx context.Context, cfg *config.LLMConfig, templates *Templates, logger *zap.Logger) (*GigaChat, error) {
	gc := cfg.GigaChat

	opts := []gigago.Option{
		gigago.WithCustomScope(gc.Scope),
	}
	if gc.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, gc.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if gc.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	g := &GigaChat{
		client:     client,
		cfg:        &gc,
		retry:      RetryConfig{MaxRetries: cfg.MaxRetries, BaseDelay: time.Second, MaxDelay: 20 * time.Second},
		templates:  templates,
		logger:     logger,
		httpClient: httpClient,
		baseURL:    gigaChatBaseURL,
		oauthURL:   gigaChatOAuthURL,
	}

	if _, err := g.refreshToken(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	logger.Info("GigaChat client ready", zap.String("model", gc.Model))
	return g, nil
}

// Chat sends the conversation through gigago. System messages become the system instruction.
func (g *GigaChat) Chat(ctx context.Context, messages []Message) (string, error) {
	start := time.Now()

	var system []string
	var convo []gigago.Message
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleUser:
			convo = append(convo, gigago.Message{Role: gigago.RoleUser, Content: m.Content})
		default:
			return "", fmt.Errorf("gigachat: unsupported message role %q", m.Role)
		}
	}

	text, err := RetryWithBackoff(ctx, g.retry, func() (string, error) {
		model := g.client.GenerativeModel(g.cfg.Model)
		model.SystemInstruction = strings.Join(system, "\n\n")
		model.Temperature = gigaChatTemperature

		resp, err := model.Generate(ctx, convo)
		if err != nil {
			return "", classifyGigaChatError(ctx, err)
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyResponse
		}
		return ExtractText(PlainText(resp.Choices[0].Message.Content)), nil
	}, IsRetryable)

	observe(providerGigaChat, kindChat, start, err)
	return text, err
}

// ChatWithVision uploads every image and asks the model with the files attached.
func (g *GigaChat) ChatWithVision(ctx context.Context, prompt string, images [][]byte, systemPrompt string) (string, error) {
	start := time.Now()

	text, err := RetryWithBackoff(ctx, g.retry, func() (string, error) {
		fileIDs := make([]string, 0, len(images))
		for i, img := range images {
			id, err := g.uploadImage(ctx, img, fmt.Sprintf("page-%d%s", i+1, imageExtension(img)))
			if err != nil {
				return "", fmt.Errorf("failed to upload image %d: %w", i+1, err)
			}
			fileIDs = append(fileIDs, id)
		}
		return g.visionCompletion(ctx, prompt, systemPrompt, fileIDs)
	}, IsRetryable)

	observe(providerGigaChat, kindVision, start, err)
	return text, err
}

func (g *GigaChat) PromptTemplate(name string, vars map[string]any) (string, error) {
	return g.templates.Render(name, vars)
}

func (g *GigaChat) Close() error {
	if g.client != nil {
		g.client.Close()
	}
	return nil
}

func (g *GigaChat) token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accessToken
}

// refreshToken obtains a new access token from the GigaChat OAuth endpoint.
// The API key is expected to be Base64-encoded already.
func (g *GigaChat) refreshToken(ctx context.Context) (string, error) {
	rqUID := uuid.New().String()

	formData := url.Values{}
	formData.Set("scope", g.cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.oauthURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create OAuth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", rqUID)
	req.Header.Set("Authorization", "Basic "+g.cfg.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		g.logger.Error("OAuth request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(bodyBytes)),
			zap.String("rq_uid", rqUID),
		)
		return "", fmt.Errorf("OAuth failed with status %d: %w", resp.StatusCode, ErrAuthFailed)
	}

	var oauthResp struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&oauthResp); err != nil {
		return "", fmt.Errorf("failed to decode OAuth response: %w", err)
	}
	if oauthResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token in OAuth response: %w", ErrAuthFailed)
	}

	g.mu.Lock()
	g.accessToken = oauthResp.AccessToken
	g.mu.Unlock()

	g.logger.Debug("GigaChat access token obtained", zap.Int64("expires_at", oauthResp.ExpiresAt))
	return oauthResp.AccessToken, nil
}

// doAuthorized sends the request built by build with the cached bearer token.
// On 401 the token is refreshed once and the request rebuilt and resent.
func (g *GigaChat) doAuthorized(ctx context.Context, build func(token string) (*http.Request, error)) (*http.Response, error) {
	req, err := build(g.token())
	if err != nil {
		return nil, err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, classifyGigaChatError(ctx, err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	token, err := g.refreshToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("token refresh after 401 failed: %w", err)
	}
	req, err = build(token)
	if err != nil {
		return nil, err
	}
	resp, err = g.httpClient.Do(req)
	if err != nil {
		return nil, classifyGigaChatError(ctx, err)
	}
	return resp, nil
}

// uploadImage stores one image through POST /files and returns its file id.
func (g *GigaChat) uploadImage(ctx context.Context, image []byte, fileName string) (string, error) {
	mimeType := http.DetectContentType(image)

	build := func(token string) (*http.Request, error) {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)

		// "general" lets uploaded files be used as attachments in completions.
		if err := writer.WriteField("purpose", "general"); err != nil {
			return nil, fmt.Errorf("failed to write purpose field: %w", err)
		}
		part, err := writer.CreatePart(map[string][]string{
			"Content-Type":        {mimeType},
			"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName)},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(image); err != nil {
			return nil, fmt.Errorf("failed to write image: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("failed to close writer: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/files", &body)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	}

	resp, err := g.doAuthorized(ctx, build)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", statusError("upload", resp.StatusCode, bodyBytes)
	}

	var uploadResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}

	g.logger.Debug("Image uploaded to GigaChat", zap.String("file_id", uploadResp.ID))
	return uploadResp.ID, nil
}

type gigaChatVisionMessage struct {
	Role        string   `json:"role"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments,omitempty"`
}

type gigaChatVisionRequest struct {
	Model       string                  `json:"model"`
	Messages    []gigaChatVisionMessage `json:"messages"`
	Temperature float64                 `json:"temperature"`
	Stream      bool                    `json:"stream"`
}

type gigaChatVisionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *GigaChat) visionCompletion(ctx context.Context, prompt, systemPrompt string, fileIDs []string) (string, error) {
	var messages []gigaChatVisionMessage
	if systemPrompt != "" {
		messages = append(messages, gigaChatVisionMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, gigaChatVisionMessage{Role: "user", Content: prompt, Attachments: fileIDs})

	jsonData, err := json.Marshal(gigaChatVisionRequest{
		Model:       g.cfg.Model,
		Messages:    messages,
		Temperature: gigaChatTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	build := func(token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	}

	resp, err := g.doAuthorized(ctx, build)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", statusError("vision", resp.StatusCode, bodyBytes)
	}

	var visionResp gigaChatVisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&visionResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(visionResp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return ExtractText(PlainText(visionResp.Choices[0].Message.Content)), nil
}

// statusError maps an HTTP status to the package sentinels.
func statusError(op string, status int, body []byte) error {
	msg := fmt.Sprintf("%s failed with status %d: %s", op, status, strings.TrimSpace(string(body)))
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", msg, ErrRateLimit)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, ErrAuthFailed)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", msg, ErrTimeout)
	case status >= 500:
		return fmt.Errorf("%s: %w", msg, ErrServer)
	default:
		return errors.New(msg)
	}
}

func classifyGigaChatError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("gigachat request timed out: %w", ErrTimeout)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() && ctx.Err() == nil {
		return fmt.Errorf("gigachat request timed out: %w", ErrTimeout)
	}
	return fmt.Errorf("gigachat request failed: %w", err)
}

func imageExtension(image []byte) string {
	switch http.DetectContentType(image) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
