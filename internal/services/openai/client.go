package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultHTTPTimeout    = 600 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3

	srtResponseFormat = "srt"
)

// SubtitleTranslationPrompt is the system prompt for chat-based SRT translation.
const SubtitleTranslationPrompt = "You are a translation expert proficient in various languages that can only translate text and cannot interpret it. Translate user's input into %s.\n\nThe format of input is SRT. Translate the subtitle content only.\n\nDo not change the format of the input."

// Config captures the runtime settings required to talk to the service.
type Config struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	TranslationModel   string
	TimeoutSeconds     int
	RetryAttempts      int
}

// Client wraps the audio and chat completion endpoints.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:             strings.TrimSpace(cfg.APIKey),
			BaseURL:            strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TranscriptionModel: strings.TrimSpace(cfg.TranscriptionModel),
			TranslationModel:   strings.TrimSpace(cfg.TranslationModel),
			TimeoutSeconds:     cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	if cfg.RetryAttempts > 0 {
		client.retryMaxAttempts = cfg.RetryAttempts
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.TranscriptionModel == "" {
		client.cfg.TranscriptionModel = "whisper-1"
	}
	if client.cfg.TranslationModel == "" {
		client.cfg.TranslationModel = "gpt-4-turbo"
	}
	return client
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("openai request: http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

// StatusCode extracts the HTTP status from an error returned by the client,
// or 0 when the failure was not an HTTP status.
func StatusCode(err error) int {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// Transcribe uploads audio to the transcription endpoint and returns SRT text.
// language is an optional ISO-639-1 hint.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	fields := map[string]string{"language": strings.TrimSpace(language)}
	return c.uploadAudio(ctx, "audio/transcriptions", "openai transcribe", audio, filename, fields)
}

// TranslateAudio uploads audio to the translation endpoint, which always
// produces English, and returns SRT text.
func (c *Client) TranslateAudio(ctx context.Context, audio []byte, filename string) (string, error) {
	return c.uploadAudio(ctx, "audio/translations", "openai translate audio", audio, filename, nil)
}

func (c *Client) uploadAudio(ctx context.Context, endpoint, op string, audio []byte, filename string, fields map[string]string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%s: empty audio", op)
	}
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%s: api key required", op)
	}
	if strings.TrimSpace(filename) == "" {
		filename = "chunk.mp3"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("%s: build form: %w", op, err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("%s: build form: %w", op, err)
	}
	formFields := map[string]string{
		"model":           c.cfg.TranscriptionModel,
		"response_format": srtResponseFormat,
	}
	for key, value := range fields {
		if value != "" {
			formFields[key] = value
		}
	}
	for _, key := range []string{"model", "response_format", "language"} {
		value, ok := formFields[key]
		if !ok {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("%s: build form: %w", op, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%s: build form: %w", op, err)
	}

	payload := body.Bytes()
	contentType := writer.FormDataContentType()
	return c.withRetry(ctx, op, func() (string, error) {
		respBody, err := c.post(ctx, endpoint, contentType, payload)
		if err != nil {
			return "", err
		}
		return string(respBody), nil
	})
}

// TranslateSubtitles translates a batch of SRT text into language using the
// chat completion endpoint. model overrides the configured translation model
// when non-empty.
func (c *Client) TranslateSubtitles(ctx context.Context, srtText, language, model string) (string, error) {
	const op = "openai translate subtitles"
	if strings.TrimSpace(srtText) == "" {
		return "", fmt.Errorf("%s: empty input", op)
	}
	if strings.TrimSpace(language) == "" {
		return "", fmt.Errorf("%s: target language required", op)
	}
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%s: api key required", op)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = c.cfg.TranslationModel
	}
	request := chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(SubtitleTranslationPrompt, strings.TrimSpace(language))},
			{Role: "user", Content: srtText},
		},
		Temperature: 0,
	}
	encoded, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("%s: encode body: %w", op, err)
	}
	return c.withRetry(ctx, op, func() (string, error) {
		respBody, err := c.post(ctx, "chat/completions", "application/json", encoded)
		if err != nil {
			return "", err
		}
		var completion chatCompletionResponse
		if err := json.Unmarshal(respBody, &completion); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if completion.Error != nil {
			return "", fmt.Errorf("api error: %s", strings.TrimSpace(completion.Error.Message))
		}
		for _, choice := range completion.Choices {
			if content := stripCodeFenceBlock(choice.Message.Content); content != "" {
				return content, nil
			}
		}
		return "", &emptyContentError{Snippet: summarizePayloadSnippet(string(respBody))}
	})
}

// Ping lists models to confirm the credentials and base URL are usable.
func (c *Client) Ping(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("openai ping: api key required")
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "models")
	if err != nil {
		return fmt.Errorf("openai ping: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("openai ping: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai ping: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("openai ping: %w", &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}
	return nil
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type emptyContentError struct {
	Snippet string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("empty content (response_snippet=%s)", e.Snippet)
}

func (c *Client) post(ctx context.Context, endpoint, contentType string, payload []byte) ([]byte, error) {
	target, err := url.JoinPath(c.cfg.BaseURL, endpoint)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	return body, nil
}

func (c *Client) withRetry(ctx context.Context, op string, attempt func() (string, error)) (string, error) {
	attempts := c.retryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for n := 1; n <= attempts; n++ {
		result, err := attempt()
		if err == nil {
			return result, nil
		}
		lastErr = err
		delay, retry := c.retryDelay(ctx, err, n, attempts)
		if !retry {
			if n == 1 {
				return "", fmt.Errorf("%s: %w", op, err)
			}
			return "", fmt.Errorf("%s: failed after %d attempts: %w", op, n, err)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}
	return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var emptyErr *emptyContentError
	if errors.As(err, &emptyErr) {
		return c.backoffDelay(attempt), true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

// backoffDelay doubles from the base delay: attempt 1 -> base, 2 -> base*2, ...
func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if c.retryMaxDelay > 0 && delay > c.retryMaxDelay/2 {
			delay = c.retryMaxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

// stripCodeFenceBlock removes a surrounding ``` fence that chat models
// sometimes wrap SRT output in.
func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		// Drop a language label such as ```srt.
		if label := strings.TrimSpace(body[:newline]); !strings.Contains(label, " ") {
			body = body[newline+1:]
		}
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
