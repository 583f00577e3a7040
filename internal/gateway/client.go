// Package gateway talks to the platform REST backend on behalf of a student.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"nutriplay-engine/internal/domain"
)

const defaultTimeout = 10 * time.Second

// APIError is a failed backend call: a non-2xx status or an envelope with success=false.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// Client implements app.Gateway over HTTP. The student's bearer token is read from the
// request context (see WithToken).
type Client struct {
	baseURL string
	base    http.RoundTripper
	timeout time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTransport replaces the underlying round tripper (tests use httptest servers' transports).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		base:    http.DefaultTransport,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenKey struct{}

// WithToken attaches a bearer token to ctx for outgoing calls.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token stored by WithToken.
func TokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// httpClient authenticates requests with the token in ctx.
func (c *Client) httpClient(ctx context.Context) (*http.Client, error) {
	token, ok := TokenFrom(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.base,
		},
	}, nil
}

// do sends body as JSON and decodes the envelope's data into out (when out is non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	hc, err := c.httpClient(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode, Message: env.Message}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", domain.ErrUnauthenticated, apiErr)
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, decodeErr)
	}
	if !env.Success {
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}

func (c *Client) StartSession(ctx context.Context, gameID string, level int) (string, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/sesiones/iniciar", startRequest{GameID: gameID, Level: level}, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("start session: empty session id")
	}
	return resp.ID, nil
}

func (c *Client) SubmitQuizAnswer(ctx context.Context, sessionID string, item domain.QuizItem, correct bool, responseSeconds int) error {
	return c.do(ctx, http.MethodPost, "/sesiones/nutrimental/respuesta", quizAnswerRequest{
		SessionID:    sessionID,
		Number:       item.Number,
		Topic:        item.Topic,
		Correct:      correct,
		ResponseTime: responseSeconds,
	}, nil)
}

func (c *Client) SubmitDiaryEntry(ctx context.Context, sessionID string, entry domain.DiaryEntry) error {
	return c.do(ctx, http.MethodPost, "/sesiones/reto7dias/registro", newDiaryRequest(sessionID, entry), nil)
}

func (c *Client) SubmitSurveyAnswer(ctx context.Context, sessionID string, item domain.SurveyItem, value int) error {
	return c.do(ctx, http.MethodPost, "/sesiones/coach/respuesta", surveyAnswerRequest{
		SessionID: sessionID,
		Number:    item.Number,
		Stage:     item.Stage,
		Value:     value,
	}, nil)
}

func (c *Client) FinishSession(ctx context.Context, sessionID string, points, elapsed int, completed bool) error {
	return c.do(ctx, http.MethodPut, "/sesiones/finalizar", finishRequest{
		SessionID: sessionID,
		Points:    points,
		Elapsed:   elapsed,
		Completed: completed,
	}, nil)
}

func (c *Client) FetchPoints(ctx context.Context) (int, error) {
	var points int
	if err := c.do(ctx, http.MethodGet, "/estudiantes/puntos", nil, &points); err != nil {
		return 0, err
	}
	return points, nil
}

func (c *Client) ListGames(ctx context.Context) ([]domain.GameProgress, error) {
	var rows []gameResponse
	if err := c.do(ctx, http.MethodGet, "/juegos/mi-progreso", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.GameProgress, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (c *Client) ListSessions(ctx context.Context) ([]domain.SessionRecord, error) {
	var rows []sessionResponse
	if err := c.do(ctx, http.MethodGet, "/sesiones/mis-sesiones", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.SessionRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (c *Client) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	var rows []notificationResponse
	if err := c.do(ctx, http.MethodGet, "/estudiantes/mis-notificaciones", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) error {
	return c.do(ctx, http.MethodPut, "/estudiantes/notificaciones/"+url.PathEscape(notificationID)+"/leer", nil, nil)
}
