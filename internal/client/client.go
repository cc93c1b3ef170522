// client — клиентский менеджер сессии: вход, регистрация, обмен и проверка
// токенов, хранение пары между запусками. Состояние живёт в явно переданном
// Session. Любой 401 на аутентифицированном вызове очищает сессию.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pribylovaa/agrichain-auth/internal/models"
)

const DefaultTimeout = 10 * time.Second

var (
	// ErrTimeout — запрос не уложился в таймаут.
	ErrTimeout = errors.New("request timed out")
	// ErrNetwork — запрос не дошёл до сервера или ответ не прочитан.
	ErrNetwork = errors.New("network error")
	// ErrSessionExpired — сервер ответил 401, сессия очищена.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotAuthenticated — в сессии нет нужного токена.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// APIError — ответ сервера с кодом >= 400.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Config struct {
	// BaseURL включает базовый путь API, например http://localhost:5000/api.
	BaseURL string
	Timeout time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	log     *slog.Logger

	sess  *Session
	store Store
}

// New создаёт клиент; nil store заменяется MemoryStore.
func New(cfg Config, sess *Session, store Store) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if store == nil {
		store = NewMemoryStore()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http:    cfg.HTTPClient,
		log:     cfg.Logger,
		sess:    sess,
		store:   store,
	}
}

// Session возвращает сессию клиента.
func (c *Client) Session() *Session { return c.sess }

// Restore поднимает сессию из хранилища. Без любого из двух ключей
// сессия не восстанавливается, и хранилище очищается.
func (c *Client) Restore() (bool, error) {
	const op = "client.Restore"

	ok, err := c.sess.restore(c.store.Load, c.store.Clear)
	switch {
	case errors.Is(err, ErrNoTokens):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

// SignupInput — данные регистрации.
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type authResponse struct {
	Data struct {
		User         models.User `json:"user"`
		Token        string      `json:"token"`
		RefreshToken string      `json:"refreshToken"`
	} `json:"data"`
}

// Register регистрирует пользователя и открывает сессию.
func (c *Client) Register(ctx context.Context, in SignupInput) (*models.User, error) {
	return c.authenticate(ctx, "client.Register", "/users/signup", in)
}

// Login выполняет вход и открывает сессию.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}

	return c.authenticate(ctx, "client.Login", "/users/signin", body)
}

func (c *Client) authenticate(ctx context.Context, op, path string, body any) (*models.User, error) {
	c.sess.begin()

	var resp authResponse
	if err := c.send(ctx, http.MethodPost, path, body, "", &resp); err != nil {
		c.drop(op, errorMessage(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := resp.Data.User
	if err := c.sess.fulfil(&user, resp.Data.Token, resp.Data.RefreshToken, c.store.Save); err != nil {
		return &user, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

// RefreshToken обменивает refresh-токен на новую пару.
// Любая ошибка очищает сессию и сохранённые токены.
func (c *Client) RefreshToken(ctx context.Context) error {
	const op = "client.RefreshToken"

	_, refresh := c.sess.tokens()
	if refresh == "" {
		c.expire(op, ErrNotAuthenticated)
		return fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	c.sess.begin()

	var resp struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	body := struct {
		RefreshToken string `json:"refreshToken"`
	}{refresh}

	if err := c.send(ctx, http.MethodPost, "/users/refresh", body, "", &resp); err != nil {
		c.expire(op, err)
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.sess.updateTokens(resp.Token, resp.RefreshToken, c.store.Save); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// VerifyToken проверяет access-токен на сервере и обновляет пользователя.
// Любая ошибка очищает сессию и сохранённые токены.
func (c *Client) VerifyToken(ctx context.Context) (*models.User, error) {
	const op = "client.VerifyToken"

	access, _ := c.sess.tokens()
	if access == "" {
		c.expire(op, ErrNotAuthenticated)
		return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	c.sess.begin()

	var resp struct {
		Data models.User `json:"data"`
	}
	if err := c.send(ctx, http.MethodGet, "/users/verify", nil, access, &resp); err != nil {
		c.expire(op, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := resp.Data
	c.sess.updateUser(&user)

	return &user, nil
}

// Logout — чисто локальный переход: сервер не вызывается.
func (c *Client) Logout() error {
	const op = "client.Logout"

	if err := c.sess.reset(c.store.Clear); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Do выполняет аутентифицированный вызов с Bearer-токеном.
// 401 очищает сессию и возвращает ErrSessionExpired.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	const op = "client.Do"

	access, _ := c.sess.tokens()
	if access == "" {
		return fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	if err := c.send(ctx, method, path, body, access, out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			c.expire(op, apiErr)
			return fmt.Errorf("%s: %w: %w", op, ErrSessionExpired, apiErr)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Profile — GET /users/profile.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var resp struct {
		Data models.User `json:"data"`
	}
	if err := c.Do(ctx, http.MethodGet, "/users/profile", nil, &resp); err != nil {
		return nil, err
	}

	return &resp.Data, nil
}

func (c *Client) expire(op string, cause error) {
	c.drop(op, errorMessage(cause))
	c.log.Info("session_cleared", slog.String("op", op), slog.String("reason", errorMessage(cause)))
}

// drop очищает сессию вместе с хранилищем; ошибка хранилища только логируется.
func (c *Client) drop(op, msg string) {
	if err := c.sess.reject(msg, c.store.Clear); err != nil {
		c.log.Warn("store_clear_failed", slog.String("op", op), slog.String("err", err.Error()))
	}
}

// send выполняет запрос с фиксированным таймаутом и раскладывает ошибки
// на ErrTimeout, ErrNetwork и *APIError.
func (c *Client) send(ctx context.Context, method, path string, body any, token string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}

		return &APIError{Status: resp.StatusCode, Code: e.Code, Message: e.Message}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return transportError(err)
	}

	return nil
}

func transportError(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// errorMessage — сообщение для показа пользователю.
func errorMessage(err error) string {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, ErrTimeout):
		return ErrTimeout.Error()
	case errors.Is(err, ErrNetwork):
		return ErrNetwork.Error()
	default:
		return err.Error()
	}
}
