// Package api is the typed client for the shipment backend. All order
// endpoints go through the authenticated pipeline; the auth endpoints talk
// to the transport directly so the pipeline's refresh state machine never
// recurses into itself.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PrabinKa/ShipMate/internal/domain"
	"github.com/PrabinKa/ShipMate/internal/pipeline"
	"github.com/PrabinKa/ShipMate/internal/session"
	apperrors "github.com/PrabinKa/ShipMate/pkg/errors"
)

type loginRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	ExpiresInMins int    `json:"expiresInMins,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type credentialResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Auth performs the credential endpoints on the raw transport.
type Auth struct {
	base    pipeline.Doer
	baseURL string
	expires int
}

// NewAuth creates the auth client. expiresInMins is sent with login
// requests; zero omits it.
func NewAuth(base pipeline.Doer, baseURL string, expiresInMins int) *Auth {
	return &Auth{
		base:    base,
		baseURL: strings.TrimRight(baseURL, "/"),
		expires: expiresInMins,
	}
}

// Login exchanges a username and password for a credential pair.
func (a *Auth) Login(ctx context.Context, username, password string) (session.Credentials, error) {
	var creds credentialResponse
	err := a.postJSON(ctx, "/auth/login", loginRequest{
		Username:      username,
		Password:      password,
		ExpiresInMins: a.expires,
	}, &creds)
	if err != nil {
		return session.Credentials{}, err
	}
	if creds.AccessToken == "" {
		return session.Credentials{}, apperrors.Internal(fmt.Errorf("login response missing access credential"))
	}
	return session.Credentials{Access: creds.AccessToken, Refresh: creds.RefreshToken}, nil
}

// Refresh exchanges a refresh credential for a new pair. It satisfies
// pipeline.RefreshFunc.
func (a *Auth) Refresh(ctx context.Context, refresh string) (session.Credentials, error) {
	var creds credentialResponse
	err := a.postJSON(ctx, "/auth/refresh", refreshRequest{RefreshToken: refresh}, &creds)
	if err != nil {
		return session.Credentials{}, err
	}
	if creds.AccessToken == "" {
		return session.Credentials{}, apperrors.Internal(fmt.Errorf("refresh response missing access credential"))
	}
	return session.Credentials{Access: creds.AccessToken, Refresh: creds.RefreshToken}, nil
}

func (a *Auth) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("encode %s request: %w", path, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return apperrors.Internal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.base.Do(ctx, req)
	if err != nil {
		return classifyAuthTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.NetworkUnreachable(err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return decodeError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Internal(fmt.Errorf("decode %s response: %w", path, err))
	}
	return nil
}

// Client is the typed order surface over the authenticated pipeline.
type Client struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// NewClient creates the order client.
func NewClient(p *pipeline.Pipeline, log *slog.Logger) *Client {
	return &Client{
		pipeline: p,
		logger:   log.With(slog.String("component", "api")),
	}
}

// CreateOrder submits a locally created order and returns the server's copy,
// which carries the assigned server identifier.
func (c *Client) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	body, err := json.Marshal(fromDomain(order))
	if err != nil {
		return domain.Order{}, apperrors.Internal(fmt.Errorf("encode order: %w", err))
	}

	resp, err := c.pipeline.Do(ctx, pipeline.Request{
		Method: http.MethodPost,
		Path:   "/orders",
		Body:   body,
	})
	if err != nil {
		return domain.Order{}, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return domain.Order{}, decodeError(resp.StatusCode, resp.Body)
	}

	var created serverOrder
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		return domain.Order{}, apperrors.Internal(fmt.Errorf("decode created order: %w", err))
	}
	if created.serverID() == "" {
		return domain.Order{}, apperrors.Internal(fmt.Errorf("created order missing server id"))
	}
	return created.toDomain(), nil
}

// ListOrders fetches the server's view of the user's orders. It accepts
// both a bare JSON array and an object wrapping the list under "orders".
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	resp, err := c.pipeline.Do(ctx, pipeline.Request{
		Method: http.MethodGet,
		Path:   "/orders",
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, resp.Body)
	}

	var wire []serverOrder
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		var wrapped struct {
			Orders []serverOrder `json:"orders"`
		}
		if werr := json.Unmarshal(resp.Body, &wrapped); werr != nil {
			return nil, apperrors.Internal(fmt.Errorf("decode order list: %w", err))
		}
		wire = wrapped.Orders
	}

	orders := make([]domain.Order, 0, len(wire))
	for _, o := range wire {
		if o.serverID() == "" {
			c.logger.Warn("skipping server order without id", slog.String("code", o.OrderCode))
			continue
		}
		orders = append(orders, o.toDomain())
	}
	return orders, nil
}

// decodeError maps a non-success backend response to the error taxonomy.
func decodeError(status int, body []byte) error {
	var payload apiError
	_ = json.Unmarshal(body, &payload)
	message := payload.Message
	if message == "" {
		message = payload.Error
	}
	if message == "" {
		message = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return apperrors.Unauthorized(message)
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(message)
	case status == http.StatusNotFound:
		return apperrors.NotFound("resource", message)
	default:
		return apperrors.Internal(fmt.Errorf("backend returned %d: %s", status, message))
	}
}

func classifyAuthTransport(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.NetworkUnreachable(err)
}
