// Package pipeline implements the authenticated request pipeline. Every
// backend call flows through it; on an authorization failure it refreshes
// the session credentials exactly once regardless of how many requests hit
// the failure concurrently, then replays each request a single time.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PrabinKa/ShipMate/internal/notify"
	"github.com/PrabinKa/ShipMate/internal/session"
	apperrors "github.com/PrabinKa/ShipMate/pkg/errors"
	"github.com/PrabinKa/ShipMate/pkg/logger"
)

// maxResponseBytes bounds response bodies read into memory.
const maxResponseBytes = 4 << 20

// SessionStore is the credential surface the pipeline needs. Satisfied by
// *session.Session.
type SessionStore interface {
	Get() session.Credentials
	SetAccess(token string) error
	SetRefresh(token string) error
	Clear() error
}

// RefreshFunc exchanges a refresh credential for a new credential pair. It
// must talk to the backend directly, not through the pipeline.
type RefreshFunc func(ctx context.Context, refresh string) (session.Credentials, error)

// Request is a replayable backend request. Bodies are byte slices so a
// request can be sent again after a credential refresh.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte

	// SkipRefresh marks requests that must never trigger a credential
	// refresh, such as login and the refresh call itself.
	SkipRefresh bool
}

// Response is the buffered result of a backend request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Pipeline sends authenticated requests and coordinates single-flight
// credential refresh across concurrent callers.
type Pipeline struct {
	base     Doer
	baseURL  string
	session  SessionStore
	refresh  RefreshFunc
	notifier notify.Notifier
	logger   *slog.Logger

	mu         sync.Mutex
	refreshing bool
	waiters    []chan error
}

// New creates the pipeline. baseURL is the backend root without a trailing
// slash.
func New(base Doer, baseURL string, store SessionStore, refresh RefreshFunc, notifier notify.Notifier, log *slog.Logger) *Pipeline {
	return &Pipeline{
		base:     base,
		baseURL:  strings.TrimRight(baseURL, "/"),
		session:  store,
		refresh:  refresh,
		notifier: notifier,
		logger:   log.With(slog.String("component", "pipeline")),
	}
}

// Do executes the request. On a 401 it refreshes credentials (joining an
// in-flight refresh if one is already running) and replays the request once.
// A 401 on the replay is terminal. Requests with SkipRefresh set never
// trigger or wait on a refresh.
func (p *Pipeline) Do(ctx context.Context, req Request) (*Response, error) {
	creds := p.session.Get()

	if !req.SkipRefresh && creds.Access == "" {
		if creds.Refresh == "" {
			return nil, apperrors.SessionExpired(nil)
		}
		if err := p.awaitRefresh(ctx, creds.Access); err != nil {
			return nil, err
		}
		creds = p.session.Get()
	}

	resp, err := p.send(ctx, req, creds.Access)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || req.SkipRefresh {
		return resp, nil
	}

	logger.FromContext(ctx).Debug("authorization failure, refreshing credentials",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
	)

	if err := p.awaitRefresh(ctx, creds.Access); err != nil {
		return nil, err
	}

	replay, err := p.send(ctx, req, p.session.Get().Access)
	if err != nil {
		return nil, err
	}
	if replay.StatusCode == http.StatusUnauthorized {
		return nil, apperrors.Unauthorized("request rejected after credential refresh")
	}
	return replay, nil
}

// awaitRefresh ensures at most one refresh runs at a time. The first caller
// performs the refresh; everyone arriving while it runs parks on a waiter
// channel and is resumed, in arrival order, with the shared outcome.
// staleAccess is the credential the caller was rejected with, so a request
// whose 401 raced a completed refresh does not trigger a second one.
func (p *Pipeline) awaitRefresh(ctx context.Context, staleAccess string) error {
	p.mu.Lock()
	if p.refreshing {
		ch := make(chan error, 1)
		p.waiters = append(p.waiters, ch)
		p.mu.Unlock()
		refreshWaiters.Inc()

		select {
		case err := <-ch:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.refreshing = true
	p.mu.Unlock()

	err := p.doRefresh(ctx, staleAccess)

	p.mu.Lock()
	p.refreshing = false
	waiters := p.waiters
	p.waiters = nil
	p.mu.Unlock()

	for _, ch := range waiters {
		ch <- err
	}
	return err
}

// doRefresh performs the actual credential exchange. Any failure is
// terminal: the session is cleared so later requests fail fast instead of
// hammering the refresh endpoint.
func (p *Pipeline) doRefresh(ctx context.Context, staleAccess string) error {
	creds := p.session.Get()
	if creds.Access != staleAccess && creds.Access != "" {
		// Another caller already rotated the credentials.
		return nil
	}
	if creds.Refresh == "" {
		return apperrors.SessionExpired(nil)
	}

	next, err := p.refresh(ctx, creds.Refresh)
	if err != nil {
		refreshTotal.WithLabelValues("failure").Inc()
		if clearErr := p.session.Clear(); clearErr != nil {
			p.logger.Error("failed to clear session", slog.String("error", clearErr.Error()))
		}
		p.notifier.SessionExpired()
		return apperrors.SessionExpired(err)
	}

	if err := p.session.SetAccess(next.Access); err != nil {
		p.logger.Warn("failed to persist access credential", slog.String("error", err.Error()))
	}
	if next.Refresh != "" {
		if err := p.session.SetRefresh(next.Refresh); err != nil {
			p.logger.Warn("failed to persist refresh credential", slog.String("error", err.Error()))
		}
	}

	refreshTotal.WithLabelValues("success").Inc()
	p.logger.Info("credentials refreshed")
	return nil
}

// send performs one HTTP round trip and buffers the response body.
func (p *Pipeline) send(ctx context.Context, req Request, access string) (*Response, error) {
	u := p.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
		payload := req.Body
		httpReq.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		}
	}
	if access != "" {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		httpReq.Header.Set("X-Correlation-ID", cid)
	}

	httpResp, err := p.base.Do(ctx, httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.NetworkUnreachable(err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

func classifyTransportError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, apperrors.ErrNetworkUnreachable):
		return err
	default:
		return apperrors.NetworkUnreachable(err)
	}
}
