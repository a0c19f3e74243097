// Package dispatch sends API requests, classifies their outcome and hands
// the result back on the main execution context.
package dispatch

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
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kendovivi/timebank-client/internal/classify"
	"github.com/kendovivi/timebank-client/internal/connectivity"
	"github.com/kendovivi/timebank-client/internal/domain"
	"github.com/kendovivi/timebank-client/internal/mainloop"
	"github.com/kendovivi/timebank-client/internal/session"
	"github.com/kendovivi/timebank-client/internal/workerpool"
)

const tracerName = "github.com/kendovivi/timebank-client/internal/dispatch"

// ErrClosed is the cause attached to calls made after Close.
var ErrClosed = errors.New("dispatcher closed")

// Dispatcher executes RequestDescriptors. It is safe for concurrent use.
type Dispatcher struct {
	client       *http.Client
	guard        connectivity.Guard
	session      session.Store
	main         mainloop.Executor
	pool         *workerpool.Pool
	ownsPool     bool
	indicator    ActivityIndicator
	policy       RetryPolicy
	identity     atomic.Pointer[ClientIdentity]
	emulatePatch bool
	logger       *slog.Logger
	tracer       trace.Tracer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient sets the HTTP client used for every attempt.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		d.client = c
	}
}

// WithGuard sets the connectivity pre-flight check.
func WithGuard(g connectivity.Guard) Option {
	return func(d *Dispatcher) {
		d.guard = g
	}
}

// WithSession sets the token store.
func WithSession(s session.Store) Option {
	return func(d *Dispatcher) {
		d.session = s
	}
}

// WithPool shares a worker pool. The dispatcher does not close it.
func WithPool(p *workerpool.Pool) Option {
	return func(d *Dispatcher) {
		d.pool = p
	}
}

// WithIndicator sets the network activity hook.
func WithIndicator(i ActivityIndicator) Option {
	return func(d *Dispatcher) {
		d.indicator = i
	}
}

// WithRetryPolicy overrides the default timeout and retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(d *Dispatcher) {
		d.policy = p
	}
}

// WithIdentity sets the client identification headers.
func WithIdentity(id ClientIdentity) Option {
	return func(d *Dispatcher) {
		d.identity.Store(&id)
	}
}

// WithEmulatePatch sends every PATCH as POST plus X-HTTP-Method-Override.
func WithEmulatePatch(enabled bool) Option {
	return func(d *Dispatcher) {
		d.emulatePatch = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithTracerProvider sets where dispatch spans are recorded.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Dispatcher) {
		d.tracer = tp.Tracer(tracerName)
	}
}

// New creates a dispatcher that delivers completions on main.
func New(main mainloop.Executor, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		main:      main,
		guard:     connectivity.Always,
		session:   session.NewMemoryStore(),
		indicator: NopIndicator{},
		policy:    DefaultRetryPolicy(),
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}
	id := DefaultIdentity()
	d.identity.Store(&id)

	for _, opt := range opts {
		opt(d)
	}

	if d.client == nil {
		d.client = &http.Client{}
	}
	if d.pool == nil {
		d.pool = workerpool.New(workerpool.DefaultSize)
		d.ownsPool = true
	}
	if err := d.policy.Validate(); err != nil {
		d.logger.Warn("invalid retry policy, using default", slog.String("error", err.Error()))
		d.policy = DefaultRetryPolicy()
	}
	return d
}

// Session returns the token store used for authenticated calls.
func (d *Dispatcher) Session() session.Store {
	return d.session
}

// Identity returns the current client identification.
func (d *Dispatcher) Identity() ClientIdentity {
	return *d.identity.Load()
}

// SetIdentity replaces the client identification for subsequent calls.
func (d *Dispatcher) SetIdentity(id ClientIdentity) {
	d.identity.Store(&id)
}

// Close stops the worker pool if the dispatcher created it.
func (d *Dispatcher) Close() {
	if d.ownsPool {
		d.pool.Close()
	}
}

// AfterFunc post-processes a classified result on the worker, before it is
// handed to the main context. It may perform blocking I/O.
type AfterFunc func(domain.Result) domain.Result

// Execute runs desc in the background and calls onComplete exactly once on
// the main execution context. Execute itself never blocks on I/O.
func (d *Dispatcher) Execute(ctx context.Context, desc domain.RequestDescriptor, onComplete domain.Completion) {
	d.ExecuteWith(ctx, desc, nil, onComplete)
}

// ExecuteWith is Execute with a worker-side hook applied to every result,
// including calls rejected before reaching the transport. The reachability
// guard is consulted on the worker, so a probing guard never stalls main.
func (d *Dispatcher) ExecuteWith(ctx context.Context, desc domain.RequestDescriptor, after AfterFunc, onComplete domain.Completion) {
	if apiErr := classify.ValidateURL(desc.URL); apiErr != nil {
		d.reject(ctx, apiErr, after, onComplete)
		return
	}

	deliver := d.deliverOnce(onComplete)

	submitted := d.pool.Submit(ctx, func(ctx context.Context) {
		if !d.guard.IsReachable() {
			d.logger.Debug("network unreachable, skipping request", slog.String("url", desc.URL))
			res := domain.Result{Err: domain.NewAPIError(domain.KindOffline)}
			if after != nil {
				res = after(res)
			}
			deliver(res, false)
			return
		}

		d.BeginActivity()
		res := d.execute(ctx, desc)
		if after != nil {
			res = after(res)
		}
		deliver(res, true)
	})
	if !submitted {
		deliver(domain.Result{Err: domain.NewAPIError(domain.KindTransport).WithCause(ErrClosed)}, false)
	}
}

// reject delivers a failure that never reached the transport.
func (d *Dispatcher) reject(ctx context.Context, apiErr *domain.APIError, after AfterFunc, onComplete domain.Completion) {
	res := domain.Result{Err: apiErr}
	if after == nil {
		d.main.Post(func() { onComplete(res) })
		return
	}
	submitted := d.pool.Submit(ctx, func(context.Context) {
		res := after(res)
		d.main.Post(func() { onComplete(res) })
	})
	if !submitted {
		d.main.Post(func() { onComplete(res) })
	}
}

// BeginActivity shows the activity indicator on the main context.
func (d *Dispatcher) BeginActivity() {
	d.main.Post(d.indicator.Show)
}

// EndActivity hides the activity indicator on the main context.
func (d *Dispatcher) EndActivity() {
	d.main.Post(d.indicator.Hide)
}

// deliverOnce posts onComplete to main at most once. shown hides the
// indicator first, in the same main-context step.
func (d *Dispatcher) deliverOnce(onComplete domain.Completion) func(r domain.Result, shown bool) {
	var once sync.Once
	return func(r domain.Result, shown bool) {
		once.Do(func() {
			d.main.Post(func() {
				if shown {
					d.indicator.Hide()
				}
				onComplete(r)
			})
		})
	}
}

func (d *Dispatcher) execute(ctx context.Context, desc domain.RequestDescriptor) domain.Result {
	ctx, span := d.tracer.Start(ctx, "dispatch.execute", trace.WithAttributes(
		attribute.String("http.method", string(desc.Method)),
		attribute.String("url.full", desc.URL),
		attribute.Bool("timebank.requires_auth", desc.RequiresAuth),
	))
	defer span.End()

	start := time.Now()
	requestID := uuid.NewString()
	d.logger.Debug("dispatching request",
		slog.String("method", string(desc.Method)),
		slog.String("url", desc.URL),
		slog.String("request_id", requestID),
	)

	var out classify.Outcome
	status, body, apiErr := d.roundTrip(ctx, desc.URL, func(ctx context.Context) (*http.Request, error) {
		return d.newRequest(ctx, desc, requestID)
	})
	if apiErr != nil {
		out = classify.Outcome{Err: apiErr}
	} else {
		out = classify.Response(desc.URL, status, body)
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}

	if out.Err != nil && out.Err.Kind == domain.KindSessionExpired {
		if err := d.session.Clear(); err != nil {
			d.logger.Error("failed to clear expired session", slog.String("error", err.Error()))
		}
	}

	duration := time.Since(start)
	if out.Err != nil {
		span.SetAttributes(attribute.String("timebank.error_kind", string(out.Err.Kind)))
		if out.Err.BusinessStatus != 0 {
			span.SetAttributes(attribute.Int("timebank.business_status", out.Err.BusinessStatus))
		}
		span.SetStatus(codes.Error, out.Err.Error())
		d.logger.Warn("request failed",
			slog.String("method", string(desc.Method)),
			slog.String("url", desc.URL),
			slog.String("kind", string(out.Err.Kind)),
			slog.String("error", out.Err.Error()),
			slog.Duration("duration", duration),
		)
	} else {
		d.logger.Debug("request completed",
			slog.String("method", string(desc.Method)),
			slog.String("url", desc.URL),
			slog.Int("status", status),
			slog.Duration("duration", duration),
		)
	}
	return out.Result()
}

// FetchRaw downloads url without envelope classification. It blocks and is
// meant to run on a worker. Only non-200 statuses and transport failures
// are reported as errors.
func (d *Dispatcher) FetchRaw(ctx context.Context, rawURL string) ([]byte, *domain.APIError) {
	if !d.guard.IsReachable() {
		return nil, domain.NewAPIError(domain.KindOffline)
	}
	if apiErr := classify.ValidateURL(rawURL); apiErr != nil {
		return nil, apiErr
	}

	status, body, apiErr := d.roundTrip(ctx, rawURL, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		d.Identity().apply(req.Header)
		return req, nil
	})
	if apiErr != nil {
		return nil, apiErr
	}
	if status != http.StatusOK {
		return nil, domain.HTTPStatus(status)
	}
	return body, nil
}

// roundTrip runs attempts until one receives a response or the retry
// budget is spent. Each attempt builds a fresh request.
func (d *Dispatcher) roundTrip(ctx context.Context, target string, build func(context.Context) (*http.Request, error)) (int, []byte, *domain.APIError) {
	var lastErr *domain.APIError

	attempts := d.policy.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := d.policy.Delay(attempt)
			d.logger.Warn("retrying request",
				slog.String("url", target),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			if wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return 0, nil, classify.Transport(ctx.Err())
				case <-timer.C:
				}
			}
		}

		status, body, err := d.attempt(ctx, build)
		if err == nil {
			return status, body, nil
		}
		lastErr = classify.Transport(err)

		// Don't retry on cancellation or a URL the transport rejected
		if !classify.Retryable(ctx, lastErr) {
			break
		}
	}
	return 0, nil, lastErr
}

func (d *Dispatcher) attempt(ctx context.Context, build func(context.Context) (*http.Request, error)) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.policy.Timeout)
	defer cancel()

	req, err := build(ctx)
	if err != nil {
		return 0, nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (d *Dispatcher) newRequest(ctx context.Context, desc domain.RequestDescriptor, requestID string) (*http.Request, error) {
	method := string(desc.Method)
	target := desc.URL
	var body io.Reader

	if desc.Method == domain.MethodGet {
		if q := desc.Params.Query(); q != "" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + q
		}
	} else {
		payload, err := json.Marshal(desc.Params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	override := desc.Method == domain.MethodPatch && (desc.PatchViaOverride || d.emulatePatch)
	if override {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	id := d.Identity()
	req.Header.Set(HeaderContentType, "application/json")
	req.Header.Set(HeaderAccept, id.Accept())
	req.Header.Set(HeaderRequestID, requestID)
	id.apply(req.Header)
	if override {
		req.Header.Set(HeaderMethodOverride, http.MethodPatch)
	}
	if desc.RequiresAuth {
		if token, ok := d.session.Get(); ok {
			req.Header.Set(HeaderAuthorization, "Bearer "+token)
		}
	}
	return req, nil
}
