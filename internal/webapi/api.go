// Package webapi is the typed endpoint catalogue of the Timebank backend.
// Every call builds a request descriptor and hands it to the dispatcher;
// completions arrive on the main execution context.
package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kendovivi/timebank-client/internal/dispatch"
	"github.com/kendovivi/timebank-client/internal/domain"
	"github.com/kendovivi/timebank-client/internal/session"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.timebank.jp"

// Doer executes descriptors. *dispatch.Dispatcher implements it.
type Doer interface {
	ExecuteWith(ctx context.Context, desc domain.RequestDescriptor, after dispatch.AfterFunc, onComplete domain.Completion)
}

// Ensure Dispatcher implements Doer
var _ Doer = (*dispatch.Dispatcher)(nil)

// API groups the backend endpoints.
type API struct {
	doer     Doer
	session  session.Store
	baseURL  string
	mediaURL string
	settings atomic.Pointer[Settings]
	newUUID  func() string
	logger   *slog.Logger
}

// Option configures an API.
type Option func(*API)

// WithBaseURL sets the API root.
func WithBaseURL(u string) Option {
	return func(a *API) {
		a.baseURL = strings.TrimRight(u, "/")
	}
}

// WithMediaUploadURL sets the root used for media uploads.
func WithMediaUploadURL(u string) Option {
	return func(a *API) {
		a.mediaURL = strings.TrimRight(u, "/")
	}
}

// WithUUIDSource replaces the generator for idempotency keys.
func WithUUIDSource(fn func() string) Option {
	return func(a *API) {
		a.newUUID = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		a.logger = l
	}
}

// New creates the endpoint catalogue. store receives the token from
// sign-in responses and is cleared on sign-out.
func New(doer Doer, store session.Store, opts ...Option) *API {
	a := &API{
		doer:    doer,
		session: store,
		baseURL: DefaultBaseURL,
		newUUID: uuid.NewString,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	s := DefaultSettings()
	a.settings.Store(&s)
	return a
}

// BaseURL returns the API root.
func (a *API) BaseURL() string {
	return a.baseURL
}

func (a *API) url(format string, args ...any) string {
	return a.baseURL + a.path(format, args...)
}

func (a *API) path(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

func (a *API) execute(ctx context.Context, desc domain.RequestDescriptor, onComplete domain.Completion) {
	a.doer.ExecuteWith(ctx, desc, nil, onComplete)
}

// page returns non-empty paging params when a page or limit was given.
func page(p domain.Params, key string, n, limit int) domain.Params {
	if n == 0 && limit == 0 {
		return p
	}
	return p.Set(key, n).Set("limit", limit)
}

// storeToken persists the jwt of a sign-in style response. The partial
// payload of OAuthAlreadyLinked carries a token too.
func (a *API) storeToken(res domain.Result) domain.Result {
	if !res.HasPayload() {
		return res
	}
	if res.Err != nil && res.Err.Kind != domain.KindOAuthAlreadyLinked {
		return res
	}

	var body struct {
		JWT *string `json:"jwt"`
	}
	if err := json.Unmarshal(res.Payload, &body); err != nil || body.JWT == nil {
		return res
	}
	if err := a.session.Set(*body.JWT); err != nil {
		a.logger.Error("failed to persist session token", slog.String("error", err.Error()))
		res.Err = domain.NewAPIError(domain.KindIO).WithCause(err)
	}
	return res
}

// clearToken forgets the session whatever the sign-out outcome was.
func (a *API) clearToken(res domain.Result) domain.Result {
	if err := a.session.Clear(); err != nil {
		a.logger.Error("failed to clear session token", slog.String("error", err.Error()))
		if res.Err == nil {
			res.Err = domain.NewAPIError(domain.KindIO).WithCause(err)
		}
	}
	return res
}
