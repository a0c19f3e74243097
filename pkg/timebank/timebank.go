// Package timebank provides the public API for embedding the Timebank
// networking layer. This is the stable API for external consumers.
package timebank

import (
	"github.com/kendovivi/timebank-client/internal/config"
	"github.com/kendovivi/timebank-client/internal/connectivity"
	"github.com/kendovivi/timebank-client/internal/dispatch"
	"github.com/kendovivi/timebank-client/internal/domain"
	"github.com/kendovivi/timebank-client/internal/mainloop"
	"github.com/kendovivi/timebank-client/internal/media"
	"github.com/kendovivi/timebank-client/internal/runtime"
	"github.com/kendovivi/timebank-client/internal/session"
	"github.com/kendovivi/timebank-client/internal/webapi"
)

// Client owns the dispatcher, media loader and endpoint catalogue.
// See internal/runtime.Client for full documentation.
type Client = runtime.Client

// Option is a functional option for configuring a Client.
type Option = runtime.Option

// New creates a new Client with the given options.
// Example:
//
//	c, err := timebank.New(
//	    timebank.WithFileConfig("timebank.yaml"),
//	    timebank.WithSQLiteSession("./data/prefs.db"),
//	)
var New = runtime.New

// Configuration options
var (
	WithConfig            = runtime.WithConfig
	WithFileConfig        = runtime.WithFileConfig
	WithLogger            = runtime.WithLogger
	WithSessionStore      = runtime.WithSessionStore
	WithSQLiteSession     = runtime.WithSQLiteSession
	WithConnectivity      = runtime.WithConnectivity
	WithHTTPClient        = runtime.WithHTTPClient
	WithActivityIndicator = runtime.WithActivityIndicator
	WithExecutor          = runtime.WithExecutor
	WithTracing           = runtime.WithTracing
)

// Configuration
type Config = config.Config

var (
	LoadConfig    = config.Load
	DefaultConfig = config.Default
)

// Results and errors
type (
	APIError   = domain.APIError
	ErrorKind  = domain.ErrorKind
	Result     = domain.Result
	Completion = domain.Completion
)

var KindOf = domain.KindOf

// Error kinds
const (
	KindOffline                 = domain.KindOffline
	KindInvalidURL              = domain.KindInvalidURL
	KindHTTP                    = domain.KindHTTP
	KindTransport               = domain.KindTransport
	KindEmptyBody               = domain.KindEmptyBody
	KindMalformedJSON           = domain.KindMalformedJSON
	KindLoginTokenInvalid       = domain.KindLoginTokenInvalid
	KindValidationFailed        = domain.KindValidationFailed
	KindOAuthTokenInvalid       = domain.KindOAuthTokenInvalid
	KindSessionExpired          = domain.KindSessionExpired
	KindOrderRejected           = domain.KindOrderRejected
	KindExerciseRejected        = domain.KindExerciseRejected
	KindSignInFailed            = domain.KindSignInFailed
	KindUserAlreadyExists       = domain.KindUserAlreadyExists
	KindOAuthAlreadyLinked      = domain.KindOAuthAlreadyLinked
	KindEmailExistsWithoutOAuth = domain.KindEmailExistsWithoutOAuth
	KindMaintenance             = domain.KindMaintenance
	KindUnexpected              = domain.KindUnexpected
	KindOther                   = domain.KindOther
	KindIO                      = domain.KindIO
)

// Injection points
type (
	Executor          = mainloop.Executor
	ExecutorFunc      = mainloop.ExecutorFunc
	SessionStore      = session.Store
	Guard             = connectivity.Guard
	GuardFunc         = connectivity.GuardFunc
	ActivityIndicator = dispatch.ActivityIndicator
)

var NewCountingIndicator = dispatch.NewCountingIndicator

// Media
type (
	Slot        = media.Slot
	ImageResult = media.ImageResult
	AudioResult = media.AudioResult
)

// Endpoint catalogue
type (
	API             = webapi.API
	Settings        = webapi.Settings
	OAuthCredential = webapi.OAuthCredential
	BankAccount     = webapi.BankAccount
	Order           = webapi.Order
	Answer          = webapi.Answer
	Transmission    = webapi.Transmission
)
