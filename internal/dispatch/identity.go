package dispatch

import (
	"fmt"
	"net/http"
	"strconv"
)

// Header names sent on every API call.
const (
	HeaderAccept         = "Accept"
	HeaderContentType    = "Content-Type"
	HeaderAuthorization  = "Authorization"
	HeaderMethodOverride = "X-HTTP-Method-Override"
	HeaderUserAgent      = "X-User-Agent"
	HeaderAdvertisingID  = "X-TIMEBANK-ADID"
	HeaderRequestID      = "X-Request-ID"
)

// ClientIdentity describes the app build and device for client
// identification headers.
type ClientIdentity struct {
	APIVersion    int
	AppName       string
	AppVersion    string
	DeviceModel   string
	OSVersion     string
	AdvertisingID string
}

// DefaultIdentity is used until the runtime supplies configuration.
func DefaultIdentity() ClientIdentity {
	return ClientIdentity{
		APIVersion:  1,
		AppName:     "Timebank",
		AppVersion:  "1.0.0",
		DeviceModel: "generic",
		OSVersion:   "unknown",
	}
}

// UserAgent formats the X-User-Agent value.
func (c ClientIdentity) UserAgent() string {
	return fmt.Sprintf("%s/%s (%s; Android %s)", c.AppName, c.AppVersion, c.DeviceModel, c.OSVersion)
}

// Accept formats the versioned Accept value.
func (c ClientIdentity) Accept() string {
	return "application/json, version=" + strconv.Itoa(c.APIVersion)
}

func (c ClientIdentity) apply(h http.Header) {
	h.Set(HeaderUserAgent, c.UserAgent())
	h.Set(HeaderAdvertisingID, c.AdvertisingID)
}
