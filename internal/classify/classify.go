// Package classify turns a completed HTTP exchange into a payload and a
// classified error. It has no side effects: callers act on the returned
// error kind (the dispatcher clears the session on KindSessionExpired).
package classify

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/kendovivi/timebank-client/internal/domain"
)

// StatusSuccess is the business status of a successful envelope.
const StatusSuccess = 20

// businessKinds maps meta.status to an error kind. 20, 48 and the
// maintenance codes have extra handling in classifyEnvelope.
var businessKinds = map[int]domain.ErrorKind{
	40: domain.KindLoginTokenInvalid,
	41: domain.KindValidationFailed,
	42: domain.KindOAuthTokenInvalid,
	43: domain.KindSessionExpired,
	44: domain.KindOrderRejected,
	45: domain.KindExerciseRejected,
	46: domain.KindSignInFailed,
	47: domain.KindUserAlreadyExists,
	48: domain.KindOAuthAlreadyLinked,
	49: domain.KindEmailExistsWithoutOAuth,
	99: domain.KindUnexpected,
}

var maintenanceKinds = map[int]domain.MaintenanceKind{
	51: domain.MaintenanceDialog,
	52: domain.MaintenanceDialogWithDetail,
	53: domain.MaintenanceForcedWebView,
}

// Outcome is the verdict for one completed attempt.
type Outcome struct {
	Payload json.RawMessage
	Err     *domain.APIError
}

// Result converts the outcome into what completion callbacks receive.
func (o Outcome) Result() domain.Result {
	return domain.Result{Payload: o.Payload, Err: o.Err}
}

func failed(err *domain.APIError) Outcome {
	return Outcome{Err: err}
}

// Response classifies an HTTP response. body is nil when the response had
// no body at all.
func Response(url string, status int, body []byte) Outcome {
	switch status {
	case http.StatusCreated:
		if isAbsent(body) {
			return failed(domain.NewAPIError(domain.KindEmptyBody))
		}
		return Outcome{Payload: json.RawMessage(body)}
	case http.StatusOK:
		return classifyOK(url, body)
	default:
		return failed(domain.HTTPStatus(status))
	}
}

func classifyOK(url string, body []byte) Outcome {
	if len(bytes.TrimSpace(body)) == 0 {
		return failed(domain.NewAPIError(domain.KindEmptyBody))
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return failed(domain.MalformedJSON(url, http.StatusOK, body))
	}
	if top == nil {
		// literal null
		return failed(domain.NewAPIError(domain.KindEmptyBody))
	}

	if meta, ok := objectField(top, "meta"); ok {
		return classifyEnvelope(url, body, top, meta)
	}

	// Short-link responses carry no envelope.
	if isString(top["shortLink"]) && isString(top["previewLink"]) {
		return Outcome{Payload: json.RawMessage(body)}
	}
	return failed(domain.MalformedJSON(url, http.StatusOK, body))
}

func classifyEnvelope(url string, body []byte, top, meta map[string]json.RawMessage) Outcome {
	rawStatus, ok := meta["status"]
	if !ok {
		return failed(domain.MalformedJSON(url, http.StatusOK, body))
	}
	var status int
	if err := json.Unmarshal(rawStatus, &status); err != nil {
		return failed(domain.MalformedJSON(url, http.StatusOK, body))
	}

	rawMessages, ok := meta["message"]
	if !ok || isAbsent(rawMessages) {
		return failed(domain.MalformedJSON(url, http.StatusOK, body))
	}
	messages := []string{}
	if err := json.Unmarshal(rawMessages, &messages); err != nil {
		return failed(domain.MalformedJSON(url, http.StatusOK, body))
	}

	nested := nestedBody(top)

	switch status {
	case StatusSuccess:
		return Outcome{Payload: nested}
	case 48:
		err := domain.NewAPIError(domain.KindOAuthAlreadyLinked).
			WithMessages(messages).
			WithBusinessStatus(status)
		return Outcome{Payload: nested, Err: err}
	}

	if kind, ok := maintenanceKinds[status]; ok {
		detailURL := ""
		if kind != domain.MaintenanceDialog {
			detailURL = stringField(meta, "maintenance_webview_url")
		}
		return failed(domain.Maintenance(kind, messages, detailURL).WithBusinessStatus(status))
	}

	kind, ok := businessKinds[status]
	if !ok {
		kind = domain.KindOther
	}
	return failed(domain.NewAPIError(kind).WithMessages(messages).WithBusinessStatus(status))
}

// nestedBody returns body.body when it is a JSON object, nil otherwise.
func nestedBody(top map[string]json.RawMessage) json.RawMessage {
	raw, ok := top["body"]
	if !ok {
		return nil
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	return raw
}

func objectField(m map[string]json.RawMessage, key string) (map[string]json.RawMessage, bool) {
	raw, ok := m[key]
	if !ok {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func stringField(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func isString(raw json.RawMessage) bool {
	if isAbsent(raw) {
		return false
	}
	var s string
	return json.Unmarshal(raw, &s) == nil
}

func isAbsent(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
