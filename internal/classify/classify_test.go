package classify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"testing"

	"github.com/kendovivi/timebank-client/internal/domain"
)

const testURL = "https://api.example.com/talent/1"

func envelope(status int, extra string) []byte {
	return []byte(fmt.Sprintf(`{"meta":{"status":%d,"message":["m1","m2"]%s},"body":{"id":7}}`, status, extra))
}

func TestResponse_BusinessStatusTable(t *testing.T) {
	tests := []struct {
		status int
		kind   domain.ErrorKind
	}{
		{40, domain.KindLoginTokenInvalid},
		{41, domain.KindValidationFailed},
		{42, domain.KindOAuthTokenInvalid},
		{43, domain.KindSessionExpired},
		{44, domain.KindOrderRejected},
		{45, domain.KindExerciseRejected},
		{46, domain.KindSignInFailed},
		{47, domain.KindUserAlreadyExists},
		{49, domain.KindEmailExistsWithoutOAuth},
		{51, domain.KindMaintenance},
		{52, domain.KindMaintenance},
		{53, domain.KindMaintenance},
		{99, domain.KindUnexpected},
		{77, domain.KindOther},
		{0, domain.KindOther},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			out := Response(testURL, http.StatusOK, envelope(tt.status, ""))
			if out.Err == nil {
				t.Fatalf("expected error for status %d", tt.status)
			}
			if out.Err.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", out.Err.Kind, tt.kind)
			}
			if out.Err.BusinessStatus != tt.status {
				t.Errorf("BusinessStatus = %d, want %d", out.Err.BusinessStatus, tt.status)
			}
			if len(out.Err.Messages) != 2 || out.Err.Messages[0] != "m1" {
				t.Errorf("Messages = %v, want [m1 m2]", out.Err.Messages)
			}
			if out.Payload != nil {
				t.Errorf("Payload = %s, want nil", out.Payload)
			}
		})
	}
}

func TestResponse_SuccessReturnsNestedBody(t *testing.T) {
	out := Response(testURL, http.StatusOK, envelope(20, ""))
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if string(out.Payload) != `{"id":7}` {
		t.Errorf("Payload = %s, want {\"id\":7}", out.Payload)
	}
}

func TestResponse_SuccessWithoutBodyObject(t *testing.T) {
	out := Response(testURL, http.StatusOK, []byte(`{"meta":{"status":20,"message":[]},"body":[1,2]}`))
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Payload != nil {
		t.Errorf("Payload = %s, want nil for non-object body", out.Payload)
	}
}

func TestResponse_OAuthAlreadyLinkedCarriesPayloadAndError(t *testing.T) {
	out := Response(testURL, http.StatusOK, envelope(48, ""))
	if out.Err == nil || out.Err.Kind != domain.KindOAuthAlreadyLinked {
		t.Fatalf("Err = %v, want oauth_already_linked", out.Err)
	}
	if string(out.Payload) != `{"id":7}` {
		t.Errorf("Payload = %s, want nested body", out.Payload)
	}
	res := out.Result()
	if !res.HasPayload() || res.OK() {
		t.Errorf("Result should carry both payload and error: %+v", res)
	}
}

func TestResponse_MaintenanceDetailURL(t *testing.T) {
	extra := `,"maintenance_webview_url":"https://status.example.com"`
	tests := []struct {
		status  int
		kind    domain.MaintenanceKind
		wantURL string
	}{
		{51, domain.MaintenanceDialog, ""},
		{52, domain.MaintenanceDialogWithDetail, "https://status.example.com"},
		{53, domain.MaintenanceForcedWebView, "https://status.example.com"},
	}
	for _, tt := range tests {
		out := Response(testURL, http.StatusOK, envelope(tt.status, extra))
		if out.Err.Maintenance != tt.kind {
			t.Errorf("status %d: Maintenance = %v, want %v", tt.status, out.Err.Maintenance, tt.kind)
		}
		if out.Err.DetailURL != tt.wantURL {
			t.Errorf("status %d: DetailURL = %q, want %q", tt.status, out.Err.DetailURL, tt.wantURL)
		}
	}

	// Missing URL falls back to empty.
	out := Response(testURL, http.StatusOK, envelope(53, ""))
	if out.Err.DetailURL != "" {
		t.Errorf("DetailURL = %q, want empty", out.Err.DetailURL)
	}
}

func TestResponse_MalformedEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"meta":`},
		{"top-level array", `[1,2,3]`},
		{"missing status", `{"meta":{"message":["x"]}}`},
		{"string status", `{"meta":{"status":"20","message":["x"]}}`},
		{"missing message", `{"meta":{"status":20}}`},
		{"null message", `{"meta":{"status":20,"message":null}}`},
		{"message not array", `{"meta":{"status":20,"message":"x"}}`},
		{"no meta and no short link", `{"foo":"bar"}`},
		{"only shortLink", `{"shortLink":"https://s.example/a"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Response(testURL, http.StatusOK, []byte(tt.body))
			if out.Err == nil || out.Err.Kind != domain.KindMalformedJSON {
				t.Fatalf("Err = %v, want malformed_json", out.Err)
			}
			if out.Err.URL != testURL || out.Err.Status != http.StatusOK || out.Err.RawBody != tt.body {
				t.Errorf("MalformedJSON details = %+v", out.Err)
			}
		})
	}
}

func TestResponse_ShortLinkPair(t *testing.T) {
	body := `{"shortLink":"https://s.example/a","previewLink":"https://s.example/a?d=1"}`
	out := Response(testURL, http.StatusOK, []byte(body))
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if string(out.Payload) != body {
		t.Errorf("Payload = %s, want envelope verbatim", out.Payload)
	}
}

func TestResponse_EmptyBodies(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   []byte
	}{
		{"200 nil", http.StatusOK, nil},
		{"200 whitespace", http.StatusOK, []byte("  ")},
		{"200 null", http.StatusOK, []byte("null")},
		{"201 nil", http.StatusCreated, nil},
		{"201 null", http.StatusCreated, []byte("null")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Response(testURL, tt.status, tt.body)
			if out.Err == nil || out.Err.Kind != domain.KindEmptyBody {
				t.Errorf("Err = %v, want empty_body", out.Err)
			}
		})
	}
}

func TestResponse_CreatedIsVerbatim(t *testing.T) {
	body := `{"jwt":"token-1","user":{"id":3}}`
	out := Response(testURL, http.StatusCreated, []byte(body))
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if string(out.Payload) != body {
		t.Errorf("Payload = %s, want %s", out.Payload, body)
	}
}

func TestResponse_OtherHTTPStatus(t *testing.T) {
	for _, status := range []int{204, 301, 400, 401, 404, 500, 503} {
		out := Response(testURL, status, envelope(20, ""))
		if out.Err == nil || out.Err.Kind != domain.KindHTTP || out.Err.Status != status {
			t.Errorf("status %d: Err = %v, want http(%d)", status, out.Err, status)
		}
		if out.Payload != nil {
			t.Errorf("status %d: Payload should be nil", status)
		}
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"deadline", fmt.Errorf("do: %w", context.DeadlineExceeded), domain.KindOffline},
		{"dns", &url.Error{Op: "Get", URL: testURL, Err: &net.DNSError{Err: "no such host", Name: "api.example.com"}}, domain.KindOffline},
		{"timeout", &url.Error{Op: "Get", URL: testURL, Err: timeoutErr{}}, domain.KindOffline},
		{"refused", &url.Error{Op: "Get", URL: testURL, Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}}, domain.KindOffline},
		{"parse", &url.Error{Op: "parse", URL: "::", Err: errors.New("missing protocol scheme")}, domain.KindInvalidURL},
		{"canceled", &url.Error{Op: "Get", URL: testURL, Err: context.Canceled}, domain.KindTransport},
		{"tls", &url.Error{Op: "Get", URL: testURL, Err: errors.New("tls: handshake failure")}, domain.KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transport(tt.err)
			if got.Kind != tt.want {
				t.Errorf("Kind = %q, want %q", got.Kind, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Error("expected cause to be preserved")
			}
		})
	}

	if Transport(nil) != nil {
		t.Error("Transport(nil) should be nil")
	}
}

func TestValidateURL(t *testing.T) {
	valid := []string{"https://api.example.com/a", "http://localhost:8080/x?y=1"}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", u, err)
		}
	}
	invalid := []string{"", "   ", "ftp://example.com/a", "/relative/path", "https://", "http://[::1"}
	for _, u := range invalid {
		err := ValidateURL(u)
		if err == nil || err.Kind != domain.KindInvalidURL {
			t.Errorf("ValidateURL(%q) = %v, want invalid_url", u, err)
		}
	}
}

func TestRetryable(t *testing.T) {
	ctx := context.Background()
	if !Retryable(ctx, domain.NewAPIError(domain.KindOffline)) {
		t.Error("offline should be retryable")
	}
	if Retryable(ctx, domain.NewAPIError(domain.KindInvalidURL)) {
		t.Error("invalid url should not be retryable")
	}
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if Retryable(canceled, domain.NewAPIError(domain.KindTransport)) {
		t.Error("canceled context should not be retryable")
	}
}
