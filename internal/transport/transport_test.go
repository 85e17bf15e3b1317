package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"card-registration-kit/internal/capability"
	"card-registration-kit/internal/domain"
)

// recordingServer は受信したリクエストを記録するテスト用サーバー。
type recordingServer struct {
	*httptest.Server
	calls       atomic.Int32
	mu          sync.Mutex
	lastMethod  string
	lastQuery   string
	lastBody    string
	contentType string
}

func newRecordingServer(t *testing.T, status int, body string) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.calls.Add(1)
		b, _ := io.ReadAll(r.Body)
		rs.mu.Lock()
		defer rs.mu.Unlock()
		rs.lastMethod = r.Method
		rs.lastQuery = r.URL.RawQuery
		rs.lastBody = string(b)
		rs.contentType = r.Header.Get("Content-Type")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func receive(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res, ok := <-ch:
		if !ok {
			t.Fatal("channel closed without a result")
		}
		if _, open := <-ch; open {
			t.Fatal("received more than one result")
		}
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
	}
	return Result{}
}

func TestSend_PostFormBody(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK, "token-123")
	tr := New(srv.Client(), capability.Native)

	res := receive(t, tr.Send(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Fields: url.Values{"data": {"a b&c"}, "accessKeyRef": {"key"}},
	}))

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Body != "token-123" {
		t.Errorf("want body token-123, got %q", res.Body)
	}
	if res.Response == nil || res.Response.StatusCode != http.StatusOK {
		t.Errorf("want raw response with status 200, got %+v", res.Response)
	}
	if srv.calls.Load() != 1 {
		t.Errorf("want 1 call, got %d", srv.calls.Load())
	}
	if srv.lastMethod != http.MethodPost {
		t.Errorf("want POST, got %s", srv.lastMethod)
	}
	if srv.contentType != "application/x-www-form-urlencoded" {
		t.Errorf("unexpected content type %q", srv.contentType)
	}
	form, err := url.ParseQuery(srv.lastBody)
	if err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if form.Get("data") != "a b&c" || form.Get("accessKeyRef") != "key" {
		t.Errorf("unexpected form %v", form)
	}
}

func TestSend_GetAppendsParameters(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK, "ok")
	tr := New(srv.Client(), capability.Native)

	tests := []struct {
		name      string
		url       string
		wantQuery string
	}{
		{"no existing query", srv.URL + "/path", "k=v+1"},
		{"existing query", srv.URL + "/path?x=1", "x=1&k=v+1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := receive(t, tr.Send(context.Background(), Request{
				Method: http.MethodGet,
				URL:    tt.url,
				Fields: url.Values{"k": {"v 1"}},
			}))
			if res.Err != nil {
				t.Fatalf("unexpected error: %v", res.Err)
			}
			if srv.lastMethod != http.MethodGet {
				t.Errorf("want GET, got %s", srv.lastMethod)
			}
			if srv.lastQuery != tt.wantQuery {
				t.Errorf("want query %q, got %q", tt.wantQuery, srv.lastQuery)
			}
			if srv.lastBody != "" {
				t.Errorf("want empty body, got %q", srv.lastBody)
			}
		})
	}
}

func TestSend_StandardNon2xxIsUnstructuredFailure(t *testing.T) {
	srv := newRecordingServer(t, http.StatusInternalServerError, "boom")
	tr := New(srv.Client(), capability.Browser)

	res := receive(t, tr.Send(context.Background(), Request{Method: http.MethodPost, URL: srv.URL, CrossOrigin: true}))

	if !errors.Is(res.Err, ErrExchangeFailed) {
		t.Fatalf("want ErrExchangeFailed, got %v", res.Err)
	}
	if _, ok := domain.AsResultError(res.Err); ok {
		t.Error("standard path must not synthesize a result code")
	}
	if res.Response == nil || res.Response.StatusCode != http.StatusInternalServerError {
		t.Errorf("want raw response with status 500, got %+v", res.Response)
	}
	if res.Response.Body != "boom" {
		t.Errorf("want raw body boom, got %q", res.Response.Body)
	}
}

func TestSend_NetworkErrorHasZeroStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	client := srv.Client()
	srv.Close()

	tr := New(client, capability.Native)
	res := receive(t, tr.Send(context.Background(), Request{Method: http.MethodPost, URL: target, CrossOrigin: true}))

	if !errors.Is(res.Err, ErrExchangeFailed) {
		t.Fatalf("want ErrExchangeFailed, got %v", res.Err)
	}
	if res.Response == nil || res.Response.StatusCode != 0 {
		t.Errorf("want raw response with status 0, got %+v", res.Response)
	}
}

func TestSend_LegacyPathTreatsAnyResponseAsSuccess(t *testing.T) {
	srv := newRecordingServer(t, http.StatusBadRequest, "errorCode=02625")
	tr := New(srv.Client(), capability.LegacyBrowser)

	res := receive(t, tr.Send(context.Background(), Request{Method: http.MethodPost, URL: srv.URL, CrossOrigin: true}))
	if res.Err != nil {
		t.Fatalf("want success on legacy path, got %v", res.Err)
	}
	if res.Body != "errorCode=02625" {
		t.Errorf("unexpected body %q", res.Body)
	}

	// 同一オリジンのリクエストは通常の経路を使う
	res = receive(t, tr.Send(context.Background(), Request{Method: http.MethodPost, URL: srv.URL}))
	if !errors.Is(res.Err, ErrExchangeFailed) {
		t.Errorf("want standard path failure for same-origin request, got %v", res.Err)
	}
}

func TestSend_ConstructionErrors(t *testing.T) {
	var calls atomic.Int32
	fake := exchangerFunc(func(*http.Request) Result {
		calls.Add(1)
		return Result{}
	})
	tr := New(http.DefaultClient, capability.Native, WithExchanger(fake))

	tests := []struct {
		name    string
		req     Request
		code    string
		message string
	}{
		{
			name:    "cross-origin bad url",
			req:     Request{Method: http.MethodPost, URL: "http://[::1", CrossOrigin: true},
			code:    domain.CodeCrossOriginFailed,
			message: "A cross-origin HTTP request failed: ",
		},
		{
			name:    "same-origin unsupported method",
			req:     Request{Method: http.MethodPut, URL: "http://localhost"},
			code:    domain.CodeRequestFailed,
			message: `An HTTP request failed: unsupported method "PUT"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := receive(t, tr.Send(context.Background(), tt.req))
			re, ok := domain.AsResultError(res.Err)
			if !ok {
				t.Fatalf("want ResultError, got %v", res.Err)
			}
			if re.ResultCode != tt.code {
				t.Errorf("want code %s, got %s", tt.code, re.ResultCode)
			}
			if !strings.HasPrefix(re.ResultMessage, tt.message) {
				t.Errorf("want message prefix %q, got %q", tt.message, re.ResultMessage)
			}
			// 送信前の失敗にもハンドルが付く
			if re.Response == nil || re.Response.StatusCode != 0 || res.Response != re.Response {
				t.Errorf("want empty raw response attached, got %+v", re.Response)
			}
		})
	}
	if calls.Load() != 0 {
		t.Errorf("want no exchange, got %d", calls.Load())
	}
}

func TestSend_RequestPolicyBlocks(t *testing.T) {
	var calls atomic.Int32
	fake := exchangerFunc(func(*http.Request) Result {
		calls.Add(1)
		return Result{Body: "ok"}
	})
	tr := New(http.DefaultClient, capability.Native, WithExchanger(fake), WithRequestPolicy(HTTPSOnly))

	res := receive(t, tr.Send(context.Background(), Request{Method: http.MethodPost, URL: "http://tokenizer.example/pay", CrossOrigin: true}))
	re, ok := domain.AsResultError(res.Err)
	if !ok || re.ResultCode != domain.CodeCrossOriginFailed {
		t.Fatalf("want 001598, got %v", res.Err)
	}
	if !strings.Contains(re.ResultMessage, "insecure request") {
		t.Errorf("want policy message appended, got %q", re.ResultMessage)
	}

	for _, allowed := range []string{"https://tokenizer.example/pay", "http://localhost:8080/v1/tokenize", "http://127.0.0.1/x"} {
		res := receive(t, tr.Send(context.Background(), Request{Method: http.MethodPost, URL: allowed, CrossOrigin: true}))
		if res.Err != nil {
			t.Errorf("%s: unexpected error %v", allowed, res.Err)
		}
	}
	if calls.Load() != 3 {
		t.Errorf("want 3 exchanges, got %d", calls.Load())
	}
}

func TestSend_PanicIsConverted(t *testing.T) {
	fake := exchangerFunc(func(*http.Request) Result {
		panic("blocked by policy")
	})
	tr := New(http.DefaultClient, capability.Native, WithExchanger(fake))

	res := receive(t, tr.Send(context.Background(), Request{Method: http.MethodPost, URL: "https://tokenizer.example", CrossOrigin: true}))
	re, ok := domain.AsResultError(res.Err)
	if !ok {
		t.Fatalf("want ResultError, got %v", res.Err)
	}
	if re.ResultCode != domain.CodeCrossOriginFailed || re.ResultMessage != "A cross-origin HTTP request failed: blocked by policy" {
		t.Errorf("unexpected error %s/%s", re.ResultCode, re.ResultMessage)
	}
	if re.Response == nil {
		t.Error("want raw response attached")
	}
}

type exchangerFunc func(*http.Request) Result

func (f exchangerFunc) Exchange(req *http.Request) Result { return f(req) }
