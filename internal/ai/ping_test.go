package ai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"
)

func TestPing_Success(t *testing.T) {
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"pong"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	s := testSettings(server.URL + "/custom/endpoint")
	s.Model = "gpt-3.5-turbo"
	reply, err := Ping(context.Background(), s, server.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "pong" {
		t.Errorf("expected pong, got %q", reply)
	}
	if gotPath != "/custom/endpoint" {
		t.Errorf("expected request on configured endpoint, got %q", gotPath)
	}
	if gjson.Get(gotBody, "max_tokens").Int() != 10 {
		t.Errorf("expected max_tokens 10, body %s", gotBody)
	}
	if gjson.Get(gotBody, "stream").Bool() {
		t.Error("ping must not stream")
	}
	if gjson.Get(gotBody, "messages.0.content").String() != pingMessage {
		t.Errorf("unexpected message in %s", gotBody)
	}
}

func TestPing_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	s := testSettings(server.URL)
	s.Model = "gpt-3.5-turbo"
	_, err := Ping(context.Background(), s, nil)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusUnauthorized || httpErr.Body != "bad key" {
		t.Errorf("unexpected error %+v", httpErr)
	}
}

func TestPing_MissingKey(t *testing.T) {
	s := testSettings("http://127.0.0.1:1")
	s.APIKey = ""
	if _, err := Ping(context.Background(), s, nil); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestPing_InvalidURL(t *testing.T) {
	s := testSettings("not a url")
	if _, err := Ping(context.Background(), s, nil); err == nil {
		t.Error("expected error for invalid url")
	}
}
