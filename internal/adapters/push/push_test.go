package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(Config{})
	if err == nil {
		t.Fatal("expected error for missing url")
	}

	_, err = NewClient(Config{URL: "not a url"})
	if err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestSendPush_Success(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(Config{URL: server.URL, Token: "secret"})
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}

	err = client.SendPush(context.Background(), "school-1", "+15550001111", "Your request was approved")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotPath != "/v1/push" {
		t.Errorf("expected /v1/push, got '%s'", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer token, got '%s'", gotAuth)
	}
	if gotBody["school_id"] != "school-1" || gotBody["target"] != "+15550001111" {
		t.Errorf("unexpected request body %v", gotBody)
	}
}

func TestSendPush_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "recipient unknown", http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(Config{URL: server.URL})
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}

	err = client.SendPush(context.Background(), "school-1", "+15550001111", "hello")
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestSendPush_EmptyTarget(t *testing.T) {
	client, err := NewClient(Config{URL: "http://localhost:9"})
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}

	if err := client.SendPush(context.Background(), "school-1", "", "hello"); err == nil {
		t.Fatal("expected error for empty target")
	}
}
