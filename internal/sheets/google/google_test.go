package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"financas/internal/core"
)

const testClientJSON = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func TestJsonUnmarshalIndirection(t *testing.T) {
	data := []byte(`{"access_token":"test","token_type":"Bearer"}`)
	var token oauth2.Token

	if err := jsonUnmarshal(data, &token); err != nil {
		t.Fatalf("jsonUnmarshal failed: %v", err)
	}
	if token.AccessToken != "test" {
		t.Errorf("expected access token 'test', got %s", token.AccessToken)
	}
	if err := jsonUnmarshal([]byte(`{invalid json}`), &token); err == nil {
		t.Fatal("expected error with invalid JSON")
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("expected missing id error, got %v", err)
	}
}

func TestNewSheetsService_MissingOAuthClient(t *testing.T) {
	_, err := newSheetsService(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error for missing oauth client")
	}
	expectedMsg := "missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)"
	if err.Error() != expectedMsg {
		t.Errorf("expected %q, got %q", expectedMsg, err.Error())
	}
}

func TestNewSheetsService_MissingOAuthToken(t *testing.T) {
	_, err := newSheetsService(context.Background(), Options{ClientJSON: testClientJSON})
	if err == nil {
		t.Fatal("expected error for missing oauth token")
	}
	expectedMsg := "missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)"
	if err.Error() != expectedMsg {
		t.Errorf("expected %q, got %q", expectedMsg, err.Error())
	}
}

func TestNewSheetsService_FromFiles(t *testing.T) {
	dir := t.TempDir()
	clientFile := filepath.Join(dir, "client.json")
	tokenFile := filepath.Join(dir, "token.json")
	if err := os.WriteFile(clientFile, []byte(testClientJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tokenFile, []byte(`{"access_token":"a","refresh_token":"r","token_type":"Bearer"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	svc, err := newSheetsService(context.Background(), Options{ClientFile: clientFile, TokenFile: tokenFile})
	if err != nil {
		t.Fatalf("newSheetsService() error = %v", err)
	}
	if svc == nil {
		t.Fatal("expected a service")
	}
}

func TestNewSheetsService_BadToken(t *testing.T) {
	_, err := newSheetsService(context.Background(), Options{ClientJSON: testClientJSON, TokenJSON: "{nope"})
	if err == nil || !strings.Contains(err.Error(), "parse oauth token") {
		t.Fatalf("expected token parse error, got %v", err)
	}
}

func TestWriteMonthlySummary(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
		body  map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPut {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	c := NewWithService(svc, "sheet-id", "Resumo")

	ref, err := c.WriteMonthlySummary(context.Background(), []core.MonthBucket{
		{Month: "2024-01", Income: decimal.NewFromInt(100), Expense: decimal.NewFromInt(30)},
	})
	if err != nil {
		t.Fatalf("WriteMonthlySummary() error = %v", err)
	}
	if ref != "Resumo!A1:D2" {
		t.Errorf("ref = %q, want Resumo!A1:D2", ref)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 2 {
		t.Fatalf("expected clear then update, got %v", calls)
	}
	if !strings.HasPrefix(calls[0], "POST") || !strings.Contains(calls[0], ":clear") {
		t.Errorf("first call should clear, got %s", calls[0])
	}
	if !strings.HasPrefix(calls[1], "PUT") || !strings.Contains(calls[1], "sheet-id") {
		t.Errorf("second call should update, got %s", calls[1])
	}
	values, _ := body["values"].([]any)
	if len(values) != 2 {
		t.Errorf("expected 2 rows written, got %v", body["values"])
	}
}

func TestWriteMonthlySummary_NoService(t *testing.T) {
	c := &Client{}
	if _, err := c.WriteMonthlySummary(context.Background(), nil); err == nil {
		t.Fatal("expected error when service is nil")
	}
}
