package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"dolor/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_InvalidOAuthClient(t *testing.T) {
	_, err := New(context.Background(), Config{
		SpreadsheetID:   "test-id",
		OAuthClientJSON: "invalid-json",
		OAuthTokenJSON:  `{"access_token":"test"}`,
	})
	if err == nil {
		t.Fatal("expected error with invalid JSON")
	}
	if !strings.Contains(err.Error(), "oauth config") {
		t.Errorf("expected oauth config error, got: %v", err)
	}
}

const testClientJSON = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret",` +
	`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",` +
	`"redirect_uris":["http://localhost"]}}`

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig(Config{OAuthClientJSON: testClientJSON})
	if err != nil {
		t.Fatalf("OAuthConfig: %v", err)
	}
	if cfg.ClientID != "id.apps.googleusercontent.com" || len(cfg.Scopes) != 1 {
		t.Errorf("config = %+v", cfg)
	}
	if _, err := OAuthConfig(Config{}); err == nil {
		t.Error("expected error without client credentials")
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"nothing configured", Config{SpreadsheetID: "x"}, "missing credentials"},
		{"client without token", Config{SpreadsheetID: "x", OAuthClientJSON: testClientJSON}, "missing oauth token"},
		{"unreadable file", Config{SpreadsheetID: "x", ServiceAccountFile: "/does/not/exist.json"}, "read service account"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestReadInlineOrFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")
	if err := os.WriteFile(path, []byte(`{"a":1}`), 0o600); err != nil {
		t.Fatal(err)
	}

	if b, _ := readInlineOrFile(" inline ", path); string(b) != "inline" {
		t.Errorf("inline should win, got %q", b)
	}
	if b, _ := readInlineOrFile("", path); string(b) != `{"a":1}` {
		t.Errorf("file content = %q", b)
	}
	if b, err := readInlineOrFile("", ""); b != nil || err != nil {
		t.Errorf("empty = %q, %v", b, err)
	}
}

func TestWriteWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: DefaultSheetName}
	if _, err := c.WriteMonthlySummary(context.Background(), core.AggregateByMonth(nil)); err == nil {
		t.Fatal("expected error without a service")
	}
	if _, err := c.ReadMonthlySummary(context.Background()); err == nil {
		t.Fatal("expected error without a service")
	}
}

func TestSummaryRange(t *testing.T) {
	if got := summaryRange("Summary", 13); got != "Summary!A1:C13" {
		t.Errorf("summaryRange = %q", got)
	}
	if got := summaryRange("2025 Summary", 13); got != "'2025 Summary'!A1:C13" {
		t.Errorf("summaryRange with space = %q", got)
	}
	if got := quoteSheetName("Bob's"); got != "'Bob''s'" {
		t.Errorf("quoteSheetName = %q", got)
	}
}

func TestSummaryRows(t *testing.T) {
	buckets := core.AggregateByMonth([]core.Expense{
		{ID: "1", Month: "January", Amount: decimal.RequireFromString("100")},
		{ID: "2", Month: "January", Amount: decimal.RequireFromString("50.5")},
	})
	rows := summaryRows(buckets)
	if len(rows) != 13 {
		t.Fatalf("rows = %d, want 13", len(rows))
	}
	if rows[0][0] != "Month" || rows[0][2] != "Amount" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "January" || rows[1][1] != 2 || rows[1][2] != "150.50" {
		t.Errorf("January row = %v", rows[1])
	}
	if rows[12][0] != "December" || rows[12][2] != "0.00" {
		t.Errorf("December row = %v", rows[12])
	}
}

func TestParseSummary(t *testing.T) {
	values := [][]interface{}{
		{"Month", "Expenses", "Amount"},
		{"January", 2.0, 150.5},
		{"february", "1", "€ 1.234,56"},
		{"Total", 3.0, 1385.06},
		{"March"},
	}
	got, err := parseSummary(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(got) != 12 {
		t.Fatalf("buckets = %d", len(got))
	}
	if got[0].ExpensesCount != 2 || !got[0].ExpensesAmount.Equal(decimal.RequireFromString("150.5")) {
		t.Errorf("January = %+v", got[0])
	}
	if got[1].ExpensesCount != 1 || !got[1].ExpensesAmount.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("February = %+v", got[1])
	}
	if got[2].ExpensesCount != 0 || !got[2].ExpensesAmount.IsZero() {
		t.Errorf("March = %+v", got[2])
	}

	if _, err := parseSummary([][]interface{}{{"Primary", "Jan"}}); err == nil {
		t.Error("expected header error")
	}
	if empty, err := parseSummary(nil); err != nil || len(empty) != 12 {
		t.Errorf("empty sheet = %v, %v", empty, err)
	}
}

func TestWriteAgainstLiveSpreadsheet(t *testing.T) {
	id := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if id == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set")
	}
	c, err := New(context.Background(), Config{
		SpreadsheetID:      id,
		SheetName:          os.Getenv("GOOGLE_SUMMARY_SHEET"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		OAuthClientJSON:    os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"),
		OAuthClientFile:    os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"),
		OAuthTokenJSON:     os.Getenv("GOOGLE_OAUTH_TOKEN_JSON"),
		OAuthTokenFile:     os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buckets := core.AggregateByMonth([]core.Expense{{ID: "1", Month: "May", Amount: decimal.RequireFromString("12.5")}})
	if _, err := c.WriteMonthlySummary(context.Background(), buckets); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := c.ReadMonthlySummary(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got[4].ExpensesCount != 1 {
		t.Errorf("May = %+v", got[4])
	}
}
