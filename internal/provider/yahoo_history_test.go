package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const historyJSON = `{
  "chart": {
    "result": [
      {
        "timestamp": [1748217600, 1748304000, 1748390400],
        "indicators": {
          "quote": [
            {"close": [110.5, null, 112.4]}
          ]
        }
      }
    ],
    "error": null
  }
}`

func TestYahooProvider_FetchBarsRange(t *testing.T) {
	t.Run("returns one bar per non-null close", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("period1") == "" || r.URL.Query().Get("period2") == "" {
				t.Errorf("expected period1 and period2 params, got %s", r.URL.RawQuery)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(historyJSON))
		}))
		defer server.Close()

		p := NewYahooProvider(server.Client())
		p.baseURL = server.URL

		from := time.Date(2025, 5, 26, 0, 0, 0, 0, time.UTC)
		to := time.Date(2025, 5, 28, 0, 0, 0, 0, time.UTC)
		bars, err := p.FetchBarsRange(context.Background(), Asset{ID: "a1", Symbol: "AAPL"}, from, to)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(bars) != 2 {
			t.Fatalf("expected 2 bars, got %d", len(bars))
		}
		if bars[0].Date.Format("2006-01-02") != "2025-05-26" || bars[0].Close != 110.5 {
			t.Errorf("unexpected first bar: %+v", bars[0])
		}
		if bars[1].Date.Format("2006-01-02") != "2025-05-28" || bars[1].Close != 112.4 {
			t.Errorf("unexpected second bar: %+v", bars[1])
		}
	})

	t.Run("surfaces chart errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
		}))
		defer server.Close()

		p := NewYahooProvider(server.Client())
		p.baseURL = server.URL

		_, err := p.FetchBarsRange(context.Background(), Asset{ID: "a1", Symbol: "GONE"},
			time.Now().AddDate(0, -1, 0), time.Now())
		if err == nil {
			t.Error("expected error for unknown symbol")
		}
	})
}
