package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(eventsURL, pricesURL string) *Client {
	return NewClient(Config{EventsURL: eventsURL, PricesURL: pricesURL})
}

func TestEventsParsesAirdrops(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Referer"); got == "" {
			t.Error("missing Referer header")
		}
		if got := r.Header.Get("User-Agent"); got == "" {
			t.Error("missing User-Agent header")
		}
		w.Write([]byte(`{"airdrops":[
			{"token":"AAA","name":"Alpha","date":"2025-06-01","time":"13:00","phase":1,"points":"200","amount":"150"},
			{"token":"BBB","name":"Beta","date":"2025-06-02","time":"Tomorrow"}
		]}`))
	}))
	defer srv.Close()

	events, err := newTestClient(srv.URL, srv.URL).Events(context.Background())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Token != "AAA" || events[0].Points != "200" {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].EffectivePhase() != 1 {
		t.Fatalf("omitted phase = %d, want 1", events[1].EffectivePhase())
	}
}

func TestEventsEmptyListIsNotAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"airdrops":[]}`))
	}))
	defer srv.Close()

	events, err := newTestClient(srv.URL, srv.URL).Events(context.Background())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("got %d events, want 0", len(events))
	}
}

func TestEventsNonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, srv.URL).Events(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503", se.Code)
	}
}

func TestEventsMalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>cloudflare says no</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, srv.URL).Events(context.Background())
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("err = %v, want ErrBadPayload", err)
	}
}

func TestEventsTransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // force connection refused

	_, err := newTestClient(srv.URL, srv.URL).Events(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	var se *StatusError
	if errors.As(err, &se) || errors.Is(err, ErrBadPayload) {
		t.Fatalf("transport failure misclassified: %v", err)
	}
}

func TestPricesSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"prices":{"AAA":{"price":1.5,"dex_price":1.6}}}`))
	}))
	defer srv.Close()

	prices := newTestClient(srv.URL, srv.URL).Prices(context.Background())
	q, ok := prices["AAA"]
	if !ok {
		t.Fatalf("prices = %v, want AAA present", prices)
	}
	if q.Best() != 1.6 {
		t.Fatalf("Best() = %v, want dex price 1.6", q.Best())
	}
}

func TestPricesFailuresYieldEmptyMap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}},
		{"success false", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":false,"prices":{"AAA":{"price":1}}}`))
		}},
		{"missing prices", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true}`))
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			prices := newTestClient(srv.URL, srv.URL).Prices(context.Background())
			if prices == nil {
				t.Fatal("prices map is nil, want empty map")
			}
			if len(prices) != 0 {
				t.Fatalf("prices = %v, want empty", prices)
			}
		})
	}
}

func TestQuoteBestFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		q    Quote
		want float64
	}{
		{"dex preferred", Quote{Price: 1, DexPrice: 2}, 2},
		{"price fallback", Quote{Price: 1}, 1},
		{"neither", Quote{}, 0},
		{"negative ignored", Quote{Price: -1, DexPrice: -2}, 0},
	}
	for _, tt := range tests {
		if got := tt.q.Best(); got != tt.want {
			t.Errorf("%s: Best() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
