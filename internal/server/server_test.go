package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/copyurl/internal/shared"
)

func TestCallbackHandler(t *testing.T) {
	t.Run("delivers code once", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "state-123")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc&state=state-123", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("unexpected error: %v", result.Error())
		}
		if result.Code != "abc" {
			t.Errorf("expected code abc, got %s", result.Code)
		}

		if _, ok := <-h.Result(); ok {
			t.Error("expected result channel to be closed after one result")
		}
	})

	t.Run("rejects repeated callbacks", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "s")

		first := httptest.NewRecorder()
		h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?code=one&state=s", nil))
		second := httptest.NewRecorder()
		h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?code=two&state=s", nil))

		if second.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for repeat callback, got %d", second.Code)
		}
		if result := <-h.Result(); result.Code != "one" {
			t.Errorf("expected first code to win, got %s", result.Code)
		}
	})

	t.Run("invalid state", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "expected")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc&state=forged", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected state mismatch error")
		}
	})

	t.Run("provider error", func(t *testing.T) {
		h := NewCallbackHandler("/callback", "s")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?error=access_denied&state=s", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected access_denied error")
		}
	})
}

func TestLoopbackRouter(t *testing.T) {
	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewLoopbackRouter()
		r.Use(mark("outer"), mark("inner"))
		r.Handle(http.MethodGet, "/x", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			order = append(order, "handler")
		}))

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
		if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("callback routes are GET only", func(t *testing.T) {
		r := NewLoopbackRouter()
		r.Handler(NewCallbackHandler("/callback", "s"))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback?code=a&state=s", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
		if routes := r.Routes(); len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("unexpected routes %v", routes)
		}
	})

	t.Run("unmatched requests pass through middleware", func(t *testing.T) {
		var seen []string
		r := NewLoopbackRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				seen = append(seen, req.URL.Path)
				next.ServeHTTP(w, req)
			})
		})
		r.Handler(NewCallbackHandler("/callback", "s"))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
		if len(seen) != 1 || seen[0] != "/favicon.ico" {
			t.Errorf("middleware saw %v", seen)
		}
	})
}

func TestCallbackServer(t *testing.T) {
	h := NewCallbackHandler("/callback", "s")
	router := NewLoopbackRouter()
	router.Use(RequestLogger(shared.NopLogger()))
	router.Handler(h)

	srv, err := Listen("127.0.0.1:0", router, nil)
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	resp, err := http.Get(srv.URL("/callback") + "?code=live&state=s")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if result := <-h.Result(); result.Code != "live" {
		t.Errorf("expected code live, got %q", result.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	t.Run("port is released after shutdown", func(t *testing.T) {
		again, err := Listen(srv.Addr(), http.NotFoundHandler(), nil)
		if err != nil {
			t.Fatalf("expected to rebind %s, got %v", srv.Addr(), err)
		}
		again.Shutdown(context.Background())
	})
}
