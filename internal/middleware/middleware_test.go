package middleware

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	if rw.statusCode != http.StatusOK || rw.wroteHeader || rw.bytesWritten != 0 {
		t.Fatalf("new writer = %+v", rw)
	}

	rw.WriteHeader(http.StatusConflict)
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusConflict || w.Code != http.StatusConflict {
		t.Errorf("status = %d/%d, want first WriteHeader to win", rw.statusCode, w.Code)
	}

	n, err := rw.Write([]byte(`{"error":"no timeline"}`))
	if err != nil || n != 23 || rw.bytesWritten != 23 {
		t.Errorf("Write = %d, %v; bytesWritten = %d", n, err, rw.bytesWritten)
	}
}

func TestShouldSkip(t *testing.T) {
	def := DefaultLoggingConfig()
	quietHealth := def
	quietHealth.LogHealthChecks = false
	static := def
	static.LogStaticFiles = true
	prefixed := def
	prefixed.SkipPaths = []string{"/ws/"}

	tests := []struct {
		name   string
		path   string
		config LoggingConfig
		want   bool
	}{
		{"api request", "/api/player", def, false},
		{"health check logged", "/healthz", def, false},
		{"health check skipped", "/readyz", quietHealth, true},
		{"static asset skipped", "/favicon.ICO", def, true},
		{"static asset logged", "/app.js", static, false},
		{"skip prefix", "/ws/player", prefixed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldSkip(tt.path, tt.config); got != tt.want {
				t.Errorf("shouldSkip(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/api/player", "/api/player"},
		{"a\nforged line", "a forged line"},
		{"x\r\ny", "x  y"},
		{"\x1b[31mred", "[31mred"},
		{"nul\x00byte", "nulbyte"},
		{"tab\tkept", "tab\tkept"},
	}
	for _, tt := range tests {
		if got := sanitizeLogField(tt.in); got != tt.want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "10.0.0.5:51000", "10.0.0.5"},
		{"ipv6 remote addr", nil, "[::1]:51000", "::1"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "192.0.2.1, 10.0.0.1"}, "10.0.0.1:80", "192.0.2.1"},
		{"real ip", map[string]string{"X-Real-IP": "192.0.2.9"}, "10.0.0.1:80", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/player", http.NoBody)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAccessLine(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/thumbnail?path=a.mov&height=64", http.NoBody)
	req.RemoteAddr = "10.0.0.5:51000"
	req.Header.Set("User-Agent", "review client")

	rw := newResponseWriter(httptest.NewRecorder())
	rw.WriteHeader(http.StatusOK)
	rw.Write(make([]byte, 512))

	fields := strings.Fields(accessLine(req, rw, time.Now()))
	// The quoted user agent splits into two fields.
	if len(fields) != 13 {
		t.Fatalf("access line fields = %q", fields)
	}
	want := []string{"10.0.0.5", "GET", "/api/thumbnail", "path=a.mov&height=64", "200", "512"}
	for i, w := range want {
		if fields[i+2] != w {
			t.Errorf("field %d = %q, want %q", i+2, fields[i+2], w)
		}
	}
	if fields[9] != "-" || fields[12] != "-" {
		t.Errorf("missing encoding and referer should be -, got %q %q", fields[9], fields[12])
	}
}

func TestEscapeW3CField(t *testing.T) {
	if got := escapeW3CField("curl/8.0"); got != "curl/8.0" {
		t.Errorf("plain = %q", got)
	}
	if got := escapeW3CField(`a "b" c`); got != `"a ""b"" c"` {
		t.Errorf("quoted = %q", got)
	}
}

func TestLoggerMiddlewarePassesThrough(t *testing.T) {
	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, "queued")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/player/seek", http.NoBody))

	if w.Code != http.StatusAccepted || w.Body.String() != "queued" {
		t.Errorf("response = %d %q", w.Code, w.Body.String())
	}
}

func TestCompressionMiddleware(t *testing.T) {
	state := strings.Repeat(`{"currentTime":{"value":12,"rate":24}}`, 64)

	tests := []struct {
		name           string
		body           string
		contentType    string
		acceptEncoding string
		upgrade        bool
		wantGzip       bool
	}{
		{"large JSON", state, "application/json; charset=utf-8", "gzip", false, true},
		{"large text", strings.Repeat("ok ", 600), "text/plain", "gzip, deflate", false, true},
		{"small JSON", `{"status":"ok"}`, "application/json", "gzip", false, false},
		{"thumbnail", strings.Repeat("\x89PNG", 400), "image/png", "gzip", false, false},
		{"client without gzip", state, "application/json", "", false, false},
		{"websocket upgrade", state, "application/json", "gzip", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusOK)
				io.WriteString(w, tt.body)
			}))

			req := httptest.NewRequest("GET", "/api/player", http.NoBody)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			if tt.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d", w.Code)
			}
			gotGzip := w.Header().Get("Content-Encoding") == "gzip"
			if gotGzip != tt.wantGzip {
				t.Fatalf("gzip = %v, want %v", gotGzip, tt.wantGzip)
			}

			body := w.Body.String()
			if gotGzip {
				gr, err := gzip.NewReader(w.Body)
				if err != nil {
					t.Fatalf("gzip reader: %v", err)
				}
				defer gr.Close()
				b, err := io.ReadAll(gr)
				if err != nil {
					t.Fatalf("decompress: %v", err)
				}
				body = string(b)
			}
			if body != tt.body {
				t.Error("body does not round-trip")
			}
		})
	}
}

func TestCompressionStatusAndSmallWrites(t *testing.T) {
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusCreated)
		for i := 0; i < 100; i++ {
			fmt.Fprintf(w, "{\"frame\":%d}\n", i)
		}
	}))

	req := httptest.NewRequest("GET", "/api/cache", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Error("many small writes past MinSize should be compressed")
	}
}

func TestGzipResponseWriterHoldsSmallBody(t *testing.T) {
	w := httptest.NewRecorder()
	grw := newGzipResponseWriter(w, DefaultCompressionConfig())
	grw.Header().Set("Content-Type", "application/json")

	if n, err := grw.Write([]byte(`{"a":1}`)); n != 7 || err != nil {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if grw.committed || w.Body.Len() != 0 {
		t.Fatal("body below MinSize should be held back")
	}
	if err := grw.Close(); err != nil {
		t.Fatal(err)
	}
	if w.Body.String() != `{"a":1}` || w.Header().Get("Content-Encoding") != "" {
		t.Errorf("flushed body = %q, encoding %q", w.Body.String(), w.Header().Get("Content-Encoding"))
	}
}

func TestGzipPoolPerLevel(t *testing.T) {
	if gzipPool(gzip.BestSpeed) == gzipPool(gzip.BestCompression) {
		t.Error("levels should not share a pool")
	}
	if gzipPool(gzip.BestSpeed) != gzipPool(gzip.BestSpeed) {
		t.Error("same level should reuse its pool")
	}
}

func BenchmarkCompressionMiddleware(b *testing.B) {
	body := strings.Repeat(`{"currentTime":{"value":12,"rate":24}}`, 64)
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	req := httptest.NewRequest("GET", "/api/player", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func TestStatusRecorder(t *testing.T) {
	for _, code := range []int{http.StatusNoContent, http.StatusBadRequest, http.StatusInternalServerError} {
		w := httptest.NewRecorder()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		rw.WriteHeader(code)
		if rw.status != code || w.Code != code {
			t.Errorf("status = %d/%d, want %d", rw.status, w.Code, code)
		}
	}
}

func TestRouteLabel(t *testing.T) {
	var got string
	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			got = routeLabel(req)
			next.ServeHTTP(w, req)
		})
	}))
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/player/seek", func(http.ResponseWriter, *http.Request) {}).Methods("POST")

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/player/seek", nil))
	if got != "/api/player/seek" {
		t.Errorf("routed label = %q", got)
	}

	if l := routeLabel(httptest.NewRequest(http.MethodGet, "/a/b/c/d/e", nil)); l != "/a/b/c/{path}" {
		t.Errorf("unrouted label = %q", l)
	}
}

// hijackRecorder is a ResponseRecorder that can be upgraded.
type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	server, client := net.Pipe()
	client.Close()
	return server, bufio.NewReadWriter(bufio.NewReader(server), bufio.NewWriter(server)), nil
}

func TestHijackPassthrough(t *testing.T) {
	t.Run("logging writer", func(t *testing.T) {
		rec := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
		rw := newResponseWriter(rec)

		conn, _, err := rw.Hijack()
		if err != nil {
			t.Fatalf("Hijack failed: %v", err)
		}
		defer conn.Close()

		if !rec.hijacked {
			t.Error("underlying writer was not hijacked")
		}
		if rw.statusCode != http.StatusSwitchingProtocols {
			t.Errorf("statusCode = %d, want 101", rw.statusCode)
		}
	})

	t.Run("metrics writer", func(t *testing.T) {
		rec := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
		rw := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

		conn, _, err := rw.Hijack()
		if err != nil {
			t.Fatalf("Hijack failed: %v", err)
		}
		defer conn.Close()

		if rw.status != http.StatusSwitchingProtocols {
			t.Errorf("status = %d, want 101", rw.status)
		}
	})

	t.Run("not supported", func(t *testing.T) {
		rw := newResponseWriter(httptest.NewRecorder())
		if _, _, err := rw.Hijack(); !errors.Is(err, http.ErrNotSupported) {
			t.Errorf("Hijack error = %v, want ErrNotSupported", err)
		}
		if rw.statusCode != http.StatusOK {
			t.Errorf("statusCode changed to %d on failed hijack", rw.statusCode)
		}
	})
}

func TestHijackThroughMiddlewareChain(t *testing.T) {
	var upgraded bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := w.(http.Hijacker)
		if !ok {
			t.Error("wrapped writer does not implement http.Hijacker")
			return
		}
		conn, _, err := h.Hijack()
		if err != nil {
			t.Errorf("Hijack failed: %v", err)
			return
		}
		conn.Close()
		upgraded = true
	})

	chain := Logger(DefaultLoggingConfig())(Metrics(DefaultMetricsConfig())(handler))

	req := httptest.NewRequest(http.MethodGet, "/ws/player", nil)
	req.Header.Set("Upgrade", "websocket")
	rec := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
	chain.ServeHTTP(rec, req)

	if !upgraded || !rec.hijacked {
		t.Error("expected the request to be hijacked through the chain")
	}
}

func TestDefaultMetricsConfig(t *testing.T) {
	config := DefaultMetricsConfig()

	want := map[string]bool{"/metrics": true, "/healthz": true, "/livez": true, "/readyz": true}
	if len(config.SkipPaths) != len(want) {
		t.Fatalf("SkipPaths = %v", config.SkipPaths)
	}
	for _, p := range config.SkipPaths {
		if !want[p] {
			t.Errorf("unexpected skip path %q", p)
		}
	}
}

func TestMetricsMiddlewareSkipPaths(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/metrics", true},
		{"/healthz", true},
		{"/livez", true},
		{"/api/player", false},
		{"/api/player/seek", false},
		{"/api/thumbnail", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var wrapped bool
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, wrapped = w.(*statusRecorder)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			Metrics(DefaultMetricsConfig())(handler).ServeHTTP(rec, req)

			if wrapped == tt.want {
				t.Errorf("path %s: wrapped = %v, want skipped = %v", tt.path, wrapped, tt.want)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/api/player", "/api/player"},
		{"/api/player/seek", "/api/player/seek"},
		{"/api/player/audio-offset", "/api/player/audio-offset"},
		{"/api/player/seek/extra", "/api/player/seek/{path}"},
		{"/api/player/seek/a/b/c", "/api/player/seek/{path}"},
		{"/ws/player", "/ws/player"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestNormalizePathCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[normalizePath(fmt.Sprintf("/api/player/seek/%d/frame", i))] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 normalized path, got %d: %v", len(seen), seen)
	}
}

func TestMetricsMiddlewareStatusCode(t *testing.T) {
	codes := []int{http.StatusOK, http.StatusBadRequest, http.StatusConflict, http.StatusServiceUnavailable}

	for _, code := range codes {
		t.Run(http.StatusText(code), func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/player/seek", nil)
			rec := httptest.NewRecorder()
			Metrics(DefaultMetricsConfig())(handler).ServeHTTP(rec, req)

			if rec.Code != code {
				t.Errorf("status = %d, want %d", rec.Code, code)
			}
		})
	}
}

func BenchmarkMetricsMiddleware(b *testing.B) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := Metrics(DefaultMetricsConfig())(handler)
	req := httptest.NewRequest(http.MethodGet, "/api/player", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mw.ServeHTTP(httptest.NewRecorder(), req)
	}
}
