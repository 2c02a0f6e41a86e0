package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"

	"rps-arena/internal/arena"
	"rps-arena/internal/logging"
	"rps-arena/internal/store"
)

const playerHeader = "X-Player-ID"

type playerContextKey struct{}

func PlayerFromContext(ctx context.Context) (arena.Player, bool) {
	p, ok := ctx.Value(playerContextKey{}).(arena.Player)
	return p, ok
}

func APILogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{})),
		&httplog.Options{
			Level:              slog.LevelInfo,
			Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogRequestBody:     func(*http.Request) bool { return false },
			LogResponseBody:    func(*http.Request) bool { return false },
			LogRequestHeaders:  []string{},
			LogResponseHeaders: []string{},
			LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
				rc := chi.RouteContext(req.Context())
				route := req.URL.Path
				if rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}
				return []slog.Attr{
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("method", req.Method),
					slog.String("route", route),
					slog.String("player_id", req.Header.Get(playerHeader)),
				}
			},
		},
	)
}

func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", playerHeader, "X-Admin-Key"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// BodyCaptureMiddleware attaches truncated request and response bodies to the
// request log. Admin routes only.
func BodyCaptureMiddleware(maxCaptureBytes int) func(http.Handler) http.Handler {
	if maxCaptureBytes <= 0 {
		maxCaptureBytes = 4096
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqBody, err := io.ReadAll(r.Body)
			if err != nil {
				reqBody = nil
			}
			r.Body = io.NopCloser(bytes.NewReader(reqBody))

			cw := &captureWriter{ResponseWriter: w, maxBytes: maxCaptureBytes}
			next.ServeHTTP(cw, r)

			reqLog := reqBody
			if len(reqLog) > maxCaptureBytes {
				reqLog = reqLog[:maxCaptureBytes]
			}
			httplog.SetAttrs(r.Context(), slog.Any("request_body", parseMaybeJSON(reqLog)))
			httplog.SetAttrs(r.Context(), slog.Any("response_body", parseMaybeJSON(cw.body.Bytes())))
			httplog.SetAttrs(r.Context(), slog.Bool("request_body_truncated", len(reqBody) > maxCaptureBytes))
			httplog.SetAttrs(r.Context(), slog.Bool("response_body_truncated", cw.truncated))
		})
	}
}

type captureWriter struct {
	http.ResponseWriter
	body      bytes.Buffer
	maxBytes  int
	truncated bool
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if !c.truncated {
		remain := c.maxBytes - c.body.Len()
		if remain > 0 {
			if len(p) <= remain {
				_, _ = c.body.Write(p)
			} else {
				_, _ = c.body.Write(p[:remain])
				c.truncated = true
			}
		} else {
			c.truncated = true
		}
	}
	return c.ResponseWriter.Write(p)
}

func parseMaybeJSON(b []byte) any {
	if len(b) == 0 {
		return ""
	}
	var out any
	if err := json.Unmarshal(b, &out); err == nil {
		return out
	}
	return string(b)
}

func WriteHTTPError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}

// errorStatus is checked in order; EscrowError also unwraps to its ledger
// cause, so escrow_failed must come before insufficient_balance.
var errorStatus = []struct {
	err    error
	status int
}{
	{arena.ErrEscrowFailed, http.StatusConflict},
	{arena.ErrInvalidAmount, http.StatusBadRequest},
	{arena.ErrInvalidMove, http.StatusBadRequest},
	{arena.ErrInsufficientBalance, http.StatusConflict},
	{arena.ErrInsufficientLockedBalance, http.StatusConflict},
	{arena.ErrRoundTimeout, http.StatusConflict},
	{arena.ErrRateLimited, http.StatusTooManyRequests},
	{arena.ErrMatchNotFound, http.StatusNotFound},
	{arena.ErrPlayerNotFound, http.StatusNotFound},
	{arena.ErrWithdrawalNotFound, http.StatusNotFound},
	{arena.ErrNotParticipant, http.StatusForbidden},
	{arena.ErrPlayerFlagged, http.StatusForbidden},
	{arena.ErrMatchNotActive, http.StatusConflict},
	{arena.ErrAlreadyQueued, http.StatusConflict},
	{arena.ErrInvalidTransition, http.StatusConflict},
	{arena.ErrWithdrawalNotPending, http.StatusConflict},
	{arena.ErrBelowMinimum, http.StatusUnprocessableEntity},
	{arena.ErrDailyCapExceeded, http.StatusUnprocessableEntity},
	{store.ErrUsernameTaken, http.StatusConflict},
}

// WriteError maps an engine error to its status and snake_case code.
func WriteError(w http.ResponseWriter, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			WriteHTTPError(w, e.status, e.err.Error())
			return
		}
	}
	WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
}

// PlayerMiddleware resolves the X-Player-ID header set by the auth gateway.
func PlayerMiddleware(st Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(playerHeader))
			if id == "" {
				WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			p, err := st.GetPlayer(r.Context(), id)
			if err != nil {
				if errors.Is(err, arena.ErrPlayerNotFound) {
					WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
				return
			}
			ctx := context.WithValue(r.Context(), playerContextKey{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func AdminAuthMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey != "" && !CheckAdminAuth(r, adminKey) {
				WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CheckAdminAuth(r *http.Request, adminKey string) bool {
	if v := r.Header.Get("X-Admin-Key"); v == adminKey {
		return true
	}
	auth := r.Header.Get("Authorization")
	prefix := "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):] == adminKey
	}
	return false
}

func ParsePagination(r *http.Request) (int, int) {
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// clientIP strips the port RealIP leaves on direct connections.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
