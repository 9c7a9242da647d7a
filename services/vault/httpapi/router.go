package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"stakevault/core"
	"stakevault/core/types"
	"stakevault/native/vault"
	"stakevault/observability"
	"stakevault/services/vault/auth"
	vaultrpc "stakevault/services/vault/rpc"
)

const (
	metricsModule   = "vault_http"
	maxBodyBytes    = 1 << 20
	requestIDHeader = "X-Request-ID"
)

// Config wires the HTTP API.
type Config struct {
	Processor     *core.StateProcessor
	Authenticator *auth.Authenticator
	RateLimiter   *RateLimiter
	// History serves /v1/vaults/{vault}/events when set.
	History EventHistory
	Logger  *slog.Logger
	// Metrics exposes /metrics when set.
	Metrics bool
}

// EventHistory answers per-vault event queries.
type EventHistory interface {
	History(ctx context.Context, vault string, limit int) ([]*types.Event, error)
}

type api struct {
	processor *core.StateProcessor
	authn     *auth.Authenticator
	history   EventHistory
	logger    *slog.Logger
}

// New builds the HTTP handler serving the vault REST surface.
func New(cfg Config) (http.Handler, error) {
	if cfg.Processor == nil {
		return nil, errors.New("httpapi: processor required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &api{processor: cfg.Processor, authn: cfg.Authenticator, history: cfg.History, logger: logger}

	r := chi.NewRouter()
	r.Use(requestID)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/params", a.observe("params", a.params))
		v1.Get("/accounts/{address}/balances", a.observe("balances", a.balances))
		v1.Get("/accounts/{address}/delegations", a.observe("delegations", a.delegations))
		v1.Get("/vaults", a.observe("list_vaults", a.listVaults))
		v1.Get("/vaults/{vault}", a.observe("info", a.info))
		if a.history != nil {
			v1.Get("/vaults/{vault}/events", a.observe("events", a.events))
		}

		v1.Group(func(authed chi.Router) {
			authed.Use(a.authenticate(""))
			authed.Post("/vaults", a.observe("instantiate", a.instantiate))
			authed.Post("/vaults/{vault}/execute", a.observe("execute", a.execute))
		})
		v1.Group(func(admin chi.Router) {
			admin.Use(a.authenticate(auth.ScopeAdmin))
			admin.Post("/accounts/{address}/fund", a.observe("fund", a.fund))
		})
	})

	return otelhttp.NewHandler(r, "vault-http"), nil
}

type requestIDKey struct{}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (a *api) authenticate(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.authn == nil {
				writeError(w, http.StatusForbidden, "authentication is not configured")
				return
			}
			token := auth.ParseBearer(r.Header.Get("Authorization"))
			if token == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			principal, err := a.authn.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if scope != "" && !principal.HasScope(scope) {
				writeError(w, http.StatusForbidden, "scope "+scope+" required")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (a *api) observe(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		observability.ModuleMetrics().Observe(metricsModule, method, rec.status, time.Since(started))
	}
}

type executeBody struct {
	Funds types.Coins      `json:"funds,omitempty"`
	Msg   vault.ExecuteMsg `json:"msg"`
}

type fundBody struct {
	Coins types.Coins `json:"coins"`
}

func (a *api) instantiate(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())
	addr, resp, err := a.processor.InstantiateVault(principal.Address)
	if err != nil {
		a.writeEngineError(w, r, "instantiate", err)
		return
	}
	writeJSON(w, http.StatusCreated, vaultrpc.InstantiateResponse{Vault: addr, Events: resp.Events})
}

func (a *api) execute(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())
	var body executeBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := a.processor.Execute(principal.Address, chi.URLParam(r, "vault"), body.Funds, body.Msg)
	if err != nil {
		a.writeEngineError(w, r, "execute", err)
		return
	}
	writeJSON(w, http.StatusOK, vaultrpc.ExecuteResponse{Messages: resp.Messages, Events: resp.Events})
}

func (a *api) info(w http.ResponseWriter, r *http.Request) {
	info, err := a.processor.Info(chi.URLParam(r, "vault"))
	if err != nil {
		a.writeEngineError(w, r, "info", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type eventsResponse struct {
	Events []*types.Event `json:"events"`
}

func (a *api) events(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	history, err := a.history.History(r.Context(), chi.URLParam(r, "vault"), limit)
	if err != nil {
		a.writeEngineError(w, r, "events", err)
		return
	}
	if history == nil {
		history = []*types.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: history})
}

func (a *api) listVaults(w http.ResponseWriter, r *http.Request) {
	vaults := a.processor.ListVaults(strings.TrimSpace(r.URL.Query().Get("owner")))
	if vaults == nil {
		vaults = []string{}
	}
	writeJSON(w, http.StatusOK, vaultrpc.ListVaultsResponse{Vaults: vaults})
}

func (a *api) balances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, vaultrpc.BalancesResponse{Balances: a.processor.Balances(chi.URLParam(r, "address"))})
}

func (a *api) delegations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.processor.Delegations(chi.URLParam(r, "address")))
}

func (a *api) params(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.processor.Params())
}

func (a *api) fund(w http.ResponseWriter, r *http.Request) {
	var body fundBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(body.Coins) == 0 {
		writeError(w, http.StatusBadRequest, "coins required")
		return
	}
	addr := chi.URLParam(r, "address")
	if err := a.processor.Fund(addr, body.Coins); err != nil {
		a.writeEngineError(w, r, "fund", err)
		return
	}
	writeJSON(w, http.StatusOK, vaultrpc.FundResponse{Balances: a.processor.Balances(addr)})
}

func (a *api) writeEngineError(w http.ResponseWriter, r *http.Request, method string, err error) {
	code := vaultrpc.Code(err)
	msg := err.Error()
	if status := vaultrpc.HTTPStatus(code); status == http.StatusInternalServerError {
		a.logger.Error("vault request failed",
			slog.String("method", method),
			slog.String("requestId", requestIDFrom(r.Context())),
			slog.Any("error", err))
		msg = "internal error"
	}
	writeError(w, vaultrpc.HTTPStatus(code), msg)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
