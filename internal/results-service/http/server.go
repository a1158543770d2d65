package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/megasena-tracker/internal/results-service/aggregator"
	"github.com/radieske/megasena-tracker/internal/results-service/cache"
	"github.com/radieske/megasena-tracker/internal/results-service/dto"
	"github.com/radieske/megasena-tracker/internal/results-service/refresher"
	"github.com/radieske/megasena-tracker/internal/results-service/suggest"
	"github.com/radieske/megasena-tracker/internal/results-service/upstream"
)

// ResultsFetcher é implementado por *upstream.Client
type ResultsFetcher interface {
	FetchLatest(ctx context.Context) (dto.ContestResult, error)
	FetchByNumber(ctx context.Context, n int) (dto.ContestResult, error)
}

// Window é implementado por *refresher.Refresher
type Window interface {
	Snapshot() refresher.Snapshot
	Refresh(ctx context.Context) (refresher.Snapshot, error)
	Merge(res dto.ContestResult) bool
}

// Searcher é implementado por *aggregator.Aggregator
type Searcher interface {
	FetchOne(ctx context.Context, n int) (dto.ContestResult, error)
}

// API expõe o proxy de resultados e os endpoints do painel
type API struct {
	Upstream ResultsFetcher
	Cache    *cache.Cache // nil = sem cache
	Window   Window
	Search   Searcher
	Suggest  *suggest.Service
	WS       http.HandlerFunc // nil = sem /ws
	Limiter  *RateLimiter     // nil = sem limite
	Log      *zap.Logger
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	if a.Log == nil {
		a.Log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(requestID, accessLog(a.Log), cors)

	r.Group(func(r chi.Router) {
		if a.Limiter != nil {
			r.Use(a.Limiter.Middleware)
		}

		// proxy
		r.Get("/results", a.getLatest)
		r.Get("/results/{contest}", a.getContest)

		// painel
		r.Get("/v1/window", a.getWindow)
		r.Post("/v1/window/refresh", a.refreshWindow)
		r.Get("/v1/contests/{contest}", a.searchContest)
		r.Post("/v1/suggestions", a.suggest)
	})

	if a.WS != nil {
		r.Get("/ws", a.WS)
	}
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Message: msg})
}

// statusFor traduz a classe do erro para o status HTTP
func statusFor(err error) int {
	switch {
	case errors.Is(err, upstream.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, upstream.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, aggregator.ErrAggregateEmpty):
		return http.StatusBadGateway
	}
	if code, ok := upstream.StatusCode(err); ok {
		return code // repassa o status do upstream
	}
	return http.StatusInternalServerError
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.Log.Warn("request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	writeMessage(w, status, aggregator.Describe(err))
}

func contestParam(r *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "contest"))
	if err != nil {
		return 0, upstream.ErrInvalidArgument
	}
	return n, nil
}

func cacheHeaders(w http.ResponseWriter, ttl time.Duration) {
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(ttl.Seconds())))
}

func (a *API) ttl() time.Duration {
	if a.Cache != nil && a.Cache.TTL > 0 {
		return a.Cache.TTL
	}
	return cache.DefaultTTL
}

// getLatest devolve o último concurso, preferencialmente do cache
func (a *API) getLatest(w http.ResponseWriter, r *http.Request) {
	if res, ok, _ := a.Cache.GetLatest(r.Context()); ok {
		cacheHeaders(w, a.ttl())
		writeJSON(w, http.StatusOK, res)
		return
	}

	res, err := a.Upstream.FetchLatest(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.Cache.SetLatest(r.Context(), res); err != nil {
		a.Log.Warn("cache set latest failed", zap.Error(err))
	}
	cacheHeaders(w, a.ttl())
	writeJSON(w, http.StatusOK, res)
}

// getContest devolve um concurso pelo número
func (a *API) getContest(w http.ResponseWriter, r *http.Request) {
	n, err := contestParam(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if res, ok, _ := a.Cache.GetContest(r.Context(), n); ok {
		cacheHeaders(w, a.ttl())
		writeJSON(w, http.StatusOK, res)
		return
	}

	res, err := a.Upstream.FetchByNumber(r.Context(), n)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.Cache.SetContest(r.Context(), res); err != nil {
		a.Log.Warn("cache set contest failed", zap.Int("contest", n), zap.Error(err))
	}
	cacheHeaders(w, a.ttl())
	writeJSON(w, http.StatusOK, res)
}

type windowResponse struct {
	Results    []dto.ContestResult `json:"results"`
	Total      int                 `json:"total"`
	Status     string              `json:"status"`
	LastUpdate *time.Time          `json:"lastUpdate,omitempty"`
	LastError  string              `json:"lastError,omitempty"`
}

func newWindowResponse(s refresher.Snapshot, c aggregator.Criteria) windowResponse {
	return windowResponse{
		Results:    aggregator.Filter(s.Results, c),
		Total:      len(s.Results),
		Status:     s.Status,
		LastUpdate: s.LastUpdate,
		LastError:  s.LastError,
	}
}

func criteriaFrom(r *http.Request) aggregator.Criteria {
	q := r.URL.Query()
	return aggregator.Criteria{
		Contest: q.Get("contest"),
		Date:    q.Get("date"),
		Numbers: q.Get("numbers"),
	}
}

// getWindow devolve a coleção exibida, filtrada pelos parâmetros contest, date e numbers
func (a *API) getWindow(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newWindowResponse(a.Window.Snapshot(), criteriaFrom(r)))
}

// refreshWindow busca os últimos concursos agora
func (a *API) refreshWindow(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Window.Refresh(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newWindowResponse(snap, aggregator.Criteria{}))
}

type searchResponse struct {
	Result dto.ContestResult `json:"result"`
	Added  bool              `json:"added"`
}

// searchContest busca um concurso e o incorpora à coleção exibida
func (a *API) searchContest(w http.ResponseWriter, r *http.Request) {
	n, err := contestParam(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	res, err := a.Search.FetchOne(r.Context(), n)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Result: res, Added: a.Window.Merge(res)})
}

// suggest pede ao Gemini uma sugestão com base na coleção exibida
func (a *API) suggest(w http.ResponseWriter, r *http.Request) {
	if !a.Suggest.Enabled() {
		writeMessage(w, http.StatusServiceUnavailable, "Sugestão de dezenas indisponível: GEMINI_API_KEY não configurada.")
		return
	}

	out, err := a.Suggest.Suggest(r.Context(), a.Window.Snapshot().Results)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, out)
	case errors.Is(err, suggest.ErrNoHistory):
		writeMessage(w, http.StatusConflict, "Carregue os resultados antes de pedir uma sugestão.")
	case errors.Is(err, suggest.ErrInvalidSuggestion):
		writeMessage(w, http.StatusBadGateway, "O modelo devolveu uma sugestão inválida. Tente novamente.")
	default:
		a.Log.Warn("suggestion failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Não foi possível gerar a sugestão.")
	}
}
