package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/megasena-tracker/internal/results-service/aggregator"
	"github.com/radieske/megasena-tracker/internal/results-service/cache"
	"github.com/radieske/megasena-tracker/internal/results-service/dto"
	"github.com/radieske/megasena-tracker/internal/results-service/refresher"
	"github.com/radieske/megasena-tracker/internal/results-service/suggest"
	"github.com/radieske/megasena-tracker/internal/results-service/upstream"
)

type fakeUpstream struct {
	latest   dto.ContestResult
	byNumber map[int]dto.ContestResult
	err      error
	calls    int
}

func (f *fakeUpstream) FetchLatest(ctx context.Context) (dto.ContestResult, error) {
	f.calls++
	if f.err != nil {
		return dto.ContestResult{}, f.err
	}
	return f.latest, nil
}

func (f *fakeUpstream) FetchByNumber(ctx context.Context, n int) (dto.ContestResult, error) {
	f.calls++
	if n <= 0 {
		return dto.ContestResult{}, upstream.ErrInvalidArgument
	}
	if f.err != nil {
		return dto.ContestResult{}, f.err
	}
	r, ok := f.byNumber[n]
	if !ok {
		return dto.ContestResult{}, upstream.ErrNotFound
	}
	return r, nil
}

func (f *fakeUpstream) FetchOne(ctx context.Context, n int) (dto.ContestResult, error) {
	return f.FetchByNumber(ctx, n)
}

type fakeWindow struct {
	snap       refresher.Snapshot
	refreshErr error
	merged     []dto.ContestResult
}

func (f *fakeWindow) Snapshot() refresher.Snapshot { return f.snap }

func (f *fakeWindow) Refresh(ctx context.Context) (refresher.Snapshot, error) {
	return f.snap, f.refreshErr
}

func (f *fakeWindow) Merge(res dto.ContestResult) bool {
	var added bool
	f.snap.Results, added = aggregator.Merge(f.snap.Results, res)
	if added {
		f.merged = append(f.merged, res)
	}
	return added
}

type fakeGen struct{ out string }

func (f fakeGen) Generate(ctx context.Context, prompt string) (string, error) { return f.out, nil }

func contest(n int, nums ...string) dto.ContestResult {
	if len(nums) == 0 {
		nums = []string{"01", "02", "03", "04", "05", "06"}
	}
	return dto.ContestResult{ContestNumber: n, DrawDate: "01/01/2025", DrawnNumbers: nums, PrizeTiers: []dto.PrizeTier{}}
}

func newAPI(up *fakeUpstream, win *fakeWindow) *API {
	return &API{Upstream: up, Window: win, Search: up}
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e.Message
}

func TestGetLatest(t *testing.T) {
	up := &fakeUpstream{latest: contest(2870)}
	rec := do(t, newAPI(up, &fakeWindow{}).Router(), http.MethodGet, "/results")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	var got dto.ContestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2870, got.ContestNumber)
}

func newCachedAPI(t *testing.T, up *fakeUpstream) (*API, *cache.Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c := cache.New(rdb, 0)
	a := newAPI(up, &fakeWindow{})
	a.Cache = c
	return a, c
}

func TestGetLatest_ServedFromCache(t *testing.T) {
	up := &fakeUpstream{latest: contest(2870)}
	a, c := newCachedAPI(t, up)
	require.NoError(t, c.SetLatest(context.Background(), contest(2869)))

	rec := do(t, a.Router(), http.MethodGet, "/results")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))
	assert.Equal(t, 0, up.calls)

	var got dto.ContestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2869, got.ContestNumber)
}

func TestGetContest_MissFillsCacheThenHits(t *testing.T) {
	up := &fakeUpstream{byNumber: map[int]dto.ContestResult{2800: contest(2800)}}
	a, c := newCachedAPI(t, up)

	var lookups []bool
	c.OnLookup = func(hit bool) { lookups = append(lookups, hit) }

	first := do(t, a.Router(), http.MethodGet, "/results/2800")
	require.Equal(t, http.StatusOK, first.Code)
	second := do(t, a.Router(), http.MethodGet, "/results/2800")
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, 1, up.calls)
	assert.Equal(t, []bool{false, true}, lookups)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestGetContest_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{"non numeric", "/results/abc", nil, http.StatusBadRequest},
		{"non positive", "/results/-5", nil, http.StatusBadRequest},
		{"not found", "/results/999999", nil, http.StatusNotFound},
		{"upstream status passthrough", "/results/10", &upstream.StatusError{StatusCode: http.StatusForbidden}, http.StatusForbidden},
		{"transport failure", "/results/10", fmt.Errorf("%w: dial tcp", upstream.ErrUpstreamUnavailable), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			up := &fakeUpstream{byNumber: map[int]dto.ContestResult{}, err: tc.err}
			rec := do(t, newAPI(up, &fakeWindow{}).Router(), http.MethodGet, tc.path)
			assert.Equal(t, tc.status, rec.Code)
			assert.NotEmpty(t, message(t, rec))
		})
	}
}

func TestGetContest_Success(t *testing.T) {
	up := &fakeUpstream{byNumber: map[int]dto.ContestResult{2865: contest(2865)}}
	rec := do(t, newAPI(up, &fakeWindow{}).Router(), http.MethodGet, "/results/2865")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"contestNumber":2865`)
}

func TestGetWindow_Filters(t *testing.T) {
	win := &fakeWindow{snap: refresher.Snapshot{
		Results: []dto.ContestResult{
			contest(2870, "04", "15", "23", "31", "42", "58"),
			contest(2869, "01", "09", "17", "33", "44", "60"),
		},
		Status: "2 concursos carregados com sucesso.",
	}}
	rec := do(t, newAPI(&fakeUpstream{}, win).Router(), http.MethodGet, "/v1/window?numbers=4,42")
	require.Equal(t, http.StatusOK, rec.Code)

	var got windowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Total)
	require.Len(t, got.Results, 1)
	assert.Equal(t, 2870, got.Results[0].ContestNumber)
	assert.Equal(t, win.snap.Status, got.Status)
}

func TestRefreshWindow_AggregateEmptyIs502(t *testing.T) {
	win := &fakeWindow{refreshErr: aggregator.ErrAggregateEmpty}
	rec := do(t, newAPI(&fakeUpstream{}, win).Router(), http.MethodPost, "/v1/window/refresh")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, aggregator.Describe(aggregator.ErrAggregateEmpty), message(t, rec))
}

func TestSearchContest_MergesOnce(t *testing.T) {
	up := &fakeUpstream{byNumber: map[int]dto.ContestResult{2500: contest(2500)}}
	win := &fakeWindow{snap: refresher.Snapshot{Results: []dto.ContestResult{contest(2870)}}}
	h := newAPI(up, win).Router()

	for i, wantAdded := range []bool{true, false} {
		rec := do(t, h, http.MethodGet, "/v1/contests/2500")
		require.Equal(t, http.StatusOK, rec.Code, "call %d", i)
		var got searchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, wantAdded, got.Added)
	}
	assert.Len(t, win.merged, 1)
	assert.Equal(t, []int{2870, 2500}, []int{win.snap.Results[0].ContestNumber, win.snap.Results[1].ContestNumber})
}

func TestSearchContest_InvalidMakesNoCall(t *testing.T) {
	up := &fakeUpstream{}
	rec := do(t, newAPI(up, &fakeWindow{}).Router(), http.MethodGet, "/v1/contests/x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, up.calls)
}

func TestSuggest(t *testing.T) {
	win := &fakeWindow{snap: refresher.Snapshot{Results: []dto.ContestResult{contest(2870)}}}

	api := newAPI(&fakeUpstream{}, win)
	rec := do(t, api.Router(), http.MethodPost, "/v1/suggestions")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	api = newAPI(&fakeUpstream{}, win)
	api.Suggest = suggest.NewService(fakeGen{out: `{"suggestedNumbers":["10","20","30","40","50","60"],"explanation":"ok"}`}, nil)
	rec = do(t, api.Router(), http.MethodPost, "/v1/suggestions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"suggestedNumbers":["10","20","30","40","50","60"]`)

	api.Window = &fakeWindow{}
	rec = do(t, api.Router(), http.MethodPost, "/v1/suggestions")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRateLimit(t *testing.T) {
	api := newAPI(&fakeUpstream{latest: contest(1)}, &fakeWindow{})
	api.Limiter = NewRateLimiter(0.001, 2)
	h := api.Router()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/results").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/results").Code)

	rec := do(t, h, http.MethodGet, "/results")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRequestID_Propagates(t *testing.T) {
	h := newAPI(&fakeUpstream{latest: contest(1)}, &fakeWindow{}).Router()
	req := httptest.NewRequest(http.MethodGet, "/results", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	h := newAPI(&fakeUpstream{}, &fakeWindow{}).Router()
	rec := do(t, h, http.MethodOptions, "/v1/window")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
