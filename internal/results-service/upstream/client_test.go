package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const caixaPayload = `{
	"numero": %d,
	"dataApuracao": "28/05/2025",
	"listaDezenas": ["04", "15", "23", "31", "42", "58"],
	"listaDezenasSorteadasOrdemSorteio": ["42", "04", "58", "15", "31", "23"],
	"indicadorAcumulo": true,
	"valorAcumulado": 12500000.5,
	"valorEstimadoProximoConcurso": 20000000,
	"listaRateioPremio": [
		{"descricaoFaixa": "6 acertos", "numeroDeGanhadores": 0, "valorPremio": 0},
		{"descricaoFaixa": "5 acertos", "numeroDeGanhadores": 41, "valorPremio": 52310.77}
	]
}`

func newServer(t *testing.T, h http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, WithTimeout(2*time.Second), WithUserAgent("test-agent")), &calls
}

func TestFetchLatest_NormalizesCaixaPayload(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/megasena", r.URL.Path)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = fmt.Fprintf(w, caixaPayload, 2870)
	})

	res, err := c.FetchLatest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2870, res.ContestNumber)
	assert.Equal(t, "28/05/2025", res.DrawDate)
	assert.Equal(t, []string{"04", "15", "23", "31", "42", "58"}, res.DrawnNumbers)
	assert.True(t, res.IsRolledOver)
	assert.Equal(t, 12500000.5, res.AccumulatedValue)
	assert.Equal(t, 20000000.0, res.EstimatedNextPrize)
	require.Len(t, res.PrizeTiers, 2)
	assert.Equal(t, 41, res.PrizeTiers[1].Winners)

	top, ok := res.TopTier()
	require.True(t, ok)
	assert.Equal(t, 0, top.Winners)
}

func TestFetchLatest_AcceptsLegacyAliasAndOwnShape(t *testing.T) {
	bodies := map[string]string{
		"alias": `{"numero": 10, "listaDezenasSorteadas": ["1","2","3","4","5","6"]}`,
		"own":   `{"contestNumber": 10, "drawDate": "01/01/2000", "drawnNumbers": ["01","02","03","04","05","06"], "prizeTiers": []}`,
		"ints":  `{"numero": 10, "listaDezenas": [1,2,3,4,5,6]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			res, err := c.FetchLatest(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 10, res.ContestNumber)
			assert.Equal(t, []string{"01", "02", "03", "04", "05", "06"}, res.DrawnNumbers)
			assert.NotNil(t, res.PrizeTiers)
		})
	}
}

func TestFetchLatest_FailuresAreUpstreamUnavailable(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"missing contest": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"listaDezenas": ["01","02","03","04","05","06"]}`))
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
		"five numbers": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"numero": 1, "listaDezenas": ["01","02","03","04","05"]}`))
		},
		"negative money": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"numero": 1, "listaDezenas": ["01","02","03","04","05","06"], "valorAcumulado": -1}`))
		},
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		"not found on latest": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newServer(t, h)
			_, err := c.FetchLatest(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUpstreamUnavailable)
			assert.NotErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFetchLatest_PassesThroughStatus(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := c.FetchLatest(context.Background())
	code, ok := StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestFetchByNumber_InvalidArgumentMakesNoCall(t *testing.T) {
	c, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s", r.URL.Path)
	})

	for _, n := range []int{0, -5} {
		_, err := c.FetchByNumber(context.Background(), n)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestFetchByNumber_NotFound(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/megasena/999999", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.FetchByNumber(context.Background(), 999999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestFetchByNumber_MismatchedContestIsUnavailable(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, caixaPayload, 2870)
	})

	_, err := c.FetchByNumber(context.Background(), 2000)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestFetchByNumber_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := New(base, WithTimeout(time.Second))
	_, err := c.FetchByNumber(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestObserverReceivesOutcome(t *testing.T) {
	var got []string
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/megasena/5" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = fmt.Fprintf(w, caixaPayload, 7)
	})
	c.Observer = func(op, outcome string, d time.Duration) { got = append(got, op+":"+outcome) }

	_, _ = c.FetchByNumber(context.Background(), 7)
	_, _ = c.FetchByNumber(context.Background(), 5)

	assert.Equal(t, []string{"by_number:ok", "by_number:not_found"}, got)
}

func TestRateLimitHonorsContext(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, caixaPayload, 1)
	})
	WithRateLimit(0.001, 1)(c)

	_, err := c.FetchByNumber(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.FetchByNumber(ctx, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
}

func TestWithTimeout_DoesNotTouchSharedClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	c := New("http://example.invalid", WithHTTPClient(shared), WithTimeout(3*time.Second))

	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Equal(t, 3*time.Second, c.HTTP.Timeout)
	assert.NotSame(t, shared, c.HTTP)
}
