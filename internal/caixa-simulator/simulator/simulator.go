package simulator

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// primeiro sorteio da Mega-Sena
var firstDraw = time.Date(1996, time.March, 11, 0, 0, 0, 0, time.UTC)

// Simulator imita a API de loterias da Caixa para testes locais.
// Os concursos são determinísticos por número; falhas são injetadas com SetFailRate.
type Simulator struct {
	Log *zap.Logger

	OnRequest func(op, outcome string) // métricas

	mu       sync.Mutex
	latest   int
	failRate float64 // 0..1, fração de respostas 503
	rnd      *rand.Rand
}

func New(latest int, failRate float64, log *zap.Logger) *Simulator {
	if log == nil {
		log = zap.NewNop()
	}
	if latest < 1 {
		latest = 1
	}
	return &Simulator{
		Log:      log,
		failRate: failRate,
		latest:   latest,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Latest devolve o último concurso sorteado
func (s *Simulator) Latest() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Draw avança um concurso
func (s *Simulator) Draw() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	s.Log.Info("new contest drawn", zap.Int("contest", s.latest))
	return s.latest
}

// SetFailRate ajusta a fração de respostas 503 (0..1)
func (s *Simulator) SetFailRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRate = rate
}

func (s *Simulator) shouldFail() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failRate > 0 && s.rnd.Float64() < s.failRate
}

// Router expõe GET /megasena e GET /megasena/{n} no formato da Caixa
func (s *Simulator) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/megasena", s.latestHandler)
	r.Get("/megasena/{n}", s.contestHandler)
	return r
}

func (s *Simulator) latestHandler(w http.ResponseWriter, r *http.Request) {
	if s.shouldFail() {
		s.fail(w, "latest")
		return
	}
	s.count("latest", "ok")
	writeJSON(w, http.StatusOK, Contest(s.Latest()))
}

func (s *Simulator) contestHandler(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n <= 0 {
		s.count("by_number", "bad_request")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if n > s.Latest() {
		s.count("by_number", "not_found")
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if s.shouldFail() {
		s.fail(w, "by_number")
		return
	}
	s.count("by_number", "ok")
	writeJSON(w, http.StatusOK, Contest(n))
}

func (s *Simulator) fail(w http.ResponseWriter, op string) {
	s.count(op, "injected_failure")
	http.Error(w, "service unavailable (simulated)", http.StatusServiceUnavailable)
}

func (s *Simulator) count(op, outcome string) {
	if s.OnRequest != nil {
		s.OnRequest(op, outcome)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Tier é uma faixa de premiação no formato da Caixa
type Tier struct {
	DescricaoFaixa     string  `json:"descricaoFaixa"`
	Faixa              int     `json:"faixa"`
	NumeroDeGanhadores int     `json:"numeroDeGanhadores"`
	ValorPremio        float64 `json:"valorPremio"`
}

// Payload replica os campos da resposta da Caixa usados pelo results-service
type Payload struct {
	Numero                            int      `json:"numero"`
	DataApuracao                      string   `json:"dataApuracao"`
	ListaDezenas                      []string `json:"listaDezenas"`
	ListaDezenasSorteadasOrdemSorteio []string `json:"listaDezenasSorteadasOrdemSorteio"`
	Acumulado                         bool     `json:"acumulado"`
	ValorAcumuladoProximoConcurso     float64  `json:"valorAcumuladoProximoConcurso"`
	ValorEstimadoProximoConcurso      float64  `json:"valorEstimadoProximoConcurso"`
	ListaRateioPremio                 []Tier   `json:"listaRateioPremio"`
}

// Contest gera o concurso n; o mesmo n sempre gera o mesmo resultado
func Contest(n int) Payload {
	rnd := rand.New(rand.NewSource(int64(n)))

	order := rnd.Perm(60)[:6]
	drawOrder := make([]string, 0, 6)
	sorted := make([]int, 0, 6)
	for _, i := range order {
		drawOrder = append(drawOrder, fmt.Sprintf("%02d", i+1))
		sorted = append(sorted, i+1)
	}
	sort.Ints(sorted)
	numbers := make([]string, 0, 6)
	for _, d := range sorted {
		numbers = append(numbers, fmt.Sprintf("%02d", d))
	}

	sixWinners := 0
	if rnd.Intn(4) == 0 {
		sixWinners = 1 + rnd.Intn(2)
	}
	accumulated := float64(rnd.Intn(90_000_000)) + 0.5
	sixPrize := 0.0
	if sixWinners > 0 {
		sixPrize = accumulated / float64(sixWinners)
	}

	return Payload{
		Numero:                            n,
		DataApuracao:                      firstDraw.AddDate(0, 0, 3*(n-1)).Format("02/01/2006"),
		ListaDezenas:                      numbers,
		ListaDezenasSorteadasOrdemSorteio: drawOrder,
		Acumulado:                         sixWinners == 0,
		ValorAcumuladoProximoConcurso:     accumulated,
		ValorEstimadoProximoConcurso:      accumulated + 3_500_000,
		ListaRateioPremio: []Tier{
			{DescricaoFaixa: "6 acertos", Faixa: 1, NumeroDeGanhadores: sixWinners, ValorPremio: sixPrize},
			{DescricaoFaixa: "5 acertos", Faixa: 2, NumeroDeGanhadores: 20 + rnd.Intn(80), ValorPremio: 30_000 + float64(rnd.Intn(40_000))},
			{DescricaoFaixa: "4 acertos", Faixa: 3, NumeroDeGanhadores: 2_000 + rnd.Intn(6_000), ValorPremio: 800 + float64(rnd.Intn(700))},
		},
	}
}
