package refresher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/megasena-tracker/internal/results-service/aggregator"
	"github.com/radieske/megasena-tracker/internal/results-service/dto"
)

// DefaultInterval é o intervalo de atualização automática da janela
const DefaultInterval = 5 * time.Minute

// WindowFetcher é implementado por aggregator.Aggregator
type WindowFetcher interface {
	FetchRecentWindow(ctx context.Context, windowSize int) ([]dto.ContestResult, error)
}

// Observer recebe cada janela atualizada com sucesso (cópia própria)
type Observer func(ctx context.Context, results []dto.ContestResult)

// Snapshot é a coleção exibida no painel
type Snapshot struct {
	Results    []dto.ContestResult `json:"results"`
	Status     string              `json:"status"`
	LastUpdate *time.Time          `json:"lastUpdate,omitempty"`
	LastError  string              `json:"lastError,omitempty"`
}

// Refresher é dono da coleção exibida e do timer de atualização.
// Sucesso substitui a coleção inteira; falha preserva a anterior e só atualiza o status.
type Refresher struct {
	Fetcher    WindowFetcher
	WindowSize int
	Interval   time.Duration
	Log        *zap.Logger

	OnOutcome func(ok bool) // métricas

	observers []Observer
	now       func() time.Time

	refreshMu sync.Mutex // uma atualização por vez

	mu         sync.RWMutex
	results    []dto.ContestResult
	status     string
	lastErr    string
	lastUpdate time.Time
}

func New(f WindowFetcher, windowSize int, interval time.Duration, log *zap.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Refresher{
		Fetcher:    f,
		WindowSize: windowSize,
		Interval:   interval,
		Log:        log,
		now:        time.Now,
		status:     "Pronto para consulta.",
	}
}

// Subscribe registra um observador; chamar antes de Start
func (r *Refresher) Subscribe(o Observer) {
	r.observers = append(r.observers, o)
}

// Start carrega a janela e repete a cada Interval até o ctx encerrar
func (r *Refresher) Start(ctx context.Context) {
	if _, err := r.Refresh(ctx); err != nil {
		r.Log.Warn("initial window load failed", zap.Error(err))
	}

	t := time.NewTicker(r.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Log.Info("refresher stopped")
			return
		case <-t.C:
			if _, err := r.Refresh(ctx); err != nil {
				r.Log.Warn("scheduled refresh failed", zap.Error(err))
			}
		}
	}
}

// Refresh busca a janela agora e devolve o snapshot resultante
func (r *Refresher) Refresh(ctx context.Context) (Snapshot, error) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	results, err := r.Fetcher.FetchRecentWindow(ctx, r.WindowSize)
	if r.OnOutcome != nil {
		r.OnOutcome(err == nil)
	}

	if err != nil {
		r.mu.Lock()
		r.status = aggregator.Describe(err)
		r.lastErr = err.Error()
		r.mu.Unlock()
		return r.Snapshot(), err
	}

	r.mu.Lock()
	r.results = results
	r.status = fmt.Sprintf("%d concursos carregados com sucesso.", len(results))
	r.lastErr = ""
	r.lastUpdate = r.now()
	r.mu.Unlock()

	fields := []zap.Field{zap.Int("contests", len(results))}
	if len(results) > 0 {
		fields = append(fields, zap.Int("newest", results[0].ContestNumber))
	}
	r.Log.Info("window refreshed", fields...)

	for _, o := range r.observers {
		o(ctx, copyResults(results))
	}

	return r.Snapshot(), nil
}

// Merge adiciona um concurso pesquisado à coleção exibida (sem duplicar)
func (r *Refresher) Merge(res dto.ContestResult) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged, added := aggregator.Merge(r.results, res)
	r.results = merged
	return added
}

// Snapshot devolve uma cópia da coleção atual e do status
func (r *Refresher) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Snapshot{
		Results:   copyResults(r.results),
		Status:    r.status,
		LastError: r.lastErr,
	}
	if !r.lastUpdate.IsZero() {
		lu := r.lastUpdate
		s.LastUpdate = &lu
	}
	return s
}

func copyResults(in []dto.ContestResult) []dto.ContestResult {
	out := make([]dto.ContestResult, len(in))
	copy(out, in)
	return out
}
