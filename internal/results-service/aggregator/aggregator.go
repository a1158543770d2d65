package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/megasena-tracker/internal/results-service/dto"
	"github.com/radieske/megasena-tracker/internal/results-service/upstream"
)

// DefaultWindowSize é o tamanho padrão da janela (últimos 10 concursos)
const DefaultWindowSize = 10

// ErrAggregateEmpty: o último concurso foi obtido, mas todos os concursos da janela falharam
var ErrAggregateEmpty = errors.New("nenhum resultado pôde ser buscado; a API da Caixa pode estar com problemas")

// Source é o que o agregador precisa do cliente do fornecedor
type Source interface {
	FetchLatest(ctx context.Context) (dto.ContestResult, error)
	FetchByNumber(ctx context.Context, n int) (dto.ContestResult, error)
}

// Aggregator monta a janela mais recente tolerando falhas individuais
type Aggregator struct {
	Source Source
	Log    *zap.Logger

	// OnWindow recebe duração e quantos concursos vieram (métricas)
	OnWindow func(d time.Duration, requested, fetched int, err error)
}

func New(src Source, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{Source: src, Log: log}
}

// Candidates devolve {n, n-1, ..., n-size+1} sem números não positivos
func Candidates(latest, size int) []int {
	out := make([]int, 0, size)
	for i := 0; i < size; i++ {
		if c := latest - i; c > 0 {
			out = append(out, c)
		}
	}
	return out
}

// FetchRecentWindow busca o último concurso e, em paralelo, os windowSize anteriores.
// Falhas individuais são descartadas; o resultado sai ordenado do mais novo para o mais antigo.
func (a *Aggregator) FetchRecentWindow(ctx context.Context, windowSize int) (out []dto.ContestResult, err error) {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}

	start := time.Now()
	var requested int
	defer func() {
		if a.OnWindow != nil {
			a.OnWindow(time.Since(start), requested, len(out), err)
		}
	}()

	latest, err := a.Source.FetchLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("não foi possível obter o número do último concurso: %w", err)
	}

	candidates := Candidates(latest.ContestNumber, windowSize)
	requested = len(candidates)

	// cada goroutine escreve só no próprio slot; nada é compartilhado
	slots := make([]*dto.ContestResult, len(candidates))

	// settle-all: nenhuma tarefa devolve erro, então uma falha não cancela as outras
	var g errgroup.Group
	for i, n := range candidates {
		g.Go(func() error {
			res, ferr := a.Source.FetchByNumber(ctx, n)
			if ferr != nil {
				if errors.Is(ferr, upstream.ErrNotFound) {
					a.Log.Debug("contest not found", zap.Int("contest", n))
				} else {
					a.Log.Debug("contest fetch failed", zap.Int("contest", n), zap.Error(ferr))
				}
				return nil
			}
			slots[i] = &res
			return nil
		})
	}
	_ = g.Wait()

	out = make([]dto.ContestResult, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}

	if len(out) == 0 {
		return nil, ErrAggregateEmpty
	}

	SortDesc(out)
	return out, nil
}

// FetchOne valida a entrada antes de chamar o fornecedor e repassa as falhas sem alterar
func (a *Aggregator) FetchOne(ctx context.Context, n int) (dto.ContestResult, error) {
	if n <= 0 {
		return dto.ContestResult{}, fmt.Errorf("%w: %d", upstream.ErrInvalidArgument, n)
	}
	return a.Source.FetchByNumber(ctx, n)
}

// SortDesc ordena por número do concurso, do mais novo para o mais antigo
func SortDesc(rs []dto.ContestResult) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].ContestNumber > rs[j].ContestNumber })
}
