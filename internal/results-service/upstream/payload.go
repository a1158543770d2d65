package upstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/radieske/megasena-tracker/internal/results-service/dto"
)

// payload aceita tanto os nomes da API da Caixa quanto os nomes desta API
// (a base pode apontar para outra instância do proxy). A normalização acontece só aqui.
type payload struct {
	Numero        *int `json:"numero"`
	ContestNumber *int `json:"contestNumber"`

	DataApuracao string `json:"dataApuracao"`
	DrawDate     string `json:"drawDate"`

	DrawnNumbers                      dezenas `json:"drawnNumbers"`
	ListaDezenas                      dezenas `json:"listaDezenas"`
	ListaDezenasSorteadas             dezenas `json:"listaDezenasSorteadas"`
	ListaDezenasSorteadasOrdemSorteio dezenas `json:"listaDezenasSorteadasOrdemSorteio"`

	IndicadorAcumulo *bool `json:"indicadorAcumulo"`
	Acumulado        *bool `json:"acumulado"`
	IsRolledOver     *bool `json:"isRolledOver"`

	ValorAcumulado                *float64 `json:"valorAcumulado"`
	ValorAcumuladoProximoConcurso *float64 `json:"valorAcumuladoProximoConcurso"`
	AccumulatedValue              *float64 `json:"accumulatedValue"`

	ValorEstimadoProximoConcurso *float64 `json:"valorEstimadoProximoConcurso"`
	EstimatedNextPrize           *float64 `json:"estimatedNextPrize"`

	ListaRateioPremio []faixa `json:"listaRateioPremio"`
	PrizeTiers        []faixa `json:"prizeTiers"`
}

type faixa struct {
	DescricaoFaixa     string   `json:"descricaoFaixa"`
	Description        string   `json:"description"`
	NumeroDeGanhadores *int     `json:"numeroDeGanhadores"`
	Winners            *int     `json:"winners"`
	ValorPremio        *float64 `json:"valorPremio"`
	Prize              *float64 `json:"prize"`
}

// dezenas aceita ["04","5"] e [4,5]
type dezenas []string

func (d *dezenas) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n int
		if err := json.Unmarshal(r, &n); err != nil {
			return fmt.Errorf("dezena inválida %s", string(r))
		}
		out = append(out, strconv.Itoa(n))
	}
	*d = out
	return nil
}

var errMissingContest = errors.New("payload sem número de concurso")

// decode converte o corpo do fornecedor em ContestResult validado
func decode(body []byte) (dto.ContestResult, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return dto.ContestResult{}, fmt.Errorf("decode payload: %w", err)
	}
	return p.normalize()
}

func (p payload) normalize() (dto.ContestResult, error) {
	number := firstInt(p.Numero, p.ContestNumber)
	if number <= 0 {
		return dto.ContestResult{}, errMissingContest
	}

	nums, err := normalizeNumbers(firstList(p.DrawnNumbers, p.ListaDezenas, p.ListaDezenasSorteadas, p.ListaDezenasSorteadasOrdemSorteio))
	if err != nil {
		return dto.ContestResult{}, fmt.Errorf("concurso %d: %w", number, err)
	}

	out := dto.ContestResult{
		ContestNumber:      number,
		DrawDate:           firstString(p.DataApuracao, p.DrawDate),
		DrawnNumbers:       nums,
		IsRolledOver:       firstBool(p.IndicadorAcumulo, p.Acumulado, p.IsRolledOver),
		AccumulatedValue:   firstFloat(p.ValorAcumulado, p.ValorAcumuladoProximoConcurso, p.AccumulatedValue),
		EstimatedNextPrize: firstFloat(p.ValorEstimadoProximoConcurso, p.EstimatedNextPrize),
	}
	if out.AccumulatedValue < 0 || out.EstimatedNextPrize < 0 {
		return dto.ContestResult{}, fmt.Errorf("concurso %d: valor monetário negativo", number)
	}

	tiers := p.ListaRateioPremio
	if len(tiers) == 0 {
		tiers = p.PrizeTiers
	}
	// sem rateio é dado degradado, não erro
	out.PrizeTiers = make([]dto.PrizeTier, 0, len(tiers))
	for _, f := range tiers {
		t := dto.PrizeTier{
			Description: firstString(f.DescricaoFaixa, f.Description),
			Winners:     firstInt(f.NumeroDeGanhadores, f.Winners),
			Prize:       firstFloat(f.ValorPremio, f.Prize),
		}
		if t.Winners < 0 || t.Prize < 0 {
			return dto.ContestResult{}, fmt.Errorf("concurso %d: faixa %q com valores negativos", number, t.Description)
		}
		out.PrizeTiers = append(out.PrizeTiers, t)
	}

	return out, nil
}

// normalizeNumbers exige 6 dezenas entre 01 e 60, sempre com dois dígitos
func normalizeNumbers(in []string) ([]string, error) {
	if len(in) != 6 {
		return nil, fmt.Errorf("esperadas 6 dezenas, recebidas %d", len(in))
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 1 || n > 60 {
			return nil, fmt.Errorf("dezena inválida %q", s)
		}
		out = append(out, fmt.Sprintf("%02d", n))
	}
	return out, nil
}

func firstList(lists ...dezenas) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}

func firstInt(vs ...*int) int {
	for _, v := range vs {
		if v != nil {
			return *v
		}
	}
	return 0
}

func firstFloat(vs ...*float64) float64 {
	for _, v := range vs {
		if v != nil {
			return *v
		}
	}
	return 0
}

func firstBool(vs ...*bool) bool {
	for _, v := range vs {
		if v != nil {
			return *v
		}
	}
	return false
}

func firstString(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
