package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/radieske/megasena-tracker/internal/results-service/dto"
)

var (
	// ErrDisabled indica que não há chave do Gemini configurada
	ErrDisabled = errors.New("sugestão de dezenas desabilitada")
	// ErrNoHistory indica que não há concursos para analisar
	ErrNoHistory = errors.New("nenhum concurso carregado para análise")
	// ErrInvalidSuggestion indica resposta do modelo fora do formato
	ErrInvalidSuggestion = errors.New("sugestão inválida retornada pelo modelo")
)

// Suggestion é a resposta exposta em POST /v1/suggestions
type Suggestion struct {
	SuggestedNumbers []string `json:"suggestedNumbers"`
	Explanation      string   `json:"explanation"`
}

// Generator executa um prompt e devolve o texto JSON produzido pelo modelo
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Service struct {
	gen Generator
	log *zap.Logger
}

// NewService aceita gen nil: nesse caso Suggest devolve ErrDisabled
func NewService(gen Generator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{gen: gen, log: log}
}

func (s *Service) Enabled() bool { return s != nil && s.gen != nil }

// Suggest pede ao modelo 6 dezenas com base no histórico e valida a resposta
func (s *Service) Suggest(ctx context.Context, history []dto.ContestResult) (Suggestion, error) {
	if !s.Enabled() {
		return Suggestion{}, ErrDisabled
	}
	if len(history) == 0 {
		return Suggestion{}, ErrNoHistory
	}

	raw, err := s.gen.Generate(ctx, BuildPrompt(history))
	if err != nil {
		return Suggestion{}, fmt.Errorf("gerar sugestão: %w", err)
	}

	out, err := parseSuggestion(raw)
	if err != nil {
		s.log.Warn("model returned invalid suggestion", zap.String("raw", raw), zap.Error(err))
		return Suggestion{}, err
	}
	return out, nil
}

// BuildPrompt monta o prompt fixo com o histórico (numero + listaDezenas)
func BuildPrompt(history []dto.ContestResult) string {
	var b strings.Builder
	b.WriteString("Você é um analista de dados especialista em padrões de loteria. ")
	b.WriteString("Analise o histórico de resultados da Mega-Sena e sugira 6 dezenas distintas entre 01 e 60 para o próximo concurso, ")
	b.WriteString("com base em frequência e em dezenas quentes e frias. ")
	b.WriteString("Responda em JSON com os campos suggestedNumbers e explanation.\n\n")
	b.WriteString("Histórico dos últimos concursos:\n")
	for _, r := range history {
		fmt.Fprintf(&b, "- Concurso %d: %s\n", r.ContestNumber, strings.Join(r.DrawnNumbers, ", "))
	}
	return b.String()
}

func parseSuggestion(raw string) (Suggestion, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var in struct {
		SuggestedNumbers []json.RawMessage `json:"suggestedNumbers"`
		Explanation      string            `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &in); err != nil {
		return Suggestion{}, fmt.Errorf("%w: %w", ErrInvalidSuggestion, err)
	}
	if len(in.SuggestedNumbers) != 6 {
		return Suggestion{}, fmt.Errorf("%w: esperadas 6 dezenas, recebidas %d", ErrInvalidSuggestion, len(in.SuggestedNumbers))
	}

	seen := make(map[int]struct{}, 6)
	nums := make([]int, 0, 6)
	for _, m := range in.SuggestedNumbers {
		// o modelo às vezes devolve número em vez de string
		s := strings.Trim(strings.TrimSpace(string(m)), `"`)
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 60 {
			return Suggestion{}, fmt.Errorf("%w: dezena fora do intervalo: %s", ErrInvalidSuggestion, s)
		}
		if _, dup := seen[n]; dup {
			return Suggestion{}, fmt.Errorf("%w: dezena repetida: %02d", ErrInvalidSuggestion, n)
		}
		seen[n] = struct{}{}
		nums = append(nums, n)
	}
	sort.Ints(nums)

	out := Suggestion{SuggestedNumbers: make([]string, 0, 6), Explanation: strings.TrimSpace(in.Explanation)}
	for _, n := range nums {
		out.SuggestedNumbers = append(out.SuggestedNumbers, fmt.Sprintf("%02d", n))
	}
	return out, nil
}
