package dto

import (
	"strings"

	"github.com/radieske/megasena-tracker/pkg/contracts/events"
)

// ContestResult representa um concurso da Mega-Sena já normalizado
// Construído a cada busca; quem recebe passa a ser o dono e não deve alterá-lo
type ContestResult struct {
	ContestNumber      int         `json:"contestNumber"`
	DrawDate           string      `json:"drawDate"`
	DrawnNumbers       []string    `json:"drawnNumbers"` // 6 dezenas, ordem do fornecedor
	IsRolledOver       bool        `json:"isRolledOver"`
	AccumulatedValue   float64     `json:"accumulatedValue"`
	EstimatedNextPrize float64     `json:"estimatedNextPrize"`
	PrizeTiers         []PrizeTier `json:"prizeTiers"`
}

// PrizeTier representa uma faixa de premiação (ex: "6 acertos")
type PrizeTier struct {
	Description string  `json:"description"`
	Winners     int     `json:"winners"`
	Prize       float64 `json:"prize"` // valor por ganhador
}

// ErrorResponse é o corpo padrão de erro da API
type ErrorResponse struct {
	Message string `json:"message"`
}

// ToEvent converte o concurso no contrato publicado no Kafka
func (c ContestResult) ToEvent() events.ContestDrawn {
	tiers := make([]events.PrizeTier, 0, len(c.PrizeTiers))
	for _, t := range c.PrizeTiers {
		tiers = append(tiers, events.PrizeTier{Description: t.Description, Winners: t.Winners, Prize: t.Prize})
	}
	return events.ContestDrawn{
		ContestNumber:      c.ContestNumber,
		DrawDate:           c.DrawDate,
		DrawnNumbers:       append([]string(nil), c.DrawnNumbers...),
		IsRolledOver:       c.IsRolledOver,
		AccumulatedValue:   c.AccumulatedValue,
		EstimatedNextPrize: c.EstimatedNextPrize,
		PrizeTiers:         tiers,
	}
}

// FromEvent reconstrói o concurso a partir do evento consumido
func FromEvent(e events.ContestDrawn) ContestResult {
	tiers := make([]PrizeTier, 0, len(e.PrizeTiers))
	for _, t := range e.PrizeTiers {
		tiers = append(tiers, PrizeTier{Description: t.Description, Winners: t.Winners, Prize: t.Prize})
	}
	return ContestResult{
		ContestNumber:      e.ContestNumber,
		DrawDate:           e.DrawDate,
		DrawnNumbers:       append([]string(nil), e.DrawnNumbers...),
		IsRolledOver:       e.IsRolledOver,
		AccumulatedValue:   e.AccumulatedValue,
		EstimatedNextPrize: e.EstimatedNextPrize,
		PrizeTiers:         tiers,
	}
}

// TopTier retorna a faixa principal ("6 acertos"), se o fornecedor a enviou
func (c ContestResult) TopTier() (PrizeTier, bool) {
	for _, t := range c.PrizeTiers {
		if strings.Contains(t.Description, "6 acertos") {
			return t, true
		}
	}
	return PrizeTier{}, false
}
