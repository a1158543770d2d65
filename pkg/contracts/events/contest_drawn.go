package events

import "time"

// Faixa de premiação de um concurso
type PrizeTier struct {
	Description string  `json:"description"`
	Winners     int     `json:"winners"`
	Prize       float64 `json:"prize"`
}

// Evento publicado no tópico "megasena_contests" quando um concurso novo aparece na janela
type ContestDrawn struct {
	ContestNumber      int         `json:"contest_number"`
	DrawDate           string      `json:"draw_date"`
	DrawnNumbers       []string    `json:"drawn_numbers"`
	IsRolledOver       bool        `json:"is_rolled_over"`
	AccumulatedValue   float64     `json:"accumulated_value"`
	EstimatedNextPrize float64     `json:"estimated_next_prize"`
	PrizeTiers         []PrizeTier `json:"prize_tiers"`
	ObservedAt         time.Time   `json:"observed_at"`
	Source             string      `json:"source"` // "results-service"
}
