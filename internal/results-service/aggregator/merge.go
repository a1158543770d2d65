package aggregator

import "github.com/radieske/megasena-tracker/internal/results-service/dto"

// Merge insere r numa coleção já exibida.
// Número repetido não altera nada; caso contrário insere e reordena (desc).
// Sempre devolve um slice novo; a coleção recebida não é modificada.
func Merge(current []dto.ContestResult, r dto.ContestResult) ([]dto.ContestResult, bool) {
	for _, c := range current {
		if c.ContestNumber == r.ContestNumber {
			return append([]dto.ContestResult(nil), current...), false
		}
	}

	out := make([]dto.ContestResult, 0, len(current)+1)
	out = append(out, current...)
	out = append(out, r)
	SortDesc(out)
	return out, true
}
