package aggregator

import (
	"errors"

	"github.com/radieske/megasena-tracker/internal/results-service/upstream"
)

// Describe devolve a mensagem exibível para o usuário conforme a classe do erro
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, upstream.ErrInvalidArgument):
		return "Número do concurso inválido."
	case errors.Is(err, upstream.ErrNotFound):
		return "Concurso não encontrado."
	case errors.Is(err, ErrAggregateEmpty):
		return "Nenhum resultado pôde ser buscado. A API da Caixa pode estar com problemas."
	case errors.Is(err, upstream.ErrUpstreamUnavailable):
		return "Falha na comunicação com a API de loterias."
	default:
		return "Ocorreu um erro desconhecido."
	}
}
