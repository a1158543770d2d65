package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument: número de concurso não positivo ou não numérico; nenhuma chamada é feita
	ErrInvalidArgument = errors.New("número do concurso inválido")
	// ErrNotFound: o fornecedor informou que o concurso não existe (futuro ou inválido)
	ErrNotFound = errors.New("concurso não encontrado")
	// ErrUpstreamUnavailable: falha de transporte, status não-2xx ou payload ilegível
	ErrUpstreamUnavailable = errors.New("falha na comunicação com a API de loterias")
)

// StatusError guarda o status HTTP devolvido pelo fornecedor
// Desembrulha para ErrNotFound ou ErrUpstreamUnavailable
type StatusError struct {
	StatusCode int
	URL        string
	kind       error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: http %d em %s", e.kind, e.StatusCode, e.URL)
}

func (e *StatusError) Unwrap() error { return e.kind }

// StatusCode extrai o status do fornecedor, se houver
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}
