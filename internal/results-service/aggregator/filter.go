package aggregator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/radieske/megasena-tracker/internal/results-service/dto"
)

// Criteria são os filtros de pesquisa da tela (todos opcionais)
type Criteria struct {
	Contest string // trecho do número do concurso
	Date    string // trecho da data (ex: "20/05")
	Numbers string // dezenas separadas por vírgula/espaço (ex: "10,25")
}

var numberSep = regexp.MustCompile(`[,\s]+`)

// ParseNumbers separa por vírgula/espaço e completa com zero à esquerda ("5" -> "05")
func ParseNumbers(in string) []string {
	var out []string
	for _, part := range numberSep.Split(strings.TrimSpace(in), -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			part = fmt.Sprintf("%02d", n)
		} else if len(part) == 1 {
			part = "0" + part
		}
		out = append(out, part)
	}
	return out
}

// Filter aplica os critérios preservando a ordem de entrada
func Filter(rs []dto.ContestResult, c Criteria) []dto.ContestResult {
	wanted := ParseNumbers(c.Numbers)

	out := make([]dto.ContestResult, 0, len(rs))
	for _, r := range rs {
		if c.Contest != "" && !strings.Contains(strconv.Itoa(r.ContestNumber), c.Contest) {
			continue
		}
		if c.Date != "" && !strings.Contains(r.DrawDate, c.Date) {
			continue
		}
		if len(wanted) > 0 && !containsAll(r.DrawnNumbers, wanted) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsAll(have, wanted []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	for _, w := range wanted {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}
