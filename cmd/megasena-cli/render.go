package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/radieske/megasena-tracker/internal/results-service/dto"
)

func render(out io.Writer, results []dto.ContestResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONCURSO\tDATA\tDEZENAS\tACUMULOU\tGANHADORES (6)\tPRÓXIMO PRÊMIO")
	for _, r := range results {
		winners := "-"
		if top, ok := r.TopTier(); ok {
			winners = fmt.Sprintf("%d", top.Winners)
		}
		acc := "não"
		if r.IsRolledOver {
			acc = "sim"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ContestNumber, r.DrawDate, strings.Join(r.DrawnNumbers, " "), acc, winners, formatBRL(r.EstimatedNextPrize))
	}
	return tw.Flush()
}

// formatBRL formata no padrão pt-BR: R$ 1.234.567,89
func formatBRL(v float64) string {
	return message.NewPrinter(language.BrazilianPortuguese).Sprintf("R$ %.2f", v)
}
