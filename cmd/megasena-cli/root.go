package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radieske/megasena-tracker/internal/results-service/aggregator"
	"github.com/radieske/megasena-tracker/internal/results-service/dto"
	"github.com/radieske/megasena-tracker/internal/results-service/upstream"
	"github.com/radieske/megasena-tracker/internal/results-service/ws"
	"github.com/radieske/megasena-tracker/internal/shared/config"
	"github.com/radieske/megasena-tracker/internal/shared/logger"
)

type cliOptions struct {
	baseURL string
	timeout time.Duration
	asJSON  bool
	verbose bool
}

// newRootCmd monta a árvore de comandos; out recebe a saída formatada
func newRootCmd(out io.Writer) *cobra.Command {
	cfg := config.Load()
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "megasena-cli",
		Short:         "Consulta resultados da Mega-Sena",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `Consulta resultados da Mega-Sena na API da Caixa (ou em um results-service).

Comandos:
  latest   - último concurso
  contest  - concurso pelo número
  recent   - últimos N concursos, do mais novo para o mais antigo
  watch    - acompanha concursos novos via WebSocket`,
	}
	root.PersistentFlags().StringVar(&opts.baseURL, "api-url", cfg.LotteryAPIURL, "base da API de loterias (ou LOTTERY_API_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", cfg.UpstreamTimeout, "timeout por chamada")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "imprime JSON em vez de tabela")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log detalhado no stderr")

	client := func() *upstream.Client {
		return upstream.New(opts.baseURL,
			upstream.WithTimeout(opts.timeout),
			upstream.WithUserAgent(cfg.UserAgent),
		)
	}
	newAggregator := func() (*aggregator.Aggregator, error) {
		log := zap.NewNop()
		if opts.verbose {
			l, err := logger.New("megasena-cli", "local", "debug")
			if err != nil {
				return nil, err
			}
			log = l
		}
		return aggregator.New(client(), log), nil
	}

	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Mostra o último concurso",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().FetchLatest(cmd.Context())
			if err != nil {
				return describe(err)
			}
			return render(out, []dto.ContestResult{res}, opts.asJSON)
		},
	}

	contestCmd := &cobra.Command{
		Use:   "contest <numero>",
		Short: "Mostra um concurso pelo número",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return describe(upstream.ErrInvalidArgument)
			}
			agg, err := newAggregator()
			if err != nil {
				return err
			}
			res, err := agg.FetchOne(cmd.Context(), n)
			if err != nil {
				return describe(err)
			}
			return render(out, []dto.ContestResult{res}, opts.asJSON)
		},
	}

	var window int
	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "Mostra os últimos concursos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := newAggregator()
			if err != nil {
				return err
			}
			results, err := agg.FetchRecentWindow(cmd.Context(), window)
			if err != nil {
				return describe(err)
			}
			return render(out, results, opts.asJSON)
		},
	}
	recentCmd.Flags().IntVarP(&window, "window", "n", cfg.WindowSize, "quantidade de concursos")

	var wsURL string
	var topics []string
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Acompanha concursos novos pelo /ws de um results-service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			w := &ws.Watcher{
				URL:    wsURL,
				Topics: topics,
				Handle: func(raw json.RawMessage, topic string) {
					var results []dto.ContestResult
					if topic == ws.TopicWindow {
						if err := json.Unmarshal(raw, &results); err != nil {
							return
						}
					} else {
						var r dto.ContestResult
						if err := json.Unmarshal(raw, &r); err != nil {
							return
						}
						results = []dto.ContestResult{r}
					}
					_ = render(out, results, opts.asJSON)
				},
			}
			if opts.verbose {
				l, err := logger.New("megasena-cli", "local", "debug")
				if err != nil {
					return err
				}
				w.Log = l
			}
			if err := w.Validate(); err != nil {
				return err
			}
			w.Start(ctx)
			return nil
		},
	}
	watchCmd.Flags().StringVar(&wsURL, "ws-url", "ws://localhost:"+cfg.HTTPPort+"/ws", "endereço do /ws do results-service")
	watchCmd.Flags().StringSliceVar(&topics, "topic", []string{ws.TopicContests}, "tópicos: contests, window")

	root.AddCommand(latestCmd, contestCmd, recentCmd, watchCmd)
	root.SetOut(out)
	root.SetContext(context.Background())
	return root
}

// describe troca o erro técnico pela mensagem exibível
func describe(err error) error {
	return fmt.Errorf("%s (%w)", aggregator.Describe(err), err)
}
