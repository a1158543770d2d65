package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/megasena-tracker/internal/results-service/dto"
	"github.com/radieske/megasena-tracker/pkg/contracts/events"
)

// MessageReader é o subconjunto de *kafka.Reader usado aqui.
// O offset só é confirmado depois que a mensagem foi arquivada ou foi para a DLQ.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// MessageWriter é o subconjunto de *kafka.Writer usado para a DLQ
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Store interface {
	SaveContest(ctx context.Context, e events.ContestDrawn) error
}

type Cache interface {
	SetContest(ctx context.Context, v dto.ContestResult) error
}

type Broadcaster interface {
	Publish(ctx context.Context, res dto.ContestResult) error
}

var (
	errInvalidEvent = errors.New("evento de concurso inválido")
	// errNotParked: a mensagem falhou e também não chegou na DLQ
	errNotParked = errors.New("mensagem não arquivada nem enviada para a DLQ")
)

// Processor consome concursos do Kafka, arquiva no Postgres, aquece o cache
// e avisa os clientes WebSocket via Redis Pub/Sub
type Processor struct {
	Log       *zap.Logger
	Reader    MessageReader
	Repo      Store
	Cache     Cache         // opcional
	Broadcast Broadcaster   // opcional
	DLQ       MessageWriter // opcional

	OnConsumed func()       // métricas (counter++)
	OnPersist  func()       // métricas
	OnCached   func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo até o ctx encerrar
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		if err := p.Handle(ctx, m); errors.Is(err, errNotParked) {
			// sem commit: a mensagem volta a ser entregue quando o grupo reiniciar
			p.Log.Error("message left uncommitted", zap.Int64("offset", m.Offset), zap.Error(err))
			continue
		}
		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			p.fail("commit")
		}
	}
}

// Handle processa uma mensagem. Falha de decodificação ou do banco vai para a DLQ;
// falha do banco interrompe antes do cache e do broadcast.
// Se a DLQ também falhar, o erro devolvido carrega errNotParked.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) error {
	ev, err := decode(m.Value)
	if err != nil {
		p.Log.Warn("invalid message", zap.ByteString("key", m.Key), zap.Error(err))
		p.fail("decode")
		return p.deadLetter(ctx, m, err)
	}

	if err := p.Repo.SaveContest(ctx, ev); err != nil {
		p.Log.Warn("db save failed", zap.Int("contest", ev.ContestNumber), zap.Error(err))
		p.fail("db")
		return p.deadLetter(ctx, m, fmt.Errorf("db: %w", err))
	}
	if p.OnPersist != nil {
		p.OnPersist()
	}

	res := dto.FromEvent(ev)

	if p.Cache != nil {
		if err := p.Cache.SetContest(ctx, res); err != nil {
			// não desfaz a persistência se falhar o cache
			p.Log.Warn("redis set failed", zap.Int("contest", ev.ContestNumber), zap.Error(err))
			p.fail("cache")
		} else if p.OnCached != nil {
			p.OnCached()
		}
	}

	if p.Broadcast != nil {
		bctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		if err := p.Broadcast.Publish(bctx, res); err != nil {
			p.Log.Warn("ws broadcast publish failed", zap.Error(err))
			p.fail("broadcast")
		}
	}

	p.Log.Info("contest archived", zap.Int("contest", ev.ContestNumber), zap.String("draw_date", ev.DrawDate))
	return nil
}

func decode(b []byte) (events.ContestDrawn, error) {
	var ev events.ContestDrawn
	if err := json.Unmarshal(b, &ev); err != nil {
		return ev, fmt.Errorf("%w: %w", errInvalidEvent, err)
	}
	if ev.ContestNumber <= 0 {
		return ev, fmt.Errorf("%w: contest_number %d", errInvalidEvent, ev.ContestNumber)
	}
	if len(ev.DrawnNumbers) != 6 {
		return ev, fmt.Errorf("%w: %d dezenas", errInvalidEvent, len(ev.DrawnNumbers))
	}
	return ev, nil
}

// deadLetter devolve sempre um erro envolvendo cause
func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, cause error) error {
	if p.DLQ == nil {
		return fmt.Errorf("%w: %w", errNotParked, cause)
	}
	dlq := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(cause.Error())},
			{Key: "source_topic", Value: []byte(m.Topic)},
		},
	}
	if err := p.DLQ.WriteMessages(ctx, dlq); err != nil {
		p.Log.Error("dlq publish failed", zap.Error(err))
		p.fail("dlq")
		return fmt.Errorf("%w: %w", errNotParked, cause)
	}
	return cause
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
