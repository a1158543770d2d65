package publisher

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/megasena-tracker/internal/results-service/dto"
)

// Source identifica quem publicou o evento
const Source = "results-service"

// MessageWriter é o subconjunto de *kafka.Writer usado aqui
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ContestPublisher anuncia no Kafka os concursos que ainda não foram anunciados.
// A primeira janela anuncia tudo; depois só o que não está no conjunto de anunciados,
// inclusive concursos antigos que faltaram numa janela anterior.
type ContestPublisher struct {
	writer MessageWriter
	log    *zap.Logger
	now    func() time.Time

	OnPublished func(n int) // métricas

	mu        sync.Mutex
	announced map[int]struct{}
}

func NewContestPublisher(w MessageWriter, log *zap.Logger) *ContestPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContestPublisher{writer: w, log: log, now: time.Now, announced: map[int]struct{}{}}
}

// AnnounceNew publica em ordem crescente os concursos da janela ainda não anunciados.
// Assinatura compatível com refresher.Observer.
func (p *ContestPublisher) AnnounceNew(ctx context.Context, results []dto.ContestResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fresh := make([]dto.ContestResult, 0, len(results))
	for _, r := range results {
		if _, ok := p.announced[r.ContestNumber]; !ok {
			fresh = append(fresh, r)
		}
	}
	if len(fresh) == 0 {
		p.forgetBelow(results)
		return
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].ContestNumber < fresh[j].ContestNumber })

	msgs := make([]kafka.Message, 0, len(fresh))
	for _, r := range fresh {
		ev := r.ToEvent()
		ev.ObservedAt = p.now().UTC()
		ev.Source = Source

		value, err := json.Marshal(ev)
		if err != nil {
			p.log.Error("marshal contest event", zap.Int("contest", r.ContestNumber), zap.Error(err))
			return
		}
		// chave = número do concurso para manter a partição estável
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.Itoa(r.ContestNumber)),
			Value: value,
			Time:  ev.ObservedAt,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		// nada entra no conjunto: a próxima janela tenta de novo
		p.log.Error("failed to publish contests", zap.Int("count", len(msgs)), zap.Error(err))
		return
	}

	for _, r := range fresh {
		p.announced[r.ContestNumber] = struct{}{}
	}
	p.forgetBelow(results)

	if p.OnPublished != nil {
		p.OnPublished(len(msgs))
	}
	p.log.Debug("published contests", zap.Int("count", len(msgs)), zap.Int("newest", fresh[len(fresh)-1].ContestNumber))
}

// forgetBelow descarta do conjunto o que já saiu da janela, que só avança
func (p *ContestPublisher) forgetBelow(results []dto.ContestResult) {
	if len(results) == 0 {
		return
	}
	oldest := results[0].ContestNumber
	for _, r := range results[1:] {
		oldest = min(oldest, r.ContestNumber)
	}
	for n := range p.announced {
		if n < oldest {
			delete(p.announced, n)
		}
	}
}

// Close finaliza o writer e libera recursos associados.
func (p *ContestPublisher) Close() error {
	return p.writer.Close()
}
