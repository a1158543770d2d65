package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Watcher conecta no /ws do results-service, assina tópicos e entrega cada Update ao Handle.
// Em caso de desconexão, reconecta após RetryDelay.
type Watcher struct {
	URL        string
	Topics     []string
	Log        *zap.Logger
	RetryDelay time.Duration
	Handle     func(raw json.RawMessage, topic string)
}

type inbound struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Start mantém a conexão até o ctx encerrar
func (c *Watcher) Start(ctx context.Context) {
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = 3 * time.Second
	}

	for {
		if err := c.connectAndListen(ctx); err != nil {
			c.Log.Warn("connection closed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			c.Log.Info("context canceled, stopping WS watcher")
			return
		case <-time.After(delay): // aguarda antes de tentar reconectar
		}
	}
}

func (c *Watcher) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	c.Log.Info("connected to results WS", zap.String("url", c.URL))

	// fecha a conexão quando o ctx encerra para destravar o ReadMessage
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for _, t := range c.Topics {
		if err := conn.WriteJSON(ClientMsg{Type: "subscribe", Topic: t}); err != nil {
			return err
		}
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		var msg inbound
		if err := json.Unmarshal(message, &msg); err != nil {
			c.Log.Warn("invalid message", zap.Error(err))
			continue
		}
		if msg.Payload == nil || msg.Topic == "" {
			continue // acks e pong
		}
		if c.Handle != nil {
			c.Handle(msg.Payload, msg.Topic)
		}
	}
}

// ErrNoTopics é devolvido por Validate quando nenhum tópico foi informado
var ErrNoTopics = errors.New("nenhum tópico para assinar")

func (c *Watcher) Validate() error {
	if len(c.Topics) == 0 {
		return ErrNoTopics
	}
	return nil
}
