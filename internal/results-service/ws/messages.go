package ws

// Tópicos aceitos em subscribe/unsubscribe
const (
	TopicContests = "contests" // concursos arquivados (canal Redis)
	TopicWindow   = "window"   // janela atualizada pelo refresher
)

// ClientMsg representa uma mensagem recebida do cliente WebSocket
type ClientMsg struct {
	Type  string `json:"type"`  // subscribe | unsubscribe | ping
	Topic string `json:"topic"` // requerido em subscribe/unsubscribe
}

// Update é o envelope enviado aos clientes inscritos no tópico
type Update struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}
