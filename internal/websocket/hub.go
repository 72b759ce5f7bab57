package websocket

import (
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"triarb/internal/bot"
	"triarb/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Hub управляет всеми активными WebSocket соединениями
//
// Центральный менеджер push-уведомлений панели оператора: регистрирует
// клиентов, рассылает сообщения всем подключенным, отключает медленных.
// Broadcast неблокирующий - при переполнении канала сообщение
// отбрасывается (панель переживет пропуск, ядро ждать не должно).
//
// Использование:
//  1. hub := NewHub(logger)
//  2. go hub.Run()
//  3. hub.BroadcastTradeUpdate(trade)
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	dropped     atomic.Int64
	clientCount atomic.Int64

	logger *zap.Logger

	mu       sync.RWMutex
	stopOnce sync.Once
}

// Hub реализует интерфейс push-уведомлений ядра
var _ bot.Broadcaster = (*Hub)(nil)

// NewHub создает новый Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run запускает главный цикл Hub
//
// Должен запускаться в отдельной горутине: go hub.Run().
// Обрабатывает регистрацию, отмену регистрации и broadcast,
// завершается после Stop().
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientCount.Store(0)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.clientCount.Store(int64(len(h.clients)))
			h.mu.Unlock()
			h.logger.Debug("websocket client connected",
				zap.Int64("total_clients", h.clientCount.Load()))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientCount.Store(int64(len(h.clients)))
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected",
				zap.Int64("total_clients", h.clientCount.Load()))

		case message := <-h.broadcast:
			// Копируем список клиентов под коротким RLock,
			// отправляем без блокировки.
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// Клиент не успевает читать - отключаем
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				h.clientCount.Store(int64(len(h.clients)))
				h.mu.Unlock()
				h.logger.Warn("removed slow websocket clients",
					zap.Int("removed", len(toRemove)),
					zap.Int64("total_clients", h.clientCount.Load()))
			}
		}
	}
}

// Stop останавливает главный цикл и закрывает все соединения
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// Broadcast сериализует сообщение и отправляет всем клиентам.
// Неблокирующий: при переполнении канала сообщение отбрасывается.
func (h *Hub) Broadcast(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("marshal broadcast message", zap.Error(err))
		return
	}
	h.BroadcastRaw(data)
}

// BroadcastRaw отправляет уже сериализованное сообщение всем клиентам
func (h *Hub) BroadcastRaw(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
	}
}

// BroadcastTradeUpdate отправляет изменение сделки
func (h *Hub) BroadcastTradeUpdate(trade *models.Trade) {
	h.Broadcast(NewTradeUpdateMessage(trade))
}

// BroadcastStateUpdate отправляет изменение состояния торговли
func (h *Hub) BroadcastStateUpdate(state *models.TradingState) {
	h.Broadcast(NewStateUpdateMessage(state))
}

// BroadcastCircuitBreaker отправляет состояние circuit breaker'а
func (h *Hub) BroadcastCircuitBreaker(state *models.TradingState) {
	h.Broadcast(NewCircuitBreakerMessage(state))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

// DroppedMessages возвращает количество отброшенных сообщений
func (h *Hub) DroppedMessages() int64 {
	return h.dropped.Load()
}
