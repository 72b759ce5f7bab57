package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"triarb/internal/bot"
	"triarb/pkg/retry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// statusError - ошибка HTTP статуса executor-сервиса.
// 5xx считаются временными, 4xx - постоянными.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("executor returned %d: %s", e.code, e.body)
}

func (e *statusError) Retryable() bool {
	return e.code >= 500 || e.code == http.StatusTooManyRequests
}

// Client - клиент внешнего executor-сервиса
//
// Ядро не разговаривает с биржей напрямую: ордера размещает отдельный
// сервис, который знает символы и стаканы. Команды идут по HTTP,
// асинхронные результаты ног приходят по WebSocket-стриму.
type Client struct {
	baseURL string
	wsURL   string
	http    *http.Client
	results chan bot.LegResult
	logger  *zap.Logger

	// Задержка перед переподключением стрима результатов
	reconnectDelay time.Duration
}

var _ bot.Executor = (*Client)(nil)

// NewClient создает клиента executor-сервиса.
// baseURL - HTTP endpoint команд, wsURL - стрим результатов ног.
func NewClient(baseURL, wsURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		wsURL:   wsURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		results:        make(chan bot.LegResult, 64),
		logger:         logger,
		reconnectDelay: time.Second,
	}
}

// PlaceOrder отправляет запрос на размещение ордера ноги.
// Транспортные сбои и 5xx повторяются; запрос идемпотентен по
// (trade_id, leg), поэтому повтор безопасен.
func (c *Client) PlaceOrder(ctx context.Context, req bot.OrderRequest) error {
	cfg := retry.DefaultConfig()
	cfg.RetryIf = retry.IsRetryable
	return retry.Do(ctx, func() error {
		return c.post(ctx, "/orders", req, nil)
	}, cfg)
}

// MarketSell размещает компенсирующую продажу и ждет исполнения.
//
// Не повторяется автоматически: сбой оставляет позицию PARTIAL,
// и повторную попытку инициирует оператор. Дублировать продажу
// вслепую дороже, чем попросить нажать кнопку еще раз.
func (c *Client) MarketSell(ctx context.Context, req bot.MarketSellRequest) (*bot.SellResult, error) {
	var result bot.SellResult
	if err := c.post(ctx, "/sell", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRate возвращает текущий курс from → to
func (c *Client) GetRate(ctx context.Context, from, to string) (float64, error) {
	cfg := retry.ConservativeConfig()
	cfg.RetryIf = retry.IsRetryable

	return retry.DoWithResult(ctx, func() (float64, error) {
		endpoint := fmt.Sprintf("%s/rate?from=%s&to=%s",
			c.baseURL, url.QueryEscape(from), url.QueryEscape(to))

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return 0, retry.Permanent(err)
		}

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return 0, &statusError{code: resp.StatusCode, body: string(body)}
		}

		var payload struct {
			Rate float64 `json:"rate"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return 0, retry.Permanent(err)
		}
		return payload.Rate, nil
	}, cfg)
}

// Results возвращает канал асинхронных результатов ног
func (c *Client) Results() <-chan bot.LegResult {
	return c.results
}

// Run держит WebSocket-стрим результатов, переподключаясь при обрывах.
// Блокируется до отмены контекста; запускать в отдельной горутине.
func (c *Client) Run(ctx context.Context) {
	for {
		if err := c.streamResults(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn("executor result stream lost, reconnecting",
				zap.Error(err),
				zap.Duration("delay", c.reconnectDelay))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectDelay):
		}
	}
}

// streamResults читает результаты ног из одного WS соединения
func (c *Client) streamResults(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial executor stream: %w", err)
	}
	defer conn.Close()

	// Разрываем чтение при отмене контекста
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	c.logger.Info("executor result stream connected", zap.String("url", c.wsURL))

	for {
		var result bot.LegResult
		if err := conn.ReadJSON(&result); err != nil {
			return err
		}

		select {
		case c.results <- result:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// post отправляет JSON команду и декодирует ответ в out (если не nil)
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return retry.Permanent(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return retry.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: string(payload)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retry.Permanent(err)
		}
	}
	return nil
}
