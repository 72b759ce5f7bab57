package utils

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig - настройки логирования
type LogConfig struct {
	// Level: debug, info, warn, error, fatal
	Level string

	// Format: json или text
	Format string

	// Output: путь к файлу, пустое значение - stderr
	Output string

	// Development включает человекочитаемые стектрейсы и caller
	Development bool
}

// Logger - обертка над zap.Logger с доменными помощниками
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

// InitLogger создает и настраивает logger
//
// Никогда не возвращает nil: при недоступном файле вывода
// откатывается на stderr.
func InitLogger(cfg LogConfig) *Logger {
	level := parseLevel(cfg.Level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "text" {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	var sink zapcore.WriteSyncer = zapcore.AddSync(os.Stderr)
	if cfg.Output != "" {
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			sink = zapcore.AddSync(file)
		}
	}

	core := zapcore.NewCore(encoder, sink, level)

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	zl := zap.New(core, opts...)
	return &Logger{
		Logger: zl,
		sugar:  zl.Sugar(),
	}
}

// parseLevel переводит строковый уровень в zapcore.Level.
// Неизвестные значения трактуются как info.
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// With возвращает новый Logger с прикрепленными полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	zl := l.Logger.With(fields...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

// WithComponent прикрепляет имя компонента (engine, resolver, api)
func (l *Logger) WithComponent(component string) *Logger {
	return l.With(Component(component))
}

// WithTradeID прикрепляет идентификатор сделки
func (l *Logger) WithTradeID(tradeID string) *Logger {
	return l.With(TradeID(tradeID))
}

// WithLeg прикрепляет номер ноги
func (l *Logger) WithLeg(leg int) *Logger {
	return l.With(Leg(leg))
}

// Sugar возвращает sugared logger для printf-style логирования
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// ============ Глобальный логгер ============

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// InitGlobalLogger инициализирует глобальный логгер
func InitGlobalLogger(cfg LogConfig) *Logger {
	logger := InitLogger(cfg)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger устанавливает глобальный логгер
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger возвращает глобальный логгер, создавая дефолтный
// при первом обращении
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	if globalLogger != nil {
		defer globalMu.RUnlock()
		return globalLogger
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{})
	}
	return globalLogger
}

// L - короткий алиас для GetGlobalLogger
func L() *Logger {
	return GetGlobalLogger()
}

// Debug логирует через глобальный логгер
func Debug(msg string, fields ...zap.Field) { GetGlobalLogger().Debug(msg, fields...) }

// Info логирует через глобальный логгер
func Info(msg string, fields ...zap.Field) { GetGlobalLogger().Info(msg, fields...) }

// Warn логирует через глобальный логгер
func Warn(msg string, fields ...zap.Field) { GetGlobalLogger().Warn(msg, fields...) }

// Error логирует через глобальный логгер
func Error(msg string, fields ...zap.Field) { GetGlobalLogger().Error(msg, fields...) }

// Debugf - printf-style debug через глобальный логгер
func Debugf(template string, args ...interface{}) { GetGlobalLogger().sugar.Debugf(template, args...) }

// Infof - printf-style info через глобальный логгер
func Infof(template string, args ...interface{}) { GetGlobalLogger().sugar.Infof(template, args...) }

// Warnf - printf-style warn через глобальный логгер
func Warnf(template string, args ...interface{}) { GetGlobalLogger().sugar.Warnf(template, args...) }

// Errorf - printf-style error через глобальный логгер
func Errorf(template string, args ...interface{}) { GetGlobalLogger().sugar.Errorf(template, args...) }

// ============ Доменные конструкторы полей ============

// TradeID - идентификатор сделки
func TradeID(id string) zap.Field { return zap.String("trade_id", id) }

// OpportunityID - идентификатор возможности
func OpportunityID(id string) zap.Field { return zap.String("opportunity_id", id) }

// Leg - номер ноги
func Leg(leg int) zap.Field { return zap.Int("leg", leg) }

// Pair - валютная пара
func Pair(pair string) zap.Field { return zap.String("pair", pair) }

// Side - сторона ордера (buy, sell)
func Side(side string) zap.Field { return zap.String("side", side) }

// Status - статус сделки
func Status(status string) zap.Field { return zap.String("status", status) }

// Amount - объем в валюте
func Amount(amount float64) zap.Field { return zap.Float64("amount", amount) }

// Price - цена
func Price(price float64) zap.Field { return zap.Float64("price", price) }

// PNL - результат сделки в USDT
func PNL(pnl float64) zap.Field { return zap.Float64("pnl", pnl) }

// Latency - задержка в миллисекундах
func Latency(ms float64) zap.Field { return zap.Float64("latency_ms", ms) }

// OrderRef - ссылка на ордер биржи
func OrderRef(ref string) zap.Field { return zap.String("order_ref", ref) }

// Component - имя компонента
func Component(name string) zap.Field { return zap.String("component", name) }

// ============ Переэкспорт стандартных конструкторов ============

var (
	String  = zap.String
	Int     = zap.Int
	Int64   = zap.Int64
	Float64 = zap.Float64
	Bool    = zap.Bool
	Err     = zap.Error
	Any     = zap.Any
)
