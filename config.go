// Configuration for RxGo
// 运行时配置：显式的Config值沿构造链传递，进程级默认值只为便利而存在
package rxgo

import (
	"log/slog"
	"sync/atomic"
)

// ============================================================================
// 配置选项
// ============================================================================

// Option 配置选项接口
type Option interface {
	Apply(config *Config)
}

// optionFunc 函数形式的配置选项
type optionFunc func(config *Config)

// Apply 应用配置选项
func (f optionFunc) Apply(config *Config) {
	f(config)
}

// Config 配置结构
//
// Observable、Subject、ConnectableObservable在构造时复制一份传入的配置，
// 并在订阅时把它交给Subscriber。不传任何选项时使用GlobalConfig()，
// 且在使用时才读取，因此SetGlobalConfig在转换调用之前设置即可生效。
type Config struct {
	// Promise 覆盖ToPromise使用的Promise构造函数，nil表示使用NewDeferred
	Promise func() Promise
	// OnUnhandledError 未处理错误通道，nil时记录到Logger
	OnUnhandledError func(err error)
	// OnStoppedNotification 已停止的Subscriber收到的通知，nil时忽略
	OnStoppedNotification func(item Item, subscriber *Subscriber)
	// Logger 结构化日志
	Logger *slog.Logger
	// Scheduler 时间源与时间相关操作符的默认调度器，nil表示Async
	Scheduler Scheduler
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Logger: slog.Default(),
	}
}

// WithPromise 设置ToPromise使用的Promise构造函数
func WithPromise(factory func() Promise) Option {
	return optionFunc(func(config *Config) {
		config.Promise = factory
	})
}

// WithUnhandledErrorHandler 设置未处理错误的处理函数
func WithUnhandledErrorHandler(handler func(err error)) Option {
	return optionFunc(func(config *Config) {
		config.OnUnhandledError = handler
	})
}

// WithStoppedNotificationHandler 设置已停止Subscriber收到通知时的处理函数
func WithStoppedNotificationHandler(handler func(item Item, subscriber *Subscriber)) Option {
	return optionFunc(func(config *Config) {
		config.OnStoppedNotification = handler
	})
}

// WithLogger 设置日志
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(config *Config) {
		config.Logger = logger
	})
}

// WithScheduler 设置默认调度器
func WithScheduler(scheduler Scheduler) Option {
	return optionFunc(func(config *Config) {
		config.Scheduler = scheduler
	})
}

// ============================================================================
// 进程级默认配置
// ============================================================================

var globalConfig atomic.Pointer[Config]

func init() {
	globalConfig.Store(DefaultConfig())
}

// GlobalConfig 返回进程级默认配置
func GlobalConfig() *Config {
	return globalConfig.Load()
}

// SetGlobalConfig 替换进程级默认配置。
// 不支持多个goroutine并发修改；应在构建管道之前设置
func SetGlobalConfig(config *Config) {
	if config == nil {
		config = DefaultConfig()
	}
	globalConfig.Store(config)
}

// newConfig 根据选项生成配置，没有选项时返回nil表示延迟读取全局配置
func newConfig(options []Option) *Config {
	if len(options) == 0 {
		return nil
	}
	config := GlobalConfig().clone()
	for _, opt := range options {
		opt.Apply(config)
	}
	return config
}

func resolveConfig(config *Config) *Config {
	if config == nil {
		return GlobalConfig()
	}
	return config
}

func (c *Config) clone() *Config {
	out := *c
	return &out
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *Config) scheduler() Scheduler {
	if c.Scheduler == nil {
		return Async
	}
	return c.Scheduler
}

func (c *Config) newPromise() Promise {
	if c.Promise == nil {
		return NewDeferred()
	}
	return c.Promise()
}

// reportUnhandledError 错误从不被静默丢弃
func (c *Config) reportUnhandledError(err error) {
	if err == nil {
		return
	}
	globalStats.unhandledErrors.Add(1)
	if c.OnUnhandledError != nil {
		c.OnUnhandledError(err)
		return
	}
	c.logger().Error("rxgo: unhandled error", "error", err)
}

func (c *Config) reportStopped(item Item, subscriber *Subscriber) {
	if c.OnStoppedNotification != nil {
		c.OnStoppedNotification(item, subscriber)
	}
}
