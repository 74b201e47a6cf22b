package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State 表示熔断器状态
type State int

const (
	StateClosed   State = iota // 关闭：正常状态，允许请求通过
	StateOpen                  // 打开：熔断状态，直接拒绝请求
	StateHalfOpen              // 半开：尝试恢复，允许少量请求通过
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config 熔断器配置
type Config struct {
	Name string
	// 失败阈值：连续失败多少次后打开熔断器
	FailureThreshold int
	// 成功阈值：半开状态下成功多少次后关闭熔断器
	SuccessThreshold int
	// 超时时间：打开状态持续多久后进入半开状态
	Timeout time.Duration
	// 半开状态下的最大并发请求数
	HalfOpenMaxRequests int
	// 状态变化回调，在持有锁时调用，不要在回调中访问熔断器
	OnStateChange func(name string, from, to State)
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,                // 连续失败5次后打开
		SuccessThreshold:    2,                // 半开状态下成功2次后关闭
		Timeout:             30 * time.Second, // 打开状态持续30秒
		HalfOpenMaxRequests: 3,                // 半开状态下最多允许3个请求
	}
}

// CircuitBreaker 熔断器
type CircuitBreaker struct {
	config Config
	now    func() time.Time

	state         State
	failureCount  int
	successCount  int
	halfOpenCount int
	openedAt      time.Time

	mu sync.Mutex
}

// NewCircuitBreaker 创建新的熔断器
func NewCircuitBreaker(config Config) *CircuitBreaker {
	return &CircuitBreaker{
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
}

// Execute 执行函数，带熔断保护
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}

	err := fn()

	cb.after(err == nil)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	// 打开状态：超时后进入半开状态
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.Timeout {
		cb.setState(StateHalfOpen)
	}

	switch cb.state {
	case StateOpen:
		return ErrCircuitBreakerOpen
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			return ErrTooManyRequests
		}
		cb.halfOpenCount++
	}
	return nil
}

func (cb *CircuitBreaker) after(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		if success {
			cb.failureCount = 0
			return
		}
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		cb.halfOpenCount--
		if !success {
			// 半开状态下失败，立即打开
			cb.setState(StateOpen)
			return
		}
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.setState(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	if from == to {
		return
	}

	cb.state = to
	cb.failureCount = 0
	cb.successCount = 0
	cb.halfOpenCount = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

// GetState 获取当前状态（线程安全）
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset 重置熔断器
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
	cb.failureCount = 0
}

// 错误定义
var (
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	ErrTooManyRequests    = errors.New("circuit breaker is half-open and at capacity")
)
