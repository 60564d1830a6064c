package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/config"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/logger"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/registry"
)

const (
	// Name 代理名称
	Name = "digital_market_analysis_agent"
	// Description 代理描述
	Description = "Advanced AI agent for digital product market analysis and trend prediction. " +
		"Analyzes digital marketplaces, predicts market trends, and generates " +
		"comprehensive reports with strategic insights and recommendations."

	// DefaultInstruction 默认系统提示词
	DefaultInstruction = `You are ` + Name + `. ` + Description + `
Use the available tools to answer questions about digital product marketplaces.
Prefer get_market_summary for quick overviews and run_complete_analysis when the user asks for the full report.
Only call send_ai_analysis_report when the user gives a recipient email address.
Answer concisely and cite figures from tool results.`

	defaultMaxSteps = 8
)

// ErrMaxSteps 超过最大轮数仍未得到最终回答
var ErrMaxSteps = errors.New("agent reached max steps without a final answer")

// Role 对话角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall 模型请求的一次工具调用
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Turn 一轮对话
type Turn struct {
	Role      Role
	Content   string
	ToolCalls []ToolCall
	// 以下字段仅 RoleTool 使用
	ToolCallID string
	ToolName   string
}

// Reply 模型单次回复
type Reply struct {
	Content   string
	ToolCalls []ToolCall
}

// Model 屏蔽具体模型后端的对话接口
type Model interface {
	Generate(ctx context.Context, system string, history []Turn, tools []registry.Capability) (*Reply, error)
}

// Result 一次对话的结果
type Result struct {
	Answer    string   `json:"answer"`
	Steps     int      `json:"steps"`
	ToolCalls []string `json:"tool_calls,omitempty"`
}

// Agent 通过能力注册表回答问题的对话代理
type Agent struct {
	model    Model
	registry *registry.Registry
	system   string
	maxSteps int
	limiter  *rate.Limiter
}

// Option Agent 选项
type Option func(*Agent)

// WithSystemPrompt 设置系统提示词，空串保持默认
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		if prompt != "" {
			a.system = prompt
		}
	}
}

// WithMaxSteps 设置最大模型调用次数
func WithMaxSteps(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxSteps = n
		}
	}
}

// WithLimiter 设置模型调用限流器
func WithLimiter(l *rate.Limiter) Option {
	return func(a *Agent) { a.limiter = l }
}

// NewLimiter 按 RPM 与 QPS 创建限流器
func NewLimiter(c config.ConcurrencyConfig) *rate.Limiter {
	if c.RPM <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := c.QPS
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(c.RPM)/60.0), burst)
}

// New 创建代理
func New(m Model, reg *registry.Registry, opts ...Option) *Agent {
	a := &Agent{
		model:    m,
		registry: reg,
		system:   DefaultInstruction,
		maxSteps: defaultMaxSteps,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Chat 处理一次用户请求：调用模型，执行其请求的工具，直到得到最终回答
func (a *Agent) Chat(ctx context.Context, prompt string) (*Result, error) {
	tools := a.registry.Specs()
	history := []Turn{{Role: RoleUser, Content: prompt}}
	res := &Result{}

	for res.Steps < a.maxSteps {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return res, err
			}
		}

		reply, err := a.model.Generate(ctx, a.system, history, tools)
		res.Steps++
		if err != nil {
			return res, fmt.Errorf("model generate: %w", err)
		}

		if len(reply.ToolCalls) == 0 {
			res.Answer = reply.Content
			logger.Log.WithField("steps", res.Steps).Info("代理回答完成")
			return res, nil
		}

		history = append(history, Turn{Role: RoleAssistant, Content: reply.Content, ToolCalls: reply.ToolCalls})
		for _, call := range reply.ToolCalls {
			res.ToolCalls = append(res.ToolCalls, call.Name)
			history = append(history, Turn{
				Role:       RoleTool,
				Content:    a.invoke(ctx, call),
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}

	logger.Log.Warnf("代理达到最大轮数 %d", a.maxSteps)
	return res, ErrMaxSteps
}

// invoke 执行工具调用，结果与错误都以 JSON 文本回传给模型
func (a *Agent) invoke(ctx context.Context, call ToolCall) string {
	logger.Log.WithField("tool", call.Name).Info("执行工具调用")

	out, err := a.registry.Invoke(ctx, call.Name, call.Args)
	if err != nil {
		logger.Log.WithField("tool", call.Name).Warnf("工具调用失败: %v", err)
		out = map[string]string{"status": "error", "error": err.Error()}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"status":"error","error":%q}`, err.Error())
	}
	return string(data)
}
