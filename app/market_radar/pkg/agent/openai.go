package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/config"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/registry"
)

// EinoModel 基于 eino 的 OpenAI 兼容模型后端
type EinoModel struct {
	cm model.ToolCallingChatModel
}

// Ensure EinoModel implements Model
var _ Model = (*EinoModel)(nil)

// NewEinoModel 包装任意支持工具调用的 eino 模型
func NewEinoModel(cm model.ToolCallingChatModel) *EinoModel {
	return &EinoModel{cm: cm}
}

// NewOpenAIModel 按 LLM 配置创建 OpenAI 兼容后端
func NewOpenAIModel(ctx context.Context, c config.LLMConfig) (*EinoModel, error) {
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: c.BaseURL,
		APIKey:  c.APIKey,
		Model:   c.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return NewEinoModel(cm), nil
}

// Generate implements Model
func (m *EinoModel) Generate(ctx context.Context, system string, history []Turn, tools []registry.Capability) (*Reply, error) {
	cm := m.cm
	if infos := einoToolInfos(tools); len(infos) > 0 {
		bound, err := cm.WithTools(infos)
		if err != nil {
			return nil, fmt.Errorf("bind tools: %w", err)
		}
		cm = bound
	}

	messages, err := einoMessages(system, history)
	if err != nil {
		return nil, err
	}

	resp, err := cm.Generate(ctx, messages)
	if err != nil {
		return nil, err
	}

	reply := &Reply{Content: resp.Content}
	for _, tc := range resp.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("parse tool arguments for %s: %w", tc.Function.Name, err)
			}
		}
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}
	return reply, nil
}

func einoMessages(system string, history []Turn) ([]*schema.Message, error) {
	messages := make([]*schema.Message, 0, len(history)+1)
	messages = append(messages, &schema.Message{Role: schema.System, Content: system})
	for _, t := range history {
		switch t.Role {
		case RoleUser:
			messages = append(messages, &schema.Message{Role: schema.User, Content: t.Content})
		case RoleAssistant:
			msg := &schema.Message{Role: schema.Assistant, Content: t.Content}
			for _, c := range t.ToolCalls {
				args, err := json.Marshal(c.Args)
				if err != nil {
					return nil, err
				}
				msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
					ID:       c.ID,
					Type:     "function",
					Function: schema.FunctionCall{Name: c.Name, Arguments: string(args)},
				})
			}
			messages = append(messages, msg)
		case RoleTool:
			messages = append(messages, &schema.Message{Role: schema.Tool, Content: t.Content, ToolCallID: t.ToolCallID})
		default:
			return nil, fmt.Errorf("unknown role: %s", t.Role)
		}
	}
	return messages, nil
}

func einoToolInfos(tools []registry.Capability) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, c := range tools {
		info := &schema.ToolInfo{Name: c.Name, Desc: c.Description}
		if len(c.Params) > 0 {
			params := make(map[string]*schema.ParameterInfo, len(c.Params))
			for _, p := range c.Params {
				t := schema.String
				if p.Type == registry.TypeObject {
					t = schema.Object
				}
				params[p.Name] = &schema.ParameterInfo{Type: t, Desc: p.Description, Required: p.Required}
			}
			info.ParamsOneOf = schema.NewParamsOneOfByParams(params)
		}
		infos = append(infos, info)
	}
	return infos
}
