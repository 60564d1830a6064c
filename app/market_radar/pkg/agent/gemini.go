package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/registry"
)

// GeminiModel 基于 genai（Vertex AI）的模型后端
type GeminiModel struct {
	client *genai.Client
	model  string
}

// Ensure GeminiModel implements Model
var _ Model = (*GeminiModel)(nil)

// NewGeminiModel 创建 Gemini 后端
func NewGeminiModel(client *genai.Client, model string) *GeminiModel {
	return &GeminiModel{client: client, model: model}
}

// Generate implements Model
func (m *GeminiModel) Generate(ctx context.Context, system string, history []Turn, tools []registry.Capability) (*Reply, error) {
	contents, err := geminiContents(history)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	if decls := geminiDeclarations(tools); len(decls) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, cfg)
	if err != nil {
		return nil, err
	}

	reply := &Reply{}
	for i, fc := range resp.FunctionCalls() {
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{ID: id, Name: fc.Name, Args: fc.Args})
	}
	if len(reply.ToolCalls) == 0 {
		reply.Content = resp.Text()
	}
	return reply, nil
}

func geminiContents(history []Turn) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		switch t.Role {
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleUser))
		case RoleAssistant:
			var parts []*genai.Part
			if t.Content != "" {
				parts = append(parts, genai.NewPartFromText(t.Content))
			}
			for _, c := range t.ToolCalls {
				parts = append(parts, genai.NewPartFromFunctionCall(c.Name, c.Args))
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case RoleTool:
			var output any
			if err := json.Unmarshal([]byte(t.Content), &output); err != nil {
				output = t.Content
			}
			part := genai.NewPartFromFunctionResponse(t.ToolName, map[string]any{"output": output})
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		default:
			return nil, fmt.Errorf("unknown role: %s", t.Role)
		}
	}
	return contents, nil
}

func geminiDeclarations(tools []registry.Capability) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, c := range tools {
		decl := &genai.FunctionDeclaration{Name: c.Name, Description: c.Description}
		if len(c.Params) > 0 {
			schema := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
			for _, p := range c.Params {
				t := genai.TypeString
				if p.Type == registry.TypeObject {
					t = genai.TypeObject
				}
				schema.Properties[p.Name] = &genai.Schema{Type: t, Description: p.Description}
				if p.Required {
					schema.Required = append(schema.Required, p.Name)
				}
			}
			decl.Parameters = schema
		}
		decls = append(decls, decl)
	}
	return decls
}
