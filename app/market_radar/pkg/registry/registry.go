package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
)

// ParamType 参数类型
type ParamType string

const (
	TypeString ParamType = "string"
	TypeObject ParamType = "object"
)

// Param 能力参数描述
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
}

// Handler 能力处理函数，args 为已校验的原始参数
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Rejecter 将参数错误转换为能力自身的结果形态
type Rejecter func(f *model.Failure) any

// Capability 一项可被代理调用的能力
type Capability struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
	Handler     Handler `json:"-"`
	// Reject 非空时参数错误以结果返回而不是 error
	Reject Rejecter `json:"-"`
}

// Registry 按注册顺序管理能力
type Registry struct {
	mu    sync.RWMutex
	order []string
	caps  map[string]*Capability
}

// NewRegistry 创建空的能力注册表
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]*Capability)}
}

// Register 注册能力，名称重复时报错
func (r *Registry) Register(c *Capability) error {
	if c.Name == "" || c.Handler == nil {
		return fmt.Errorf("capability name and handler are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.caps[c.Name]; exists {
		return fmt.Errorf("capability already registered: %s", c.Name)
	}
	r.caps[c.Name] = c
	r.order = append(r.order, c.Name)
	return nil
}

// Get 按名称查找能力
func (r *Registry) Get(name string) (*Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[name]
	return c, ok
}

// Specs 按注册顺序返回所有能力
func (r *Registry) Specs() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Capability, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.caps[name])
	}
	return out
}

// Invoke 校验参数后调用能力。未知能力返回 KindInvalidArgument 错误；
// 参数不合法时，设置了 Reject 的能力返回其失败结果
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	c, ok := r.Get(name)
	if !ok {
		return nil, model.Fail(model.KindInvalidArgument, "unknown capability: %s", name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if f := checkParams(c.Params, args); f != nil {
		if c.Reject != nil {
			return c.Reject(f), nil
		}
		return nil, f
	}
	return c.Handler(ctx, args)
}

func checkParams(params []Param, args map[string]any) *model.Failure {
	for _, p := range params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				return model.Fail(model.KindInvalidArgument, "missing required argument %q", p.Name)
			}
			continue
		}
		switch p.Type {
		case TypeString:
			if _, ok := v.(string); !ok {
				return model.Fail(model.KindInvalidArgument, "argument %q must be a string", p.Name)
			}
		case TypeObject:
			if _, ok := v.(map[string]any); !ok {
				return model.Fail(model.KindInvalidArgument, "argument %q must be an object", p.Name)
			}
		}
	}
	return nil
}

var validate = newValidator()

// newValidator 校验错误中的字段名取 json 标签
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode 将原始参数解码到 dst 并按 validate 标签校验，错误信息使用参数名
func Decode(args map[string]any, dst any) *model.Failure {
	raw, err := json.Marshal(args)
	if err != nil {
		return model.Fail(model.KindInvalidArgument, "encode arguments: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return model.Fail(model.KindInvalidArgument, "decode arguments: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			fe := fields[0]
			return model.Fail(model.KindInvalidArgument, "argument %q failed %q check", fe.Field(), fe.Tag())
		}
		return model.Fail(model.KindInvalidArgument, "%v", err)
	}
	return nil
}
