package platform

import (
	"context"
	"sync"

	"google.golang.org/genai"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/config"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/logger"
)

// ClientFactory 创建 genai 客户端，测试时可替换
type ClientFactory func(ctx context.Context, cc *genai.ClientConfig) (*genai.Client, error)

// Platform 进程级的 Vertex AI 客户端，只初始化一次
type Platform struct {
	once      sync.Once
	client    *genai.Client
	newClient ClientFactory
}

// New 创建 Platform
func New(factory ClientFactory) *Platform {
	if factory == nil {
		factory = genai.NewClient
	}
	return &Platform{newClient: factory}
}

var defaultPlatform = New(nil)

// Init 使用默认 Platform 初始化客户端
func Init(ctx context.Context, cfg config.ProviderConfig) *genai.Client {
	return defaultPlatform.Init(ctx, cfg)
}

// Init 按项目与区域创建 Vertex AI 客户端。失败只记录警告并返回 nil，
// 重复调用返回首次的结果
func (p *Platform) Init(ctx context.Context, cfg config.ProviderConfig) *genai.Client {
	p.once.Do(func() {
		if cfg.Project == "" {
			logger.Log.Warn("未配置 GOOGLE_CLOUD_PROJECT_ID，跳过 Vertex AI 初始化")
			return
		}
		location := cfg.Location
		if location == "" {
			location = config.DefaultLocation
		}

		client, err := p.newClient(ctx, &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  cfg.Project,
			Location: location,
		})
		if err != nil {
			logger.Log.Warnf("Vertex AI 初始化失败: %v", err)
			return
		}
		p.client = client
		logger.Log.WithField("project", cfg.Project).
			WithField("location", location).
			Info("Vertex AI 初始化完成")
	})
	return p.client
}
