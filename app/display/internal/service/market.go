package service

import (
	"context"
	"errors"
	nethttp "net/http"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/market_radar/app/display/internal/usecase"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/model"
	"github.com/iWorld-y/market_radar/app/market_radar/pkg/registry"
)

// MarketService 对外暴露市场分析的 HTTP 接口
type MarketService struct {
	uc  *usecase.MarketUseCase
	log *log.Helper
}

func NewMarketService(uc *usecase.MarketUseCase, logger log.Logger) *MarketService {
	return &MarketService{uc: uc, log: log.NewHelper(logger)}
}

// RegisterMarketHTTPServer 注册路由
func RegisterMarketHTTPServer(srv *http.Server, s *MarketService) {
	r := srv.Route("/")
	r.GET("/v1/summary", s.Summary)
	r.GET("/v1/analysis", s.Analysis)
	r.GET("/v1/predictions", s.Predictions)
	r.POST("/v1/run", s.Run)
	r.POST("/v1/deliver", s.Deliver)
	r.GET("/v1/tools", s.ListTools)
	r.POST("/v1/tools/{name}", s.InvokeTool)
	r.GET("/report", s.Report)
}

type runReq struct {
	Recipient string `json:"recipient"`
}

type listToolsReply struct {
	Tools []registry.Capability `json:"tools"`
}

func (s *MarketService) Summary(ctx http.Context) error {
	return s.handle(ctx, "/market.v1.Market/Summary", func(c context.Context) (any, error) {
		return s.uc.Summary(c), nil
	})
}

func (s *MarketService) Analysis(ctx http.Context) error {
	return s.handle(ctx, "/market.v1.Market/Analysis", func(c context.Context) (any, error) {
		return s.uc.Analysis(c), nil
	})
}

func (s *MarketService) Predictions(ctx http.Context) error {
	return s.handle(ctx, "/market.v1.Market/Predictions", func(c context.Context) (any, error) {
		return s.uc.Predictions(c), nil
	})
}

func (s *MarketService) Run(ctx http.Context) error {
	var req runReq
	if err := ctx.Bind(&req); err != nil {
		return kerrors.BadRequest("INVALID_ARGUMENT", err.Error())
	}
	return s.handle(ctx, "/market.v1.Market/Run", func(c context.Context) (any, error) {
		return s.uc.Run(c, req.Recipient), nil
	})
}

// Deliver 请求体与 send_ai_analysis_report 的参数一致
func (s *MarketService) Deliver(ctx http.Context) error {
	return s.invoke(ctx, registry.SendAnalysisReport)
}

func (s *MarketService) ListTools(ctx http.Context) error {
	return s.handle(ctx, "/market.v1.Market/ListTools", func(context.Context) (any, error) {
		return &listToolsReply{Tools: s.uc.Tools()}, nil
	})
}

func (s *MarketService) InvokeTool(ctx http.Context) error {
	name := ctx.Vars().Get("name")
	if !s.uc.HasTool(name) {
		return kerrors.NotFound("TOOL_NOT_FOUND", "unknown tool: "+name)
	}
	return s.invoke(ctx, name)
}

// Report 渲染报告预览页面
func (s *MarketService) Report(ctx http.Context) error {
	http.SetOperation(ctx, "/market.v1.Market/Report")
	h := ctx.Middleware(func(c context.Context, _ any) (any, error) {
		return s.uc.Preview(c)
	})
	out, err := h(ctx, nil)
	if err != nil {
		s.log.WithContext(ctx).Errorf("render report: %v", err)
		return kerrors.InternalServer("RENDER_FAILURE", err.Error())
	}
	return ctx.Blob(nethttp.StatusOK, "text/html; charset=utf-8", []byte(out.(string)))
}

func (s *MarketService) invoke(ctx http.Context, name string) error {
	args := map[string]any{}
	if err := ctx.Bind(&args); err != nil {
		return kerrors.BadRequest("INVALID_ARGUMENT", err.Error())
	}
	return s.handle(ctx, "/market.v1.Market/"+name, func(c context.Context) (any, error) {
		out, err := s.uc.InvokeTool(c, name, args)
		if err != nil {
			return nil, toKratosError(err)
		}
		return out, nil
	})
}

// handle 经由服务端中间件执行 fn 并以 JSON 返回
func (s *MarketService) handle(ctx http.Context, operation string, fn func(context.Context) (any, error)) error {
	http.SetOperation(ctx, operation)
	h := ctx.Middleware(func(c context.Context, _ any) (any, error) {
		return fn(c)
	})
	out, err := h(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.JSON(nethttp.StatusOK, out)
}

// toKratosError 将领域失败映射为 kratos 错误
func toKratosError(err error) error {
	var f *model.Failure
	if !errors.As(err, &f) {
		return kerrors.InternalServer("INTERNAL", err.Error())
	}
	switch f.Kind {
	case model.KindInvalidArgument:
		return kerrors.BadRequest("INVALID_ARGUMENT", f.Message)
	case model.KindConfigurationMissing:
		return kerrors.ServiceUnavailable("CONFIGURATION_MISSING", f.Message)
	default:
		return kerrors.InternalServer(string(f.Kind), f.Message)
	}
}
