package server

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"strconv"

	"github.com/gaoyong06/go-pkg/health"
	"github.com/gaoyong06/go-pkg/middleware/i18n"

	"xinyuan_tech/settlement-service/internal/auth"
	"xinyuan_tech/settlement-service/internal/conf"
	"xinyuan_tech/settlement-service/internal/constants"
	bizerrors "xinyuan_tech/settlement-service/internal/errors"
	"xinyuan_tech/settlement-service/internal/service"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Bootstrap, settlement *service.SettlementService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			// 添加 i18n 中间件
			i18n.Middleware(),
			// 从请求头提取操作者身份，供审计和管理端鉴权使用
			auth.Middleware(),
		),
		http.ErrorEncoder(customErrorEncoder),
	}
	if c.Server.Http.Addr != "" {
		opts = append(opts, http.Address(c.Server.Http.Addr))
	}
	srv := http.NewServer(opts...)

	registerSettlementRoutes(srv, settlement)

	// 注册健康检查端点
	srv.Route("/").GET("/health", func(ctx http.Context) error {
		return ctx.Result(200, health.NewResponse("settlement-service"))
	})

	return srv
}

// registerSettlementRoutes 注册结算业务路由
func registerSettlementRoutes(srv *http.Server, s *service.SettlementService) {
	r := srv.Route("/v1/settlement")

	r.POST("/payment-confirmed", func(ctx http.Context) error {
		var req service.PaymentConfirmedRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return s.PaymentConfirmed(ctx, req.(*service.PaymentConfirmedRequest))
		})
		out, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})

	r.POST("/delivery-confirmed", func(ctx http.Context) error {
		var req service.DeliveryConfirmedRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return s.DeliveryConfirmed(ctx, req.(*service.DeliveryConfirmedRequest))
		})
		out, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})

	r.POST("/escrow/{order_id}/reverse", func(ctx http.Context) error {
		orderID := pathVar(ctx, "order_id")
		var req service.ReverseEscrowRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return s.ReverseEscrow(ctx, orderID, req.(*service.ReverseEscrowRequest))
		})
		out, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})

	r.POST("/sweeps/escrow-release", func(ctx http.Context) error {
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return s.RunEscrowReleaseSweep(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})

	r.POST("/sweeps/payout", func(ctx http.Context) error {
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return s.RunPayoutSweep(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})

	r.POST("/payouts/{payout_id}/processing", func(ctx http.Context) error {
		payoutID := pathVar(ctx, "payout_id")
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return s.MarkPayoutProcessing(ctx, payoutID)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})

	r.POST("/payouts/{payout_id}/completed", func(ctx http.Context) error {
		payoutID := pathVar(ctx, "payout_id")
		var req service.MarkPayoutCompletedRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return s.MarkPayoutCompleted(ctx, payoutID, req.(*service.MarkPayoutCompletedRequest))
		})
		out, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})

	r.POST("/payouts/{payout_id}/failed", func(ctx http.Context) error {
		payoutID := pathVar(ctx, "payout_id")
		var req service.MarkPayoutFailedRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return s.MarkPayoutFailed(ctx, payoutID, req.(*service.MarkPayoutFailedRequest))
		})
		out, err := h(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})

	r.GET("/payouts/{payout_id}", func(ctx http.Context) error {
		payoutID := pathVar(ctx, "payout_id")
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return s.GetPayout(ctx, payoutID)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})

	r.GET("/sellers/{seller_id}/payouts", func(ctx http.Context) error {
		sellerID, err := strconv.ParseUint(pathVar(ctx, "seller_id"), 10, 64)
		if err != nil {
			return bizerrors.ErrInvalidInput("seller_id must be an unsigned integer")
		}
		page, pageSize := pageParams(ctx)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return s.ListSellerPayouts(ctx, sellerID, page, pageSize)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})

	r.GET("/audit/{entity_type}/{entity_id}", func(ctx http.Context) error {
		entityType := pathVar(ctx, "entity_type")
		entityID := pathVar(ctx, "entity_id")
		page, pageSize := pageParams(ctx)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return s.GetAuditHistory(ctx, entityType, entityID, page, pageSize)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	})
}

func pathVar(ctx http.Context, key string) string {
	raw := ctx.Vars().Get(key)
	return raw
}

func pageParams(ctx http.Context) (int, int) {
	page, _ := strconv.Atoi(ctx.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(ctx.Query().Get("page_size"))
	if pageSize < 1 || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}
	return page, pageSize
}

func customErrorEncoder(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	se := kerrors.FromError(err)
	status := stdhttp.StatusInternalServerError
	response := map[string]interface{}{
		"code":    status,
		"message": "internal server error",
	}

	if se != nil {
		status = mapErrorStatus(int(se.Code), se.Reason)
		response["code"] = se.Code
		response["reason"] = se.Reason
		response["message"] = se.Message
		if len(se.Metadata) > 0 {
			response["metadata"] = se.Metadata
		}
	} else if err != nil {
		response["message"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func mapErrorStatus(code int, reason string) int {
	if code >= 100 && code < 600 {
		return code
	}
	if code >= 140000 && code < 150000 {
		switch reason {
		case bizerrors.ReasonNotFound:
			return stdhttp.StatusNotFound
		case bizerrors.ReasonDuplicateOrder, bizerrors.ReasonInvalidState, bizerrors.ReasonPayoutInFlight:
			return stdhttp.StatusConflict
		case bizerrors.ReasonSettingsBlocked:
			return stdhttp.StatusUnprocessableEntity
		default:
			return stdhttp.StatusBadRequest
		}
	}
	return stdhttp.StatusInternalServerError
}
