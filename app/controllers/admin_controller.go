package controllers

import (
	"strconv"

	"github.com/oliveedge/oliveedge/app/repositories"
	"github.com/oliveedge/oliveedge/app/services"
	"github.com/oliveedge/oliveedge/pkg/apperr"
	"github.com/oliveedge/oliveedge/pkg/ctx"
	"github.com/oliveedge/oliveedge/pkg/response"
)

// AdminController serves the back-office endpoints: order management and the
// analytics dashboard. All routes behind it require the admin role.
type AdminController struct {
	orders    *services.OrderService
	analytics *services.AnalyticsService
	orderRepo *repositories.OrderRepository
}

func NewAdminController(orders *services.OrderService, analytics *services.AnalyticsService) *AdminController {
	return &AdminController{
		orders:    orders,
		analytics: analytics,
		orderRepo: repositories.NewOrderRepository(),
	}
}

// Orders lists all orders, paginated.
func (ac *AdminController) Orders(c *ctx.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	orders, total, err := ac.orderRepo.FindAll(c.Context(), page, limit)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}

	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}
	response.Paginated(c.W, orders, response.Pagination{
		Page: page, Limit: limit, Total: total, TotalPages: totalPages,
	})
}

// Deliver marks an order delivered.
func (ac *AdminController) Deliver(c *ctx.Context) {
	order, err := ac.orders.Deliver(c.Context(), c.Param("id"))
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(order)
}

type statusInput struct {
	Status string `json:"status" validate:"required,in=pending,processing,shipped,delivered,cancelled"`
}

// SetStatus applies an arbitrary lifecycle transition.
func (ac *AdminController) SetStatus(c *ctx.Context) {
	var in statusInput
	if !c.BindJSON(&in) {
		return
	}

	order, err := ac.orders.SetStatus(c.Context(), c.Param("id"), in.Status)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(order)
}

// Dashboard returns the cached analytics snapshot.
func (ac *AdminController) Dashboard(c *ctx.Context) {
	dashboard, err := ac.analytics.Dashboard(c.Context())
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(dashboard)
}
