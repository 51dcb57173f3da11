package controllers

import (
	"net/http"
	"strconv"

	"github.com/oliveedge/oliveedge/app/repositories"
	"github.com/oliveedge/oliveedge/app/services"
	"github.com/oliveedge/oliveedge/pkg/apperr"
	"github.com/oliveedge/oliveedge/pkg/ctx"
	"github.com/oliveedge/oliveedge/pkg/middleware"
)

// maxImageUploadBytes caps admin product image uploads at 8 MB.
const maxImageUploadBytes = 8 << 20

type ProductController struct {
	catalog *services.CatalogService
}

func NewProductController() *ProductController {
	return &ProductController{catalog: services.NewCatalogService()}
}

// Index lists the catalogue with optional search, category, and pagination.
func (pc *ProductController) Index(c *ctx.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "12"))

	result, err := pc.catalog.List(c.Context(), repositories.ProductQuery{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(result)
}

// Top lists the highest-rated products.
func (pc *ProductController) Top(c *ctx.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	products, err := pc.catalog.TopRated(c.Context(), limit)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(products)
}

func (pc *ProductController) Show(c *ctx.Context) {
	product, err := pc.catalog.Get(c.Context(), c.Param("id"))
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(product)
}

func (pc *ProductController) AddReview(c *ctx.Context) {
	userID, ok := middleware.UserIDFromCtx(c.R)
	if !ok {
		c.Unauthorized()
		return
	}

	var in services.ReviewInput
	if !c.BindJSON(&in) {
		return
	}

	product, err := pc.catalog.AddReview(c.Context(), c.Param("id"), userID, in)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Created(product)
}

func (pc *ProductController) MarkReviewHelpful(c *ctx.Context) {
	err := pc.catalog.MarkReviewHelpful(c.Context(), c.Param("id"), c.Param("rid"))
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(map[string]string{"message": "review marked helpful"})
}

// ── Admin ────────────────────────────────────────────────────────────────────

func (pc *ProductController) Store(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}

	product, err := pc.catalog.Create(c.Context(), in)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Created(product)
}

func (pc *ProductController) Update(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}

	product, err := pc.catalog.Update(c.Context(), c.Param("id"), in)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(product)
}

func (pc *ProductController) Destroy(c *ctx.Context) {
	if err := pc.catalog.Delete(c.Context(), c.Param("id")); err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Success(map[string]string{"message": "product deleted"})
}

// UploadImage accepts a multipart image and stores it on the configured disk.
func (pc *ProductController) UploadImage(c *ctx.Context) {
	if err := c.R.ParseMultipartForm(maxImageUploadBytes); err != nil {
		c.Error(http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := c.R.FormFile("image")
	if err != nil {
		c.Error(http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	url, err := pc.catalog.UploadImage(c.Context(), c.Param("id"), header.Filename, file)
	if err != nil {
		c.Error(apperr.Status(err), apperr.Message(err))
		return
	}
	c.Created(map[string]string{"image": url})
}
