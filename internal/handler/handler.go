package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-storefront-api/internal/dto"
	"github.com/flicky/go-storefront-api/internal/middleware"
	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/service"
)

type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error)
}

type CategoryService interface {
	List(ctx context.Context) ([]dto.CategoryResponse, error)
	GetByID(ctx context.Context, id int) (*dto.CategoryResponse, error)
	Create(ctx context.Context, req dto.CategoryRequest) (*dto.CategoryResponse, error)
	Update(ctx context.Context, id int, req dto.CategoryRequest) (*dto.CategoryResponse, error)
	Delete(ctx context.Context, id int) error
}

type ProductService interface {
	Search(ctx context.Context, filter model.ProductFilter) ([]dto.ProductResponse, error)
	ListByCategory(ctx context.Context, categoryID int) ([]dto.ProductResponse, error)
	GetByID(ctx context.Context, id int) (*dto.ProductResponse, error)
	Create(ctx context.Context, req dto.ProductRequest) (*dto.ProductResponse, error)
	Update(ctx context.Context, id int, req dto.ProductRequest) (*dto.ProductResponse, error)
	Delete(ctx context.Context, id int) error
}

type ProfileService interface {
	Get(ctx context.Context, userID int) (*model.Profile, error)
	Update(ctx context.Context, callerID int, p model.Profile) (*model.Profile, error)
}

type CartService interface {
	GetCart(ctx context.Context, userID int) (*model.Cart, error)
	AddProduct(ctx context.Context, userID, productID int) (*model.Cart, error)
	SetQuantity(ctx context.Context, userID, productID, quantity int) (*model.Cart, error)
	RemoveProduct(ctx context.Context, userID, productID int) error
	Clear(ctx context.Context, userID int) (*model.Cart, error)
}

type OrderService interface {
	Checkout(ctx context.Context, userID int) (*model.Order, error)
	GetByID(ctx context.Context, orderID, userID int) (*model.Order, error)
	ListByUserID(ctx context.Context, userID int) ([]model.Order, error)
}

type Services struct {
	Auth       AuthService
	Categories CategoryService
	Products   ProductService
	Profiles   ProfileService
	Carts      CartService
	Orders     OrderService
}

func NewRouter(svc Services, health *HealthHandler, jwtSecret string, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(log))

	if health != nil {
		router.GET("/healthz", health.Healthz)
		router.GET("/readyz", health.Readyz)
	}

	authH := NewAuthHandler(svc.Auth)
	categoryH := NewCategoryHandler(svc.Categories, svc.Products)
	productH := NewProductHandler(svc.Products)
	profileH := NewProfileHandler(svc.Profiles)
	cartH := NewCartHandler(svc.Carts)
	orderH := NewOrderHandler(svc.Orders)

	authenticated := middleware.AuthMiddleware(jwtSecret)
	adminOnly := []gin.HandlerFunc{authenticated, middleware.AdminOnly()}

	router.POST("/login", authH.Login)
	router.POST("/register", authH.Register)

	categories := router.Group("/categories")
	categories.GET("", categoryH.List)
	categories.GET("/:id", categoryH.GetByID)
	categories.GET("/:id/products", categoryH.Products)
	categories.POST("", append(adminOnly, categoryH.Create)...)
	categories.PUT("/:id", append(adminOnly, categoryH.Update)...)
	categories.DELETE("/:id", append(adminOnly, categoryH.Delete)...)

	products := router.Group("/products")
	products.GET("", productH.Search)
	products.GET("/:id", productH.GetByID)
	products.POST("", append(adminOnly, productH.Create)...)
	products.PUT("/:id", append(adminOnly, productH.Update)...)
	products.DELETE("/:id", append(adminOnly, productH.Delete)...)

	profile := router.Group("/profile", authenticated)
	profile.GET("", profileH.Get)
	profile.PUT("", profileH.Update)

	cart := router.Group("/cart", authenticated)
	cart.GET("", cartH.GetCart)
	cart.DELETE("", cartH.Clear)
	cart.POST("/products/:id", cartH.AddProduct)
	cart.PUT("/products/:id", cartH.SetQuantity)
	cart.DELETE("/products/:id", cartH.RemoveProduct)

	orders := router.Group("/orders", authenticated)
	orders.POST("", orderH.Checkout)
	orders.GET("", orderH.List)
	orders.GET("/:id", orderH.GetByID)

	return router
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrEmptyCart, http.StatusBadRequest},
	{service.ErrIncompleteAddress, http.StatusBadRequest},
	{service.ErrInvalidQuantity, http.StatusBadRequest},
	{service.ErrInsufficientStock, http.StatusBadRequest},
	{service.ErrUserAlreadyExists, http.StatusBadRequest},
	{service.ErrPasswordMismatch, http.StatusBadRequest},
	{service.ErrInvalidProduct, http.StatusBadRequest},
	{service.ErrInvalidCategory, http.StatusBadRequest},
	{service.ErrUnknownCategory, http.StatusBadRequest},
	{service.ErrCategoryInUse, http.StatusBadRequest},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrProfileForbidden, http.StatusForbidden},
	{service.ErrOrderAccessDenied, http.StatusForbidden},
	{service.ErrProductNotFound, http.StatusNotFound},
	{service.ErrCategoryNotFound, http.StatusNotFound},
	{service.ErrProfileNotFound, http.StatusNotFound},
	{service.ErrOrderNotFound, http.StatusNotFound},
}

// writeError maps service errors onto status codes. Anything unrecognised is a 500
// whose detail only reaches the request log.
func writeError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrUnavailable) {
		_ = c.Error(err)
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": service.ErrUnavailable.Error()})
		return
	}
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{"error": err.Error()})
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
