package v1

import (
	"time"

	"go_library/api/v1/auth"
	"go_library/api/v1/books"
	"go_library/api/v1/borrows"
	"go_library/api/v1/categories"
	eventsapi "go_library/api/v1/events"
	"go_library/api/v1/fees"
	"go_library/api/v1/middleware"
	"go_library/api/v1/reports"
	usersapi "go_library/api/v1/users"
	"go_library/internal/catalog"
	"go_library/internal/circulation"
	"go_library/internal/events"
	"go_library/internal/httpx"
	"go_library/internal/ledger"
	"go_library/internal/report"
	"go_library/internal/session"
	"go_library/internal/users"
	"go_library/internal/validator"
	"go_library/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Services are the domain services behind the API
type Services struct {
	Sessions    *session.Service
	Users       *users.Service
	Catalog     *catalog.Service
	Circulation *circulation.Service
	Ledger      *ledger.Service
	Reports     *report.Service
	Events      *events.Service
	Hub         *ws.Hub // nil when push is disabled
}

// SetupRouter sets up the API v1 routes
func SetupRouter(r *gin.Engine, svc *Services, requestTimeout time.Duration, logger *logrus.Entry) error {
	if err := validator.RegisterGin(); err != nil {
		return err
	}

	r.Use(middleware.RequestLogger(logger), gin.Recovery())

	if svc.Hub != nil {
		socket := gin.WrapH(svc.Hub.Handler())
		r.GET("/socket.io/*any", socket)
		r.POST("/socket.io/*any", socket)
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Timeout(requestTimeout))
	{
		// Public routes (no authentication required)
		v1.GET("/ping", pingHandler)

		authHandler := auth.NewHandler(svc.Sessions, svc.Users)
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/register", authHandler.Register)
		}

		// Protected routes (authentication required)
		protected := v1.Group("")
		protected.Use(middleware.AuthRequired(svc.Sessions))
		{
			protected.GET("/auth/me", authHandler.Me)
			protected.POST("/auth/logout", authHandler.Logout)

			usersHandler := usersapi.NewHandler(svc.Users)
			usersGroup := protected.Group("/users")
			{
				usersGroup.GET("", usersHandler.List)
				usersGroup.POST("", usersHandler.Create)
				usersGroup.GET("/:id", usersHandler.Get)
				usersGroup.PATCH("/:id", usersHandler.Update)
				usersGroup.DELETE("/:id", usersHandler.Delete)
			}

			categoriesHandler := categories.NewHandler(svc.Catalog)
			categoriesGroup := protected.Group("/categories")
			{
				categoriesGroup.GET("", categoriesHandler.List)
				categoriesGroup.POST("", categoriesHandler.Create)
				categoriesGroup.GET("/:id", categoriesHandler.Get)
				categoriesGroup.PUT("/:id", categoriesHandler.Update)
				categoriesGroup.DELETE("/:id", categoriesHandler.Delete)
			}

			booksHandler := books.NewHandler(svc.Catalog)
			booksGroup := protected.Group("/books")
			{
				booksGroup.GET("", booksHandler.List)
				booksGroup.POST("", booksHandler.Create)
				booksGroup.GET("/:id", booksHandler.Get)
				booksGroup.PUT("/:id", booksHandler.Update)
				booksGroup.PATCH("/:id/quantity", booksHandler.AdjustQuantity)
				booksGroup.DELETE("/:id", booksHandler.Delete)
			}

			borrowsHandler := borrows.NewHandler(svc.Circulation, svc.Reports)
			borrowsGroup := protected.Group("/borrows")
			{
				borrowsGroup.GET("", borrowsHandler.List)
				borrowsGroup.POST("/request", borrowsHandler.Request)
				borrowsGroup.POST("/staff-checkin", borrowsHandler.StaffCheckout)
				borrowsGroup.GET("/user/:userId/statistics", borrowsHandler.Statistics)
				borrowsGroup.GET("/:id", borrowsHandler.Get)
				borrowsGroup.PATCH("/:id/approve", borrowsHandler.Approve)
				borrowsGroup.PATCH("/:id/reject", borrowsHandler.Reject)
				borrowsGroup.PATCH("/:id/return", borrowsHandler.Return)
				borrowsGroup.DELETE("/:id", borrowsHandler.Delete)
			}

			feesHandler := fees.NewHandler(svc.Ledger)
			feesGroup := protected.Group("/fees")
			{
				feesGroup.GET("", feesHandler.List)
				feesGroup.POST("", feesHandler.Create)
				feesGroup.GET("/:id", feesHandler.Get)
				feesGroup.PATCH("/:id/pay", feesHandler.Pay)
				feesGroup.DELETE("/:id", feesHandler.Delete)
			}

			reportsHandler := reports.NewHandler(svc.Reports)
			protected.GET("/reports/dashboard", reportsHandler.Dashboard)

			eventsHandler := eventsapi.NewHandler(svc.Events)
			protected.GET("/events", eventsHandler.List)
		}
	}
	return nil
}

// pingHandler handles the ping request using unified response
func pingHandler(c *gin.Context) {
	httpx.OK(c, gin.H{
		"pong": true,
	})
}
