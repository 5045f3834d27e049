package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"library-backend/internal/shared/middleware"
	"library-backend/internal/shared/response"
	"library-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.Metrics(c.Metrics),
	)

	router.NoRoute(func(ctx *gin.Context) {
		response.ErrorResponse(ctx, http.StatusNotFound, "ROUTE_NOT_FOUND", "Route not found")
	})
	router.NoMethod(func(ctx *gin.Context) {
		response.ErrorResponse(ctx, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthHandler(c))

		branches := v1.Group("/branches")
		{
			branches.POST("", c.BranchHandler.CreateBranch)
			branches.GET("", c.BranchHandler.ListBranches)
			branches.GET("/:id", c.BranchHandler.GetBranch)
			branches.PUT("/:id", c.BranchHandler.UpdateBranch)
			branches.DELETE("/:id", c.BranchHandler.DeleteBranch)
		}

		items := v1.Group("/catalog-items")
		{
			items.POST("", c.CatalogHandler.CreateItem)
			items.GET("", c.CatalogHandler.ListItems)
			items.GET("/:id", c.CatalogHandler.GetItem)
			items.PUT("/:id", c.CatalogHandler.UpdateItem)
			items.DELETE("/:id", c.CatalogHandler.DeleteItem)
			items.GET("/:id/availability", c.CatalogHandler.GetAvailability)
			items.GET("/:id/copies", c.CatalogHandler.ListItemCopies)
			items.GET("/:id/reservations", c.CatalogHandler.ListItemQueue)
		}

		copies := v1.Group("/copies")
		{
			copies.POST("", c.CatalogHandler.CreateCopy)
			copies.GET("/:id", c.CatalogHandler.GetCopy)
			copies.PUT("/:id", c.CatalogHandler.UpdateCopy)
			copies.DELETE("/:id", c.CatalogHandler.DeleteCopy)
			copies.PUT("/:id/status", c.CatalogHandler.ChangeStatus)
			copies.PUT("/:id/reshelve", c.CatalogHandler.Reshelve)
			copies.GET("/:id/history", c.CatalogHandler.CopyHistory)
		}

		patrons := v1.Group("/patrons")
		{
			patrons.POST("", c.PatronHandler.CreatePatron)
			patrons.GET("", c.PatronHandler.ListPatrons)
			patrons.GET("/:id", c.PatronHandler.GetPatron)
			patrons.PUT("/:id", c.PatronHandler.UpdatePatron)
			patrons.DELETE("/:id", c.PatronHandler.DeletePatron)
			patrons.GET("/:id/fines", c.FineHandler.ListPatronFines)
			patrons.GET("/:id/transactions", c.CirculationHandler.ListPatronTransactions)
		}

		transactions := v1.Group("/transactions")
		{
			transactions.POST("/checkout", c.CirculationHandler.Checkout)
			transactions.POST("/checkin", c.CirculationHandler.Checkin)
			transactions.GET("", c.CirculationHandler.ListTransactions)
			transactions.GET("/overdue", c.CirculationHandler.ListOverdue)
			transactions.GET("/:id", c.CirculationHandler.GetTransaction)
			transactions.PUT("/:id/renew", c.CirculationHandler.Renew)
		}

		reservations := v1.Group("/reservations")
		{
			reservations.POST("", c.ReservationHandler.Create)
			reservations.GET("", c.ReservationHandler.List)
			reservations.POST("/expire", c.ReservationHandler.ExpireDue)
			reservations.GET("/:id", c.ReservationHandler.Get)
			reservations.PUT("/:id/fulfill", c.ReservationHandler.Fulfill)
			reservations.PUT("/:id/expire", c.ReservationHandler.Expire)
			reservations.DELETE("/:id", c.ReservationHandler.Cancel)
		}

		fines := v1.Group("/fines")
		{
			fines.POST("", c.FineHandler.CreateFine)
			fines.GET("", c.FineHandler.ListFines)
			fines.GET("/:id", c.FineHandler.GetFine)
			fines.PUT("/:id/pay", c.FineHandler.PayFine)
			fines.DELETE("/:id", c.FineHandler.DeleteFine)
		}
	}

	return router
}

func healthHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		storeErr, redisErr := c.Health(ctx.Request.Context())

		redisStatus := "disabled"
		if c.Cache != nil {
			redisStatus = "ok"
			if redisErr != nil {
				redisStatus = "unavailable"
			}
		}

		if storeErr != nil {
			response.ErrorWithDetails(ctx, http.StatusServiceUnavailable, "STORE_UNAVAILABLE",
				"Ledger store is unavailable", gin.H{"store": storeErr.Error(), "redis": redisStatus})
			return
		}

		response.Success(ctx, http.StatusOK, gin.H{
			"status":  "ok",
			"store":   c.Config.App.StoreDriver,
			"redis":   redisStatus,
			"version": c.Config.App.Version,
		})
	}
}
