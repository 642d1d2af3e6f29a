// Package router đăng ký các route thuộc domain Publication.
package router

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	pubhdl "brint/internal/api/publication/handler"
	apirouter "brint/internal/api/router"
)

// Register đăng ký tất cả route publication lên v1.
func Register(v1 fiber.Router, r *apirouter.Router) error {
	publicationHandler, err := pubhdl.NewPublicationHandler()
	if err != nil {
		return fmt.Errorf("create publication handler: %w", err)
	}

	apirouter.RegisterRouteWithMiddleware(v1, "/publications", "POST", "/", nil, publicationHandler.Create)
	apirouter.RegisterRouteWithMiddleware(v1, "/publications", "GET", "/:id", nil, publicationHandler.GetByID)
	apirouter.RegisterRouteWithMiddleware(v1, "/publications", "POST", "/:id/cancel", nil, publicationHandler.Cancel)
	apirouter.RegisterRouteWithMiddleware(v1, "/brands", "GET", "/:brandId/publications", nil, publicationHandler.ListByBrand)

	return nil
}
