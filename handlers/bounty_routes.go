// handlers/bounty_routes.go
package handlers

import (
	"errors"
	"log"

	"bounty-board/metrics"
	"bounty-board/middleware"
	"bounty-board/services"
	"bounty-board/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

func SetupBountyRoutes(app *fiber.App, bountyService *services.BountyService, resolver *services.AutoResolver) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// 🔓 Read-only routes
	app.Get("/bounties", func(c *fiber.Ctx) error {
		bounties, err := bountyService.ListBounties(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(bounties)
	})

	app.Get("/bounties/:id", func(c *fiber.Ctx) error {
		bounty, err := bountyService.GetBounty(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(bounty)
	})

	app.Get("/bounties/:id/submissions", func(c *fiber.Ctx) error {
		submissions, err := bountyService.ListSubmissions(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(submissions)
	})

	// 🔐 Routes acting on behalf of the caller
	userCtx := middleware.UserContextMiddleware()

	app.Post("/bounties", userCtx, func(c *fiber.Ctx) error {
		var req struct {
			Title       string   `json:"title"`
			Description string   `json:"description"`
			Reward      *float64 `json:"reward"`
			Deadline    string   `json:"deadline"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.Reward == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reward is required"})
		}

		deadline, err := services.ParseDeadline(req.Deadline)
		if err != nil {
			return writeError(c, err)
		}

		bounty, err := bountyService.CreateBounty(c.UserContext(), services.CreateBountyInput{
			Title:       req.Title,
			Description: req.Description,
			Reward:      *req.Reward,
			Deadline:    deadline,
			Creator:     middleware.UserID(c),
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(bounty)
	})

	app.Post("/bounties/:id/submissions", userCtx, func(c *fiber.Ctx) error {
		var req struct {
			Link    string `json:"link"`
			Comment string `json:"comment"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		submission, err := bountyService.SubmitWork(c.UserContext(), services.SubmitWorkInput{
			BountyID:  c.Params("id"),
			Submitter: middleware.UserID(c),
			Link:      req.Link,
			Comment:   req.Comment,
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(submission)
	})

	app.Post("/bounties/:id/approve", userCtx, func(c *fiber.Ctx) error {
		var req struct {
			SubmissionID string `json:"submission_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.SubmissionID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "submission_id is required"})
		}

		result, err := bountyService.ApproveWinnerAs(c.UserContext(), middleware.UserID(c), c.Params("id"), req.SubmissionID)
		if err != nil {
			return writeError(c, err)
		}

		resp := fiber.Map{
			"bounty":     result.Bounty,
			"submission": result.Submission,
			"receipt":    result.Receipt,
		}
		if result.PaymentErr != nil {
			resp["payment_error"] = result.PaymentErr.Error()
		}
		return c.JSON(resp)
	})

	// 🔒 Admin route: run one auto-resolution pass now
	app.Post("/admin/auto-resolve", userCtx, middleware.RequireRole(middleware.RoleAdmin), func(c *fiber.Ctx) error {
		report, err := resolver.Tick(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(report)
	})
}

// writeError maps engine and store errors onto HTTP statuses.
func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidState), errors.Is(err, store.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrPaymentFailed):
		status = fiber.StatusPaymentRequired
	case errors.Is(err, store.ErrUnavailable):
		status = fiber.StatusServiceUnavailable
	}
	if status >= fiber.StatusInternalServerError {
		log.Printf("❌ [HTTP] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
