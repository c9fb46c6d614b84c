package handlers

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"mobilestore/internal/api"
	"mobilestore/internal/domain"
	applog "mobilestore/internal/log"
	"mobilestore/internal/services"
	"mobilestore/internal/validate"
)

type AdminHandler struct{}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	client := sessionOf(c).Client()
	page := validate.Page(c.Query("page"))
	var (
		stats    domain.DashboardStats
		feedback []domain.Feedback
		pg       *api.Pagination
	)
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() (err error) {
		stats, err = services.NewDashboardService(client).Stats(ctx)
		return err
	})
	g.Go(func() (err error) {
		feedback, pg, err = services.NewFeedbackService(client).List(ctx, page)
		return err
	})
	if err := g.Wait(); err != nil {
		return fail(c, "admin.dashboard.fail", err, "Could not load the dashboard")
	}
	return render(c, "admin_dashboard", fiber.Map{
		"Stats": stats, "Feedback": feedback, "Pager": newPager(c, page, pg),
	})
}

// POST /admin/cache/clear
func (h *AdminHandler) ClearCache(c *fiber.Ctx) error {
	stats, err := services.NewDashboardService(sessionOf(c).Client()).ClearCache(c.UserContext())
	if err != nil {
		return fail(c, "admin.cache.clear.fail", err, "Could not clear the cache")
	}
	applog.Audit(c, "admin.cache.clear", map[string]any{"entries_after": stats.CacheStats.TotalEntries})
	return redirectWithFlash(c, "/admin", "Cache cleared")
}

// POST /admin/feedback/:id/delete
func (h *AdminHandler) DeleteFeedback(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("invalid id")
	}
	if err := services.NewFeedbackService(sessionOf(c).Client()).Delete(c.UserContext(), id); err != nil {
		return fail(c, "admin.feedback.delete.fail", err, "Feedback not found")
	}
	applog.Audit(c, "admin.feedback.delete", map[string]any{"feedback_id": id})
	return redirectWithFlash(c, "/admin", "Feedback deleted")
}

// GET /admin/feedback.csv
func (h *AdminHandler) ExportFeedback(c *fiber.Ctx) error {
	list, err := services.NewFeedbackService(sessionOf(c).Client()).ListAll(c.UserContext())
	if err != nil {
		return fail(c, "admin.feedback.export.fail", err, "Could not export feedback")
	}
	var buf bytes.Buffer
	if err := services.ExportCSV(&buf, list, time.Local); err != nil {
		return fail(c, "admin.feedback.export.fail", err, "Could not export feedback")
	}
	applog.Audit(c, "admin.feedback.export", map[string]any{"rows": len(list)})
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Attachment(services.ExportFilename(time.Now()))
	return c.Send(buf.Bytes())
}
