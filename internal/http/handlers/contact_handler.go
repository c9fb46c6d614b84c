package handlers

import (
	"github.com/gofiber/fiber/v2"

	"mobilestore/internal/domain"
	"mobilestore/internal/log"
	"mobilestore/internal/services"
)

type ContactHandler struct {
	Feedback *services.FeedbackService
}

func (h *ContactHandler) Form(c *fiber.Ctx) error {
	return render(c, "contact", fiber.Map{"Form": domain.FeedbackInput{}})
}

func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	in := domain.FeedbackInput{
		Name:    c.FormValue("name"),
		Email:   c.FormValue("email"),
		Phone:   c.FormValue("phone"),
		Subject: c.FormValue("subject"),
		Message: c.FormValue("message"),
	}
	if _, err := h.Feedback.Submit(c.UserContext(), in); err != nil {
		if fe := fieldErrors(err); fe != nil {
			log.Security(c, "validation.fail", map[string]any{"form": "contact", "fields": len(fe)})
			c.Status(fiber.StatusBadRequest)
		} else {
			log.Error(c, "feedback.submit.fail", err, nil)
			c.Status(fiber.StatusBadGateway)
		}
		return render(c, "contact", fiber.Map{
			"Form": in, "Errors": fieldErrors(err), "Err": userMessage(err, "Could not send your message. Please try again."),
		})
	}
	log.Info(c, "feedback.submit", nil)
	return redirectWithFlash(c, "/contact", "Message sent. Thank you, we will get back to you soon.")
}
