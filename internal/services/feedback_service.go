package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"mobilestore/internal/api"
	"mobilestore/internal/domain"
	"mobilestore/internal/validate"
)

const maxExportPages = 200

type FeedbackService struct {
	API *api.Client
}

func NewFeedbackService(client *api.Client) *FeedbackService {
	return &FeedbackService{API: client}
}

// CheckFeedback trims the form and reports missing or malformed fields.
func CheckFeedback(in domain.FeedbackInput) (domain.FeedbackInput, error) {
	errs := FieldErrors{}
	var ok bool
	if in.Name, ok = validate.Name(in.Name, 100); !ok {
		errs["name"] = "Name is required"
	}
	if strings.TrimSpace(in.Email) == "" {
		errs["email"] = "Email is required"
	} else if in.Email, ok = validate.Email(in.Email); !ok {
		errs["email"] = "Enter a valid email address"
	}
	if in.Phone, ok = validate.Phone(in.Phone); !ok {
		errs["phone"] = "Enter a valid phone number"
	}
	if in.Subject, ok = validate.Name(in.Subject, 200); !ok {
		errs["subject"] = "Subject is required"
	}
	in.Message = strings.TrimSpace(in.Message)
	if in.Message == "" {
		errs["message"] = "Message is required"
	} else if len(in.Message) > 5000 {
		errs["message"] = "Message is too long"
	}
	return in, errs.orNil()
}

func (s *FeedbackService) Submit(ctx context.Context, in domain.FeedbackInput) (domain.Feedback, error) {
	in, err := CheckFeedback(in)
	if err != nil {
		return domain.Feedback{}, err
	}
	return api.Data(s.API.SubmitFeedback(ctx, in))
}

func (s *FeedbackService) List(ctx context.Context, page int) ([]domain.Feedback, *api.Pagination, error) {
	env, err := s.API.FeedbackList(ctx, api.PageParams{Page: api.Int(max(page, 1))})
	list, err := api.Data(env, err)
	if err != nil {
		return nil, nil, err
	}
	return list, env.Pagination, nil
}

// ListAll walks every feedback page, for exports.
func (s *FeedbackService) ListAll(ctx context.Context) ([]domain.Feedback, error) {
	var all []domain.Feedback
	for page := 1; page <= maxExportPages; page++ {
		list, pg, err := s.List(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, list...)
		if pg == nil || page >= pg.TotalPages || len(list) == 0 {
			break
		}
	}
	return all, nil
}

func (s *FeedbackService) Delete(ctx context.Context, id string) error {
	_, err := api.Data(s.API.DeleteFeedback(ctx, id))
	return err
}

// ExportCSV writes Name, Email, Subject, Message, Date rows. Newlines in
// messages are flattened to spaces; dates that do not parse as RFC 3339 are
// written as received.
func ExportCSV(w io.Writer, list []domain.Feedback, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Name", "Email", "Subject", "Message", "Date"}); err != nil {
		return err
	}
	flatten := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
	for _, fb := range list {
		date := fb.CreatedAt
		if t, err := time.Parse(time.RFC3339, fb.CreatedAt); err == nil {
			date = t.In(loc).Format("2006-01-02 15:04:05")
		}
		if err := cw.Write([]string{fb.Name, fb.Email, fb.Subject, flatten.Replace(fb.Message), date}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write feedback csv: %w", err)
	}
	return nil
}

// ExportFilename is the download name for an export taken at t.
func ExportFilename(t time.Time) string {
	return "feedbacks_" + t.UTC().Format("20060102T150405Z") + ".csv"
}
