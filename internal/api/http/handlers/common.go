package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// pageRequest is the resolved page/page_size pair of a list request.
type pageRequest struct {
	Page     int
	PageSize int
}

func (p pageRequest) Limit() int  { return p.PageSize }
func (p pageRequest) Offset() int { return (p.Page - 1) * p.PageSize }

func parsePage(c *fiber.Ctx, cfg config.PaginationConfig) pageRequest {
	size := parseInt(c.Query("page_size"), cfg.DefaultPageSize)
	if cfg.MaxPageSize > 0 && size > cfg.MaxPageSize {
		size = cfg.MaxPageSize
	}
	if size <= 0 {
		size = 20
	}
	return pageRequest{Page: parseInt(c.Query("page"), 1), PageSize: size}
}

func listResponse(c *fiber.Ctx, items any, page pageRequest, count int) error {
	return c.JSON(fiber.Map{
		"data": items,
		"meta": fiber.Map{
			"page":      page.Page,
			"page_size": page.PageSize,
			"count":     count,
		},
	})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// caller returns the authenticated user, or nil; services turn nil into 401.
func caller(c *fiber.Ctx) *domain.User {
	user, _ := auth.PrincipalFromContext(c)
	return user
}

// pathID reads a uuid path parameter. Malformed ids cannot name a row, so they are
// reported as not found.
func pathID(c *fiber.Ctx, name, resource string) (string, error) {
	raw := c.Params(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.NewNotFound(resource, map[string]any{"id": raw})
	}
	return id.String(), nil
}

// bind decodes the JSON body into dst and runs its validation tags. An empty body
// decodes as {}.
func bind(c *fiber.Ctx, dst any) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(dst); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	return apperrors.ValidateStruct(dst)
}

func splitCSV(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseStatuses(c *fiber.Ctx) ([]domain.TicketStatus, error) {
	var out []domain.TicketStatus
	for _, part := range splitCSV(c.Query("status")) {
		status := domain.TicketStatus(strings.ToUpper(part))
		if !status.Valid() {
			return nil, apperrors.NewFieldError("status", "status must be one of [OPEN IN_PROGRESS CLOSED]")
		}
		out = append(out, status)
	}
	return out, nil
}

func parsePriorities(c *fiber.Ctx) ([]domain.TicketPriority, error) {
	var out []domain.TicketPriority
	for _, part := range splitCSV(c.Query("priority")) {
		priority := domain.TicketPriority(strings.ToUpper(part))
		if !priority.Valid() {
			return nil, apperrors.NewFieldError("priority", "priority must be one of [LOW MEDIUM HIGH]")
		}
		out = append(out, priority)
	}
	return out, nil
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

// optionalUUIDQuery reads an id filter; a malformed id is a 400 on that parameter.
func optionalUUIDQuery(c *fiber.Ctx, key string) (*string, error) {
	val := optionalQuery(c, key)
	if val == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*val)
	if err != nil {
		return nil, apperrors.NewFieldError(key, key+" must be a valid id")
	}
	s := id.String()
	return &s, nil
}

// parseInstant accepts RFC 3339 timestamps and plain dates. endOfDay moves a plain
// date to its last instant so inclusive ranges cover the whole day.
func parseInstant(field, val string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", val); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		return time.Time{}, apperrors.NewFieldError(field, field+" must be a date or an RFC 3339 timestamp")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func message(c *fiber.Ctx, text string) error {
	return c.JSON(fiber.Map{"message": text})
}
