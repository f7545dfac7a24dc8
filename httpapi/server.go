// Package httpapi exposes the journal service over JSON HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/theimaginaryfoundation/mood-journal/journal"
)

// UserHeader carries the caller's user id. It is trusted as given.
const UserHeader = "X-User-ID"

const userKey = "user_id"

type Handler struct {
	svc    *journal.Service
	logger *slog.Logger
}

func NewHandler(svc *journal.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// NewServer returns an echo instance with middleware and all routes registered.
func NewServer(svc *journal.Service, logger *slog.Logger) *echo.Echo {
	h := NewHandler(svc, logger)
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			h.logger.LogAttrs(c.Request().Context(), level, "http_request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	h.Register(e)
	return e
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api", requireUser)
	api.POST("/entry", h.CreateEntry)
	api.GET("/entry", h.ListEntries)
	api.PATCH("/entry/:id", h.UpdateEntry)
	api.DELETE("/entry/:id", h.DeleteEntry)
	api.GET("/journal/:id", h.GetJournal)
	api.PATCH("/journal/:id", h.EditJournal)
	api.POST("/question", h.Ask)
	api.GET("/history", h.History)
	api.GET("/archive", h.Archive)
	api.GET("/analytics", h.Analytics)
}

func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := strings.TrimSpace(c.Request().Header.Get(UserHeader))
		if userID == "" {
			return c.JSON(http.StatusUnauthorized, errorBody("missing " + UserHeader + " header"))
		}
		c.Set(userKey, userID)
		return next(c)
	}
}

func userID(c echo.Context) string {
	s, _ := c.Get(userKey).(string)
	return s
}

type dataBody struct {
	Data any `json:"data"`
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps service errors onto status codes.
func (h *Handler) writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, journal.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, journal.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, journal.ErrQuestionsDisabled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request_failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
		return c.JSON(status, errorBody("internal error"))
	}
	return c.JSON(status, errorBody(err.Error()))
}

type createEntryRequest struct {
	Content string `json:"content"`
}

func (h *Handler) CreateEntry(c echo.Context) error {
	var req createEntryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request"))
	}
	e, err := h.svc.CreateEntry(c.Request().Context(), userID(c), req.Content)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dataBody{Data: e})
}

func (h *Handler) ListEntries(c echo.Context) error {
	var f journal.ListFilter
	if s := c.QueryParam("status"); s != "" {
		st, err := journal.ParseStatus(s)
		if err != nil {
			return h.writeError(c, err)
		}
		f.Status = st
	}
	entries, err := h.svc.ListEntries(c.Request().Context(), userID(c), f)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dataBody{Data: entries})
}

type updateEntryRequest struct {
	Updates journal.EntryUpdate `json:"updates"`
}

// UpdateEntry answers 502 with the saved entry when the update was stored but its
// analysis could not be produced.
func (h *Handler) UpdateEntry(c echo.Context) error {
	var req updateEntryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request"))
	}
	e, err := h.svc.UpdateEntry(c.Request().Context(), userID(c), c.Param("id"), req.Updates)
	if errors.Is(err, journal.ErrAnalysisFailed) {
		return c.JSON(http.StatusBadGateway, map[string]any{
			"error": err.Error(),
			"data":  e,
		})
	}
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dataBody{Data: e})
}

func (h *Handler) DeleteEntry(c echo.Context) error {
	id := c.Param("id")
	if err := h.svc.DeleteEntry(c.Request().Context(), userID(c), id); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dataBody{Data: map[string]string{"id": id}})
}

func (h *Handler) GetJournal(c echo.Context) error {
	e, err := h.svc.GetEntry(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dataBody{Data: e})
}

type editJournalRequest struct {
	Content string `json:"content"`
}

func (h *Handler) EditJournal(c echo.Context) error {
	var req editJournalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request"))
	}
	e, err := h.svc.EditContent(c.Request().Context(), userID(c), c.Param("id"), req.Content)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dataBody{Data: e})
}

type questionRequest struct {
	Question string `json:"question"`
}

func (h *Handler) Ask(c echo.Context) error {
	var req questionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request"))
	}
	answer, err := h.svc.Ask(c.Request().Context(), userID(c), req.Question)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dataBody{Data: answer})
}

func (h *Handler) History(c echo.Context) error {
	r, err := h.svc.History(c.Request().Context(), userID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dataBody{Data: r})
}

func (h *Handler) Archive(c echo.Context) error {
	months, err := h.svc.Archive(c.Request().Context(), userID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dataBody{Data: months})
}

func (h *Handler) Analytics(c echo.Context) error {
	start, err := parseDate(c.QueryParam("startDate"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid startDate"))
	}
	end, err := parseDate(c.QueryParam("endDate"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid endDate"))
	}
	r, err := h.svc.Analytics(c.Request().Context(), userID(c), journal.AnalyticsQuery{
		Start:      start,
		End:        end,
		Comparison: c.QueryParam("comparison"),
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, dataBody{Data: r})
}

// parseDate accepts RFC 3339 timestamps and bare dates, which are midnight UTC.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}
