package attendance

import (
	"context"
	"errors"
	"time"

	"prefectlog/internal/domain/attendance"
	"prefectlog/internal/infrastructure/storage"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	store      storage.Store
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(store storage.Store, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		store:      store,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.markOp(), h.mark)
	huma.Register(api, h.listByDateOp(), h.listByDate)
	huma.Register(api, h.listAllOp(), h.listAll)
	huma.Register(api, h.wipeOp(), h.wipe)
}

func (h *Handler) mark(ctx context.Context, input *markInput) (*markOutput, error) {
	role := attendance.Role(input.Body.Role)

	rec, err := h.store.MarkAttendance(ctx, input.Body.PrefectNumber, role)
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrDuplicate):
			return nil, huma.Error409Conflict("attendance already marked for this prefect, role and date")
		case errors.Is(err, attendance.ErrInvalidRole):
			return nil, huma.Error422UnprocessableEntity("unknown role: " + input.Body.Role)
		case errors.Is(err, attendance.ErrEmptyPrefect):
			return nil, huma.Error422UnprocessableEntity("prefect number must not be empty")
		default:
			h.log.Error("mark attendance failed", "error", err)
			return nil, err
		}
	}

	return &markOutput{
		Body: markResponse{
			Status: "Ok",
			Record: rec,
		},
	}, nil
}

func (h *Handler) listByDate(ctx context.Context, input *listByDateInput) (*listOutput, error) {
	if _, err := time.Parse(attendance.DateLayout, input.Date); err != nil {
		return nil, huma.Error422UnprocessableEntity("date must be in YYYY-MM-DD format")
	}

	records, err := h.store.ListByDate(ctx, input.Date)
	if err != nil {
		h.log.Error("list by date failed", "date", input.Date, "error", err)
		return nil, err
	}

	return &listOutput{
		Body: listResponse{
			Status:  "Ok",
			Records: records,
			Count:   len(records),
		},
	}, nil
}

func (h *Handler) listAll(ctx context.Context, _ *struct{}) (*listOutput, error) {
	records, err := h.store.ListAll(ctx)
	if err != nil {
		h.log.Error("list all failed", "error", err)
		return nil, err
	}

	return &listOutput{
		Body: listResponse{
			Status:  "Ok",
			Records: records,
			Count:   len(records),
		},
	}, nil
}

func (h *Handler) wipe(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	if err := h.store.WipeAll(ctx); err != nil {
		h.log.Error("wipe failed", "error", err)
		return nil, err
	}

	h.log.Info("all attendance data wiped")

	return &statusOutput{
		Body: statusResponse{Status: "Ok"},
	}, nil
}
