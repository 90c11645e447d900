package member

import (
	"context"
	"errors"

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
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.updateOp(), h.update)
	huma.Register(api, h.deleteOp(), h.delete)
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	members, err := h.store.ListMembers(ctx)
	if err != nil {
		h.log.Error("list members failed", "error", err)
		return nil, err
	}

	return &listOutput{
		Body: listResponse{
			Status:  "Ok",
			Members: members,
			Count:   len(members),
		},
	}, nil
}

func (h *Handler) create(ctx context.Context, input *createInput) (*memberOutput, error) {
	role := attendance.Role(input.Body.Role)

	m, err := h.store.CreateMember(ctx, input.Body.PrefectNumber, role, input.Body.Name)
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrMemberExists):
			return nil, huma.Error409Conflict("prefect number already registered")
		case errors.Is(err, attendance.ErrInvalidRole):
			return nil, huma.Error422UnprocessableEntity("unknown role: " + input.Body.Role)
		case errors.Is(err, attendance.ErrEmptyPrefect):
			return nil, huma.Error422UnprocessableEntity("prefect number must not be empty")
		default:
			h.log.Error("create member failed", "error", err)
			return nil, err
		}
	}

	return &memberOutput{
		Body: memberResponse{
			Status: "Ok",
			Member: m,
		},
	}, nil
}

func (h *Handler) update(ctx context.Context, input *updateInput) (*memberOutput, error) {
	upd := attendance.MemberUpdate{
		Name:          input.Body.Name,
		PrefectNumber: input.Body.PrefectNumber,
	}
	if input.Body.Role != nil {
		role := attendance.Role(*input.Body.Role)
		upd.Role = &role
	}

	m, err := h.store.UpdateMember(ctx, input.ID, upd)
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrNotFound):
			return nil, huma.Error404NotFound("no member with id " + input.ID)
		case errors.Is(err, attendance.ErrInvalidRole):
			return nil, huma.Error422UnprocessableEntity("unknown role: " + *input.Body.Role)
		default:
			h.log.Error("update member failed", "id", input.ID, "error", err)
			return nil, err
		}
	}

	return &memberOutput{
		Body: memberResponse{
			Status: "Ok",
			Member: m,
		},
	}, nil
}

func (h *Handler) delete(ctx context.Context, input *deleteInput) (*statusOutput, error) {
	if err := h.store.DeleteMember(ctx, input.ID); err != nil {
		h.log.Error("delete member failed", "id", input.ID, "error", err)
		return nil, err
	}

	return &statusOutput{
		Body: statusResponse{Status: "Ok"},
	}, nil
}
