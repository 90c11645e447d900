package backup

import (
	"context"
	"errors"

	"prefectlog/internal/infrastructure/storage"
	"prefectlog/internal/store"

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
	huma.Register(api, h.importOp(), h.importBackup)
	huma.Register(api, h.exportOp(), h.exportBackup)
}

func (h *Handler) importBackup(ctx context.Context, input *importInput) (*importOutput, error) {
	if err := h.store.ImportBackup(ctx, input.Body.Snapshot); err != nil {
		if errors.Is(err, store.ErrInvalidFormat) {
			return nil, huma.Error422UnprocessableEntity("snapshot is not a valid backup document")
		}
		h.log.Error("backup import failed", "error", err)
		return nil, err
	}

	h.log.Info("backup imported")

	return &importOutput{
		Body: importResponse{Status: "Ok"},
	}, nil
}

func (h *Handler) exportBackup(ctx context.Context, _ *struct{}) (*exportOutput, error) {
	serialized, err := h.store.ExportBackup(ctx)
	if err != nil {
		h.log.Error("backup export failed", "error", err)
		return nil, err
	}

	return &exportOutput{
		Body: exportResponse{
			Status:   "Ok",
			Snapshot: serialized,
		},
	}, nil
}
