package backup

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) importOp() huma.Operation {
	return huma.Operation{
		OperationID: "backup-import",
		Method:      http.MethodPost,
		Path:        "/api/backup/import",
		Summary:     "Import a backup snapshot",
		Description: "Replaces the full record set with the records from the snapshot. Invalid entries are skipped.",
		Tags:        []string{"backup"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) exportOp() huma.Operation {
	return huma.Operation{
		OperationID: "backup-export",
		Method:      http.MethodGet,
		Path:        "/api/backup/export",
		Summary:     "Export a backup snapshot",
		Description: "Serializes the full record set into a portable snapshot document.",
		Tags:        []string{"backup"},
		Middlewares: h.middleware,
	}
}
