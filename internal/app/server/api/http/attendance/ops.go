package attendance

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) markOp() huma.Operation {
	return huma.Operation{
		OperationID: "attendance-mark",
		Method:      http.MethodPost,
		Path:        "/api/attendance",
		Summary:     "Mark attendance",
		Description: "Records a check-in for a prefect. At most one record per prefect, role and calendar day is accepted.",
		Tags:        []string{"attendance"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) listByDateOp() huma.Operation {
	return huma.Operation{
		OperationID: "attendance-list-by-date",
		Method:      http.MethodGet,
		Path:        "/api/attendance/date/{date}",
		Summary:     "List attendance for a day",
		Tags:        []string{"attendance"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) listAllOp() huma.Operation {
	return huma.Operation{
		OperationID: "attendance-list-all",
		Method:      http.MethodGet,
		Path:        "/api/attendance",
		Summary:     "List all attendance records",
		Tags:        []string{"attendance"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) wipeOp() huma.Operation {
	return huma.Operation{
		OperationID: "attendance-wipe",
		Method:      http.MethodDelete,
		Path:        "/api/attendance",
		Summary:     "Wipe all attendance data",
		Description: "Removes every attendance record and member. Irreversible.",
		Tags:        []string{"attendance"},
		Middlewares: h.middleware,
	}
}
