package member

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "members-list",
		Method:      http.MethodGet,
		Path:        "/api/members",
		Summary:     "List the prefect roster",
		Tags:        []string{"members"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID: "members-create",
		Method:      http.MethodPost,
		Path:        "/api/members",
		Summary:     "Register a prefect",
		Description: "Adds a prefect to the roster ahead of any check-in. Prefect numbers are unique.",
		Tags:        []string{"members"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) updateOp() huma.Operation {
	return huma.Operation{
		OperationID: "members-update",
		Method:      http.MethodPut,
		Path:        "/api/members/{id}",
		Summary:     "Update a roster entry",
		Tags:        []string{"members"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID: "members-delete",
		Method:      http.MethodDelete,
		Path:        "/api/members/{id}",
		Summary:     "Remove a roster entry",
		Tags:        []string{"members"},
		Middlewares: h.middleware,
	}
}
