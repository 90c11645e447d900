package attendance

import (
	"prefectlog/internal/domain/attendance"
)

type markInput struct {
	Body markRequest
}

type markRequest struct {
	PrefectNumber string `json:"prefectNumber" doc:"Prefect identification number" minLength:"1"`
	Role          string `json:"role" doc:"Prefect role, e.g. Head Prefect" minLength:"1"`
}

type markOutput struct {
	Body markResponse
}

type markResponse struct {
	Status string            `json:"status"`
	Record attendance.Record `json:"record"`
}

type listByDateInput struct {
	Date string `path:"date" example:"2024-09-02" doc:"Calendar day in YYYY-MM-DD format"`
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Status  string              `json:"status"`
	Records []attendance.Record `json:"records"`
	Count   int                 `json:"count"`
}

type statusOutput struct {
	Body statusResponse
}

type statusResponse struct {
	Status string `json:"status"`
}
