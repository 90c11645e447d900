package member

import (
	"prefectlog/internal/domain/attendance"
)

type createInput struct {
	Body createRequest
}

type createRequest struct {
	PrefectNumber string `json:"prefectNumber" doc:"Prefect identification number" minLength:"1"`
	Role          string `json:"role" doc:"Prefect role, e.g. Head Prefect" minLength:"1"`
	Name          string `json:"name,omitempty" doc:"Display name, optional"`
}

type updateInput struct {
	ID   string `path:"id" doc:"Member id"`
	Body updateRequest
}

type updateRequest struct {
	PrefectNumber *string `json:"prefectNumber,omitempty" doc:"New prefect number"`
	Role          *string `json:"role,omitempty" doc:"New role"`
	Name          *string `json:"name,omitempty" doc:"New display name"`
}

type deleteInput struct {
	ID string `path:"id" doc:"Member id"`
}

type memberOutput struct {
	Body memberResponse
}

type memberResponse struct {
	Status string            `json:"status"`
	Member attendance.Member `json:"member"`
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Status  string              `json:"status"`
	Members []attendance.Member `json:"members"`
	Count   int                 `json:"count"`
}

type statusOutput struct {
	Body statusResponse
}

type statusResponse struct {
	Status string `json:"status"`
}
