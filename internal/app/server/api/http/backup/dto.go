package backup

type importInput struct {
	Body importRequest
}

type importRequest struct {
	Snapshot string `json:"snapshot" doc:"Serialized backup snapshot document" minLength:"1"`
}

type importOutput struct {
	Body importResponse
}

type importResponse struct {
	Status string `json:"status"`
}

type exportOutput struct {
	Body exportResponse
}

type exportResponse struct {
	Status   string `json:"status"`
	Snapshot string `json:"snapshot"`
}
