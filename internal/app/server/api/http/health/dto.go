package health

// Input is the (empty) request for the liveness probe.
type Input struct{}

// Output wraps the probe response body.
type Output struct {
	Body Response
}

// Response reports whether the attendance server is up.
type Response struct {
	Status string `json:"status" example:"OK" doc:"Liveness status of the attendance server"`
}
