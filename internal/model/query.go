package model

type QueryRequest struct {
	Query string `json:"query"`
}

type GreetingResponse struct {
	Message string `json:"message"`
}
