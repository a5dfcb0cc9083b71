package model

type TablesResponse struct {
	Tables []string `json:"tables"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
