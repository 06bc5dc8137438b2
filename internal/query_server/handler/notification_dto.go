package handler

type NotifyResponseDTO struct {
	Accepted int `json:"accepted"`
}

type SearchRequestDTO struct {
	Query  map[string]string `json:"query"`
	Fields []string          `json:"fields"`
}

type SearchResponseDTO struct {
	Traces []map[string]interface{} `json:"traces"`
}
