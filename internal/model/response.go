package model

// Page is the envelope for paginated list endpoints. Next and Previous hold
// page numbers, or null at either end.
type Page[T any] struct {
	Count       int  `json:"count"`
	CurrentPage int  `json:"current_page"`
	NumPages    int  `json:"num_pages"`
	Next        *int `json:"next"`
	Previous    *int `json:"previous"`
	Results     []T  `json:"results"`
}

// NewPage builds the envelope for page (1-based) of size pageSize out of
// count items in total.
func NewPage[T any](results []T, count, page, pageSize int) Page[T] {
	numPages := 1
	if count > 0 && pageSize > 0 {
		numPages = (count + pageSize - 1) / pageSize
	}
	p := Page[T]{
		Count:       count,
		CurrentPage: page,
		NumPages:    numPages,
		Results:     results,
	}
	if p.Results == nil {
		p.Results = []T{}
	}
	if page < numPages {
		next := page + 1
		p.Next = &next
	}
	if page > 1 {
		prev := page - 1
		p.Previous = &prev
	}
	return p
}

// TokenPair is returned on registration and login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user,omitempty"`
}

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}
