package dto

// CounterPageData is what the counter page renders
type CounterPageData struct {
	ViewID      string `json:"view_id"`
	CounterName string `json:"counter_name"`
	Value       int64  `json:"value"`
}

// OpenCounterRequest carries the counter a fresh page binds to
type OpenCounterRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}
