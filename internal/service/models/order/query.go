package order

// QueryOrdersModel represents filter parameters for querying orders.
type QueryOrdersModel struct {
	Status *Status `json:"status,omitempty"`
	Page   int     `json:"page,omitempty"`
	Limit  int     `json:"limit,omitempty"`
}

// Offset returns the row offset for the requested page.
func (q *QueryOrdersModel) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Meta holds pagination metadata for a listing response.
type Meta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	LastPage int64 `json:"lastPage"`
}

// Page is one page of orders together with pagination metadata.
type Page struct {
	Data []Order `json:"data"`
	Meta Meta    `json:"meta"`
}
