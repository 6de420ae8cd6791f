package models

// Request bodies of the write endpoints. Field names follow the JSON the
// browser client always sent, camelCase on the way in.

type CodeRequest struct {
	Code string `json:"code"`
}

type ShareRequest struct {
	Code  string `json:"code"`
	Phone string `json:"phone"`
}

type CityRequest struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type CategoryRequest struct {
	ID   int64      `json:"id,omitempty"`
	Name string     `json:"name,omitempty"`
	Type ColumnType `json:"type,omitempty"`
}

type GuestRequest struct {
	ID     int64   `json:"id,omitempty"`
	Name   *string `json:"name,omitempty"`
	CityID *int64  `json:"cityId"`
}

type CheckRequest struct {
	GuestID    int64 `json:"guestId"`
	CategoryID int64 `json:"categoryId"`
	Checked    bool  `json:"checked"`
}

// OK is the body of a successful delete
type OK struct {
	OK bool `json:"ok"`
}

// Message is a plain informational body
type Message struct {
	Message string `json:"message"`
}

// ErrorBody is the body of every non-2xx response
type ErrorBody struct {
	Error string `json:"error"`
}
