package forms

// Коды ошибок валидации. Попадают в payload как есть.
const (
	ErrRequired        = "required"
	ErrTypeMismatch    = "type_mismatch"
	ErrChoiceInvalid   = "choice_invalid"
	ErrUniqueViolation = "unique_violation"
	ErrRefNotFound     = "ref_not_found"
)

type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func ferr(code, field, msg string) FieldError {
	return FieldError{Code: code, Field: field, Message: msg}
}
