package booking

// ValidationError is malformed or missing input. It never reaches the data layer.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func invalid(detail string) error {
	return &ValidationError{Detail: detail}
}
