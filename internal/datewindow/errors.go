package datewindow

import "fmt"

// UnparseableDateError is returned when delivery text matches no known shape.
// Text holds the original input, unmodified, for diagnosis.
type UnparseableDateError struct {
	Text string
}

// Error implements the error interface.
func (e *UnparseableDateError) Error() string {
	return fmt.Sprintf("unparseable delivery date %q", e.Text)
}
