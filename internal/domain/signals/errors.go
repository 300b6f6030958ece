package signals

import "errors"

// ErrUnknownCategory is returned when a category name is not in the table.
var ErrUnknownCategory = errors.New("unknown signal category")
