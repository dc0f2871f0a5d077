package retirement

import "errors"

// validationError joins errs into a single KindValidation *Error, or nil if all are nil.
func validationError(errs ...error) error {
	err := errors.Join(errs...)
	if err == nil {
		return nil
	}
	return &Error{Kind: KindValidation, Message: err.Error()}
}
