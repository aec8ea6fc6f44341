package core

import "fmt"

// PanicError is returned when an SDK call panics instead of returning.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("sdk panic: %v", e.Value)
}

// guard runs an opaque SDK call and converts a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}

func guardValue[T any](fn func() (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value, err = zero, &PanicError{Value: r}
		}
	}()
	return fn()
}
