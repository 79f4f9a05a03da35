package notify

import "errors"

var (
	// ErrQueryConstruction is reported when the store rejects a query definition.
	ErrQueryConstruction = errors.New("query construction failed")
	// ErrFetchExecution is reported when the initial fetch of a live query fails.
	ErrFetchExecution = errors.New("fetch execution failed")
	// ErrDelegateTranslation marks a reported change that could not be mapped
	// to a ChangeEvent. Such changes are dropped, never delivered.
	ErrDelegateTranslation = errors.New("change could not be translated")
)
