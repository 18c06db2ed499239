package azure

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// MissingFieldError reports a desired-state field that is required to create
// a resource but was not supplied.
type MissingFieldError struct {
	ResourceType string
	Field        string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("cannot create %s: missing required field %q", e.ResourceType, e.Field)
}

// NameTakenError reports a name-availability pre-flight failure.
type NameTakenError struct {
	ResourceType string
	Name         string
	Reason       string
}

func (e *NameTakenError) Error() string {
	msg := fmt.Sprintf("%s name %q is not available", e.ResourceType, e.Name)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// IsNotFound reports whether err is the provider's "resource does not exist"
// response. Lookup misses are control flow, not failures.
func IsNotFound(err error) bool {
	return hasStatusCode(err, http.StatusNotFound)
}

// IsConflict reports whether err is a provider conflict response.
func IsConflict(err error) bool {
	return hasStatusCode(err, http.StatusConflict)
}

// IsForbidden reports whether the provider denied access. Newly created key
// vaults return 403 until network rules propagate.
func IsForbidden(err error) bool {
	return hasStatusCode(err, http.StatusForbidden)
}

func hasStatusCode(err error, code int) bool {
	if err == nil {
		return false
	}
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}
