package magister

import (
	"errors"
	"fmt"
	"strings"
)

// AuthRequiredError means the portal wants the operator to do
// something out of band (changed credentials, a forced password
// change, ...). Callers must not treat this as a transient failure:
// retrying will never fix it.
type AuthRequiredError struct {
	Reason string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("authentication required: %s", e.Reason)
}

// phrases the portal (and this package's own fatal paths) emit when
// the real problem is stale credentials. substring matching is a
// fallback for errors that cross a process or serialization
// boundary and lose their type; do not extend this list.
var authRequiredPhrases = []string{
	"visit website",
	"redirect URL does not contain a fragment",
	"could not get account info",
}

func IsAuthenticationRequired(err error) bool {
	if err == nil {
		return false
	}
	var authErr *AuthRequiredError
	if errors.As(err, &authErr) {
		return true
	}
	msg := err.Error()
	for _, phrase := range authRequiredPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
