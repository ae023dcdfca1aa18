package webcheck

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tebeka/selenium"
)

// WebDriver error codes the harness inspects. See
// https://www.w3.org/TR/webdriver/#handling-errors for the full table.
const (
	CodeNoSuchElement       = "no such element"
	CodeStaleElement        = "stale element reference"
	CodeNotInteractable     = "element not interactable"
	CodeClickIntercepted    = "element click intercepted"
	CodeElementNotVisible   = "element not visible"
	CodeInvalidElementState = "invalid element state"
	CodeNoSuchWindow        = "no such window"
	CodeJavascriptError     = "javascript error"
)

// legacyCodes maps JSON wire protocol status codes onto W3C error codes for
// servers that only report the numeric status.
var legacyCodes = map[int]string{
	7:  CodeNoSuchElement,
	10: CodeStaleElement,
	11: CodeElementNotVisible,
	12: CodeInvalidElementState,
	17: CodeJavascriptError,
	23: CodeNoSuchWindow,
}

// ErrorCode returns the WebDriver error code carried by err, or "" if err
// did not come from the remote end.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var se *selenium.Error
	if errors.As(err, &se) {
		if se.Err != "" {
			return se.Err
		}
		if code, ok := legacyCodes[se.LegacyCode]; ok {
			return code
		}
	}
	// Legacy servers produce plain errors of the form "<code>: <details>".
	msg := err.Error()
	for _, code := range legacyCodes {
		if strings.HasPrefix(msg, code) {
			return code
		}
	}
	for _, code := range []string{CodeNotInteractable, CodeClickIntercepted} {
		if strings.HasPrefix(msg, code) {
			return code
		}
	}
	return ""
}

// hasCode reports whether err carries one of codes.
func hasCode(err error, codes []string) bool {
	c := ErrorCode(err)
	if c == "" {
		return false
	}
	for _, code := range codes {
		if code == c {
			return true
		}
	}
	return false
}

// TimeoutError is returned when a wait exceeds its deadline. LastErr holds
// the last ignored error seen while polling, if any; it is informational
// and deliberately not unwrapped so every expired wait has the same shape.
type TimeoutError struct {
	Timeout time.Duration
	Elapsed time.Duration
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timeout after %v (limit %v)", e.Elapsed.Round(time.Millisecond), e.Timeout)
	if e.LastErr != nil {
		msg += "; last error: " + e.LastErr.Error()
	}
	return msg
}

// Attempt records what one locator produced during resolution.
type Attempt struct {
	Locator Locator
	// Queried is false for locators no pass reached.
	Queried bool
	Matched int
	Err     error
}

func (a Attempt) String() string {
	switch {
	case !a.Queried:
		return fmt.Sprintf("%s: not tried", a.Locator)
	case a.Err != nil:
		return fmt.Sprintf("%s: %v", a.Locator, a.Err)
	case a.Matched == 0:
		return fmt.Sprintf("%s: no match", a.Locator)
	default:
		return fmt.Sprintf("%s: %d matched, none ready", a.Locator, a.Matched)
	}
}

// ElementNotResolvedError is returned when no locator of a set produced a
// ready element.
type ElementNotResolvedError struct {
	Set       LocatorSet
	Readiness Readiness
	// Attempts has one entry per locator in Set, in order, holding the last
	// observation made for that locator. Locators never reached are not
	// Queried.
	Attempts []Attempt
	// Err is the underlying wait failure, usually a *TimeoutError.
	Err error
}

func (e *ElementNotResolvedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.String()
	}
	msg := fmt.Sprintf("no %s element for %s [%s]", e.Readiness, e.Set, strings.Join(parts, "; "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ElementNotResolvedError) Unwrap() error { return e.Err }

// AuthenticationRejectedError is returned when the site shows its error
// marker after a login attempt.
type AuthenticationRejectedError struct {
	// Message is the text of the error marker, if it had any.
	Message string
}

func (e *AuthenticationRejectedError) Error() string {
	if e.Message == "" {
		return "authentication rejected"
	}
	return fmt.Sprintf("authentication rejected: %s", e.Message)
}

// AuthenticationIndeterminateError is returned when neither the logged-in
// marker nor the error marker appeared, or when the login form itself could
// not be resolved.
type AuthenticationIndeterminateError struct {
	Cause error
}

func (e *AuthenticationIndeterminateError) Error() string {
	return fmt.Sprintf("authentication indeterminate: %v", e.Cause)
}

func (e *AuthenticationIndeterminateError) Unwrap() error { return e.Cause }

// VerificationFailedError is returned when a link navigated somewhere other
// than the expected destination.
type VerificationFailedError struct {
	Expected string
	Actual   string
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("navigated to %q, expected a location containing %q", e.Actual, e.Expected)
}

// WindowLifecycleError is returned when the origin window could not be
// restored after a window operation.
type WindowLifecycleError struct {
	Origin string
	Err    error
}

func (e *WindowLifecycleError) Error() string {
	return fmt.Sprintf("window %q not restored: %v", e.Origin, e.Err)
}

func (e *WindowLifecycleError) Unwrap() error { return e.Err }
