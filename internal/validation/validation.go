// Package validation implements the field-level input checks shared by the
// auth, user and task endpoints. Validators accumulate every violation rather
// than stopping at the first so clients can report all problems at once.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/taskhub/apiserver/types"
)

const (
	usernameMinLen   = 3
	usernameMaxLen   = 30
	passwordMinLen   = 6
	nameMaxLen       = 50
	titleMaxLen      = 200
	descriptionMax   = 1000
	tagMaxLen        = 30
)

var (
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	hasLowerPattern  = regexp.MustCompile(`[a-z]`)
	hasUpperPattern  = regexp.MustCompile(`[A-Z]`)
	hasDigitPattern  = regexp.MustCompile(`\d`)
)

// FieldError names a single violated field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the accumulated list of field violations for one request.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *Errors) add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

// Username checks the 3-30 character bound.
func Username(errs *Errors, username string) {
	if username == "" {
		errs.add("username", "Username is required")
		return
	}
	if len(username) < usernameMinLen || len(username) > usernameMaxLen {
		errs.add("username", fmt.Sprintf("Username must be %d-%d characters", usernameMinLen, usernameMaxLen))
	}
}

// Email checks basic address shape.
func Email(errs *Errors, email string) {
	if !emailPattern.MatchString(email) {
		errs.add("email", "Please enter a valid email")
	}
}

// Password enforces the minimum length and the lower/upper/digit policy.
func Password(errs *Errors, field, password string) {
	if len(password) < passwordMinLen {
		errs.add(field, fmt.Sprintf("Password must be at least %d characters", passwordMinLen))
	}
	if !hasLowerPattern.MatchString(password) ||
		!hasUpperPattern.MatchString(password) ||
		!hasDigitPattern.MatchString(password) {
		errs.add(field, "Password must contain at least one uppercase, one lowercase, and one number")
	}
}

// PersonName bounds an optional first/last name.
func PersonName(errs *Errors, field, name string) {
	if len(name) > nameMaxLen {
		errs.add(field, fmt.Sprintf("%s cannot exceed %d characters", field, nameMaxLen))
	}
}

// TaskTitle checks the required title and its upper bound.
func TaskTitle(errs *Errors, title string) {
	if strings.TrimSpace(title) == "" {
		errs.add("title", "Title is required")
		return
	}
	if len(title) > titleMaxLen {
		errs.add("title", fmt.Sprintf("Title cannot exceed %d characters", titleMaxLen))
	}
}

// TaskDescription bounds the optional description.
func TaskDescription(errs *Errors, description string) {
	if len(description) > descriptionMax {
		errs.add("description", fmt.Sprintf("Description cannot exceed %d characters", descriptionMax))
	}
}

// TaskStatus checks status against the fixed enumeration.
func TaskStatus(errs *Errors, status types.Status) {
	if status != "" && !status.Valid() {
		errs.add("status", "Status must be one of: pending, in-progress, completed, archived")
	}
}

// TaskPriority checks priority against the fixed enumeration.
func TaskPriority(errs *Errors, priority types.Priority) {
	if priority != "" && !priority.Valid() {
		errs.add("priority", "Priority must be one of: low, medium, high, urgent")
	}
}

// TaskTags bounds each tag.
func TaskTags(errs *Errors, tags []string) {
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			errs.add("tags", "Tags must not be empty")
			return
		}
		if len(tag) > tagMaxLen {
			errs.add("tags", fmt.Sprintf("Tags cannot exceed %d characters", tagMaxLen))
			return
		}
	}
}
