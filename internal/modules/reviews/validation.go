package reviews

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/yungbote/shelfscan-backend/internal/domain"
)

const (
	FieldName     = "name"
	FieldQuantity = "quantity"

	MsgNameRequired        = "Product name is required"
	MsgQuantityNotInteger  = "Quantity must be a whole number"
	MsgQuantityNonNegative = "Quantity must be a non-negative number"
)

// Quantity is the raw quantity as typed into an editor. It decodes from a
// JSON number or a JSON string.
type Quantity string

func (q *Quantity) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		*q = ""
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*q = Quantity(s)
	default:
		*q = Quantity(raw)
	}
	return nil
}

// DraftItem is an unvalidated line item from a working copy.
type DraftItem struct {
	Name     string   `json:"name"`
	Quantity Quantity `json:"quantity"`
}

type FieldError struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists every rejected field of a save attempt.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "no validation errors"
	}
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fmt.Sprintf("item %d %s: %s", fe.Index, fe.Field, fe.Message))
	}
	return "Please fix validation errors before saving: " + strings.Join(parts, "; ")
}

// Lookup returns the message for one item field.
func (v ValidationErrors) Lookup(index int, field string) (string, bool) {
	for _, fe := range v {
		if fe.Index == index && fe.Field == field {
			return fe.Message, true
		}
	}
	return "", false
}

// ByKey renders the errors as "index.field" -> message.
func (v ValidationErrors) ByKey() map[string]string {
	out := make(map[string]string, len(v))
	for _, fe := range v {
		out[strconv.Itoa(fe.Index)+"."+fe.Field] = fe.Message
	}
	return out
}

// ValidateLineItems checks every item and returns the accepted items or
// every field error. It never stops at the first failure.
func ValidateLineItems(drafts []DraftItem) ([]domain.LineItem, ValidationErrors) {
	var errs ValidationErrors
	items := make([]domain.LineItem, 0, len(drafts))
	for i, d := range drafts {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			errs = append(errs, FieldError{Index: i, Field: FieldName, Message: MsgNameRequired})
		}
		qty, msg := parseQuantity(d.Quantity)
		if msg != "" {
			errs = append(errs, FieldError{Index: i, Field: FieldQuantity, Message: msg})
		}
		items = append(items, domain.LineItem{Name: name, Quantity: qty})
	}
	if len(errs) > 0 {
		sort.SliceStable(errs, func(a, b int) bool { return errs[a].Index < errs[b].Index })
		return nil, errs
	}
	return items, nil
}

func parseQuantity(q Quantity) (int, string) {
	s := strings.TrimSpace(string(q))
	if s == "" {
		return 0, MsgQuantityNotInteger
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Negative non-integers still read better as a sign problem.
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil && f < 0 {
			return 0, MsgQuantityNonNegative
		}
		return 0, MsgQuantityNotInteger
	}
	if n < 0 {
		return 0, MsgQuantityNonNegative
	}
	return n, ""
}
