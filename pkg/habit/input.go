package habit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxNameLength    = 100
	MaxMessageLength = 1024
)

// ValidationError reports a rejected habit field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// HabitInput is the request body for creating or updating a habit. Nil
// fields were absent from the request, or sent as null.
type HabitInput struct {
	Name    *string `json:"name,omitempty"`
	Type    *string `json:"type,omitempty"`
	Cycle   *Cycle  `json:"cycle,omitempty"`
	Message *string `json:"message,omitempty"`

	nulls map[string]bool
}

// UnmarshalJSON decodes strictly and remembers which keys were explicit
// nulls, since those fail validation where absent keys do not.
func (in *HabitInput) UnmarshalJSON(data []byte) error {
	type fields HabitInput
	var f fields
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*in = HabitInput(f)
	for k, v := range raw {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			if in.nulls == nil {
				in.nulls = make(map[string]bool)
			}
			in.nulls[k] = true
		}
	}
	return nil
}

// Normalize validates the input and returns a trimmed copy. With partial
// set, only present fields are checked (update); otherwise name is required
// and absent fields get their defaults (create).
func (in HabitInput) Normalize(partial bool) (HabitInput, error) {
	var out HabitInput

	if !partial || in.Name != nil || in.nulls["name"] {
		if in.Name == nil {
			return HabitInput{}, invalid("name", "Habit name is required")
		}
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return HabitInput{}, invalid("name", "Habit name cannot be empty")
		}
		if len(name) > MaxNameLength {
			return HabitInput{}, invalid("name", "Habit name must be 1-%d characters", MaxNameLength)
		}
		out.Name = &name
	}

	if in.nulls["type"] {
		return HabitInput{}, invalid("type", "Habit type must be a string")
	}
	if in.Type != nil {
		t := strings.TrimSpace(*in.Type)
		out.Type = &t
	} else if !partial {
		out.Type = ptr("")
	}

	if in.Cycle != nil || in.nulls["cycle"] {
		if in.Cycle == nil || !in.Cycle.Valid() {
			return HabitInput{}, invalid("cycle", "Cycle must be one of: daily, weekly, monthly")
		}
		c := *in.Cycle
		out.Cycle = &c
	} else if !partial {
		c := CycleDaily
		out.Cycle = &c
	}

	if in.nulls["message"] {
		return HabitInput{}, invalid("message", "Message must be a string")
	}
	if in.Message != nil {
		m := strings.TrimSpace(*in.Message)
		if len(m) > MaxMessageLength {
			return HabitInput{}, invalid("message", "Message must be 0-%d characters", MaxMessageLength)
		}
		out.Message = &m
	} else if !partial {
		out.Message = ptr("")
	}

	return out, nil
}

// NewHabit builds a habit owned by userID from normalized create input.
func NewHabit(userID string, in HabitInput, now time.Time) Habit {
	ts := now.UTC().Truncate(time.Millisecond)
	h := Habit{
		ID:        "habit_" + uuid.NewString(),
		UserID:    userID,
		Cycle:     CycleDaily,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	h.apply(in)
	return h
}

// Apply copies the present fields of normalized input onto h and bumps
// UpdatedAt.
func (h *Habit) Apply(in HabitInput, now time.Time) {
	h.apply(in)
	h.UpdatedAt = now.UTC().Truncate(time.Millisecond)
}

func (h *Habit) apply(in HabitInput) {
	if in.Name != nil {
		h.Name = *in.Name
	}
	if in.Type != nil {
		h.Type = *in.Type
	}
	if in.Cycle != nil {
		h.Cycle = *in.Cycle
	}
	if in.Message != nil {
		h.Message = *in.Message
	}
}

// NewCompletion builds a ledger record for one calendar day.
func NewCompletion(userID, habitID, date string, now time.Time) Completion {
	return Completion{
		ID:        "completion_" + uuid.NewString(),
		UserID:    userID,
		HabitID:   habitID,
		Date:      date,
		CreatedAt: now.UTC().Truncate(time.Millisecond),
	}
}

func ptr[T any](v T) *T {
	return &v
}
