package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Text is a string argument that also accepts JSON numbers, since models
// often send phone numbers and times unquoted. Null and blank mean absent.
type Text string

type textError struct {
	got string
}

func (e *textError) Error() string {
	return fmt.Sprintf("expected text but got %s", e.got)
}

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*t = Text(n.String())
		return nil
	}

	got := "an object"
	switch {
	case bytes.HasPrefix(b, []byte("[")):
		got = "a list"
	case bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		got = "a boolean"
	}
	return &textError{got: got}
}

func (t Text) String() string { return string(t) }

func (t Text) Empty() bool { return strings.TrimSpace(string(t)) == "" }

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

var phonePattern = regexp.MustCompile(`^\+?[0-9]{3,20}$`)

// normalizePhone strips separators so lookups and storage agree on one form.
func normalizePhone(s string) string {
	return phoneSeparators.Replace(strings.TrimSpace(s))
}

// optional maps "not provided" to nil.
func optional(v Text) *string {
	if v.Empty() {
		return nil
	}
	s := v.String()
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
