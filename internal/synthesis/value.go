package synthesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the JSON shape a response field arrived in.
type Kind int

const (
	KindAbsent Kind = iota
	KindNull
	KindString
	KindBool
	KindNumber
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is one loosely-typed response field. The zero Value is absent.
type Value struct {
	Kind   Kind
	Str    string
	Bool   bool
	Num    json.Number
	List   []Value
	Object map[string]Value

	raw []byte
}

// UnmarshalJSON records the shape of data and decodes it accordingly.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("synthesis: empty value")
	}
	*v = Value{raw: append([]byte(nil), data...)}

	switch data[0] {
	case 'n':
		v.Kind = KindNull
		return nil
	case '"':
		v.Kind = KindString
		return json.Unmarshal(data, &v.Str)
	case 't', 'f':
		v.Kind = KindBool
		return json.Unmarshal(data, &v.Bool)
	case '[':
		v.Kind = KindList
		return json.Unmarshal(data, &v.List)
	case '{':
		v.Kind = KindObject
		return json.Unmarshal(data, &v.Object)
	default:
		v.Kind = KindNumber
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		return dec.Decode(&v.Num)
	}
}

// Text renders v as display text: strings verbatim, numbers as written,
// booleans as true/false, null and absent as "", and lists or objects as
// compact JSON.
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return v.Num.String()
	case KindList, KindObject:
		var buf bytes.Buffer
		if err := json.Compact(&buf, v.raw); err != nil {
			return string(v.raw)
		}
		return buf.String()
	default:
		return ""
	}
}

// Missing reports whether v carries no usable value.
func (v Value) Missing() bool {
	return v.Kind == KindAbsent || v.Kind == KindNull
}

// scalar returns a string field, falling back to def when missing.
func scalar(v Value, def string) string {
	if v.Missing() {
		return def
	}
	return v.Text()
}

// joinLines flattens a list into newline separated text.
func joinLines(v Value) string {
	if v.Kind != KindList {
		return scalar(v, "")
	}
	parts := make([]string, len(v.List))
	for i, item := range v.List {
		parts[i] = item.Text()
	}
	return strings.Join(parts, "\n")
}

// details renders a list whose items are either plain text or heading/content
// records. Records become "### heading" subsections; items are separated by a
// blank line.
func details(v Value) string {
	if v.Kind != KindList {
		return scalar(v, "")
	}
	parts := make([]string, len(v.List))
	for i, item := range v.List {
		parts[i] = detailItem(item)
	}
	return strings.Join(parts, "\n\n")
}

func detailItem(item Value) string {
	if item.Kind == KindObject {
		heading, hasHeading := item.Object["heading"]
		content, hasContent := item.Object["content"]
		if hasHeading && hasContent {
			return "### " + heading.Text() + "\n\n" + content.Text()
		}
	}
	return item.Text()
}

// stringList coerces v to an ordered list of non-blank strings. A bare string
// becomes a one-item list.
func stringList(v Value) []string {
	out := []string{}
	switch v.Kind {
	case KindList:
		for _, item := range v.List {
			if s := item.Text(); strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
	case KindAbsent, KindNull:
	default:
		if s := v.Text(); strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// flag coerces v to "true" or "false".
func flag(v Value) string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.Str)) {
		case "true", "yes", "y", "1":
			return "true"
		}
	case KindNumber:
		if f, err := v.Num.Float64(); err == nil && f != 0 {
			return "true"
		}
	}
	return "false"
}
