package nv

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// The text form of a list is a typed document, shared by JSON and YAML:
//
//	{"flags": ["case_insensitive"],
//	 "entries": [{"name": "answer", "type": "number", "value": 42},
//	             {"name": "nothing", "type": "null"}]}
//
// Binary values are base64 (standard encoding) strings and nested lists
// are documents.  Numbers keep full uint64 precision.

const (
	flagNameCaseInsensitive = "case_insensitive"
	flagNameAllowDuplicates = "allow_duplicates"
)

type document struct {
	Flags   []string        `json:"flags,omitempty" yaml:"flags,omitempty"`
	Entries []documentEntry `json:"entries" yaml:"entries"`
}

type documentEntry struct {
	Name  string `json:"name" yaml:"name"`
	Type  string `json:"type" yaml:"type"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}

func toDocument(l *NvList) *document {
	doc := &document{Entries: make([]documentEntry, 0, len(l.entries))}
	if l.flags&CaseInsensitive != 0 {
		doc.Flags = append(doc.Flags, flagNameCaseInsensitive)
	}
	if l.flags&AllowDuplicates != 0 {
		doc.Flags = append(doc.Flags, flagNameAllowDuplicates)
	}
	for _, e := range l.entries {
		de := documentEntry{Name: e.name, Type: e.value.Type().String()}
		switch v := e.value.(type) {
		case Null:
		case Bool:
			de.Value = bool(v)
		case Number:
			de.Value = uint64(v)
		case String:
			de.Value = string(v)
		case Descriptor:
			de.Value = int(v)
		case Binary:
			de.Value = base64.StdEncoding.EncodeToString(v)
		case *NvList:
			de.Value = toDocument(v)
		case BoolArray:
			de.Value = []bool(v)
		case NumberArray:
			de.Value = []uint64(v)
		case StringArray:
			de.Value = []string(v)
		case DescriptorArray:
			de.Value = []int(v)
		case NvListArray:
			docs := make([]*document, len(v))
			for i, c := range v {
				docs[i] = toDocument(c)
			}
			de.Value = docs
		}
		doc.Entries = append(doc.Entries, de)
	}
	return doc
}

// MarshalJSON implements json.Marshaler.
func (l *NvList) MarshalJSON() ([]byte, error) {
	if err := l.Err(); err != nil {
		return nil, err
	}
	return json.Marshal(toDocument(l))
}

// UnmarshalJSON implements json.Unmarshaler.  l is replaced only when
// the whole document is valid.
func (l *NvList) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return newErr(ErrDocument, "JSON parse error: "+err.Error())
	}
	if _, err := dec.Token(); err != io.EOF {
		return newErr(ErrDocument, "trailing JSON content")
	}
	built, err := buildList(raw, 0)
	if err != nil {
		return err
	}
	*l = *built
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (l *NvList) MarshalYAML() (any, error) {
	if err := l.Err(); err != nil {
		return nil, err
	}
	return toDocument(l), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *NvList) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return newErr(ErrDocument, "YAML decode error: "+err.Error())
	}
	built, err := buildList(raw, 0)
	if err != nil {
		return err
	}
	*l = *built
	return nil
}

// buildList converts a generically decoded document (JSON with
// UseNumber, or YAML) into a list.  Entries go through the regular Add
// path, so name and duplicate rules apply.
func buildList(raw any, depth int) (*NvList, error) {
	if depth+1 > MaxDepth {
		return nil, newErr(ErrLimitDepth, "document nesting exceeds MaxDepth")
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, newErr(ErrDocument, "list document must be an object")
	}

	var flags Flags
	if rf, present := m["flags"]; present && rf != nil {
		names, ok := rf.([]any)
		if !ok {
			return nil, newErr(ErrDocument, "flags must be an array")
		}
		for _, n := range names {
			switch n {
			case flagNameCaseInsensitive:
				flags |= CaseInsensitive
			case flagNameAllowDuplicates:
				flags |= AllowDuplicates
			default:
				return nil, newErr(ErrDocument, fmt.Sprintf("unknown flag %v", n))
			}
		}
	}
	l := MustNew(flags)

	rawEntries, _ := m["entries"].([]any)
	if m["entries"] != nil && rawEntries == nil {
		return nil, newErr(ErrDocument, "entries must be an array")
	}
	for i, re := range rawEntries {
		em, ok := re.(map[string]any)
		if !ok {
			return nil, newErr(ErrDocument, fmt.Sprintf("entry %d must be an object", i))
		}
		name, ok := em["name"].(string)
		if !ok {
			return nil, newErr(ErrDocument, fmt.Sprintf("entry %d: name must be a string", i))
		}
		typeName, _ := em["type"].(string)
		t, ok := ParseType(typeName)
		if !ok {
			return nil, newErr(ErrDocument, fmt.Sprintf("entry %q: unknown type %q", name, typeName))
		}
		v, err := documentValue(t, em["value"], depth)
		if err != nil {
			var e *Error
			if errors.As(err, &e) {
				return nil, err
			}
			return nil, newErr(ErrDocument, fmt.Sprintf("entry %q: %v", name, err))
		}
		l.Add(name, v)
		if err := l.Err(); err != nil {
			return nil, newErr(ErrDocument, fmt.Sprintf("entry %q: %v", name, err))
		}
	}
	return l, nil
}

func documentValue(t Type, raw any, depth int) (Value, error) {
	switch t {
	case TypeNull:
		return Null{}, nil
	case TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("want bool, got %T", raw)
		}
		return Bool(b), nil
	case TypeNumber:
		n, err := toUint64(raw)
		return Number(n), err
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", raw)
		}
		return String(s), nil
	case TypeDescriptor:
		fd, err := toInt(raw)
		return Descriptor(fd), err
	case TypeBinary:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("want base64 string, got %T", raw)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, err
		}
		return Binary(b), nil
	case TypeNvList:
		return buildList(raw, depth+1)
	}

	// Arrays, like scalars, need a value; an empty array is written as [].
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("want array, got %T", raw)
	}
	switch t {
	case TypeBoolArray:
		arr := make(BoolArray, len(items))
		for i, it := range items {
			b, ok := it.(bool)
			if !ok {
				return nil, fmt.Errorf("element %d: want bool, got %T", i, it)
			}
			arr[i] = b
		}
		return arr, nil
	case TypeNumberArray:
		arr := make(NumberArray, len(items))
		for i, it := range items {
			n, err := toUint64(it)
			if err != nil {
				return nil, fmt.Errorf("element %d: %v", i, err)
			}
			arr[i] = n
		}
		return arr, nil
	case TypeStringArray:
		arr := make(StringArray, len(items))
		for i, it := range items {
			s, ok := it.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: want string, got %T", i, it)
			}
			arr[i] = s
		}
		return arr, nil
	case TypeDescriptorArray:
		arr := make(DescriptorArray, len(items))
		for i, it := range items {
			fd, err := toInt(it)
			if err != nil {
				return nil, fmt.Errorf("element %d: %v", i, err)
			}
			arr[i] = fd
		}
		return arr, nil
	case TypeNvListArray:
		arr := make(NvListArray, len(items))
		for i, it := range items {
			c, err := buildList(it, depth+1)
			if err != nil {
				return nil, err
			}
			arr[i] = c
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unsupported type %s", t)
}

// toUint64 accepts the integer representations produced by encoding/json
// (json.Number) and yaml.v3 (int, uint64).
func toUint64(raw any) (uint64, error) {
	switch n := raw.(type) {
	case json.Number:
		return strconv.ParseUint(n.String(), 10, 64)
	case int:
		if n < 0 {
			return 0, fmt.Errorf("negative number %d", n)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	}
	return 0, fmt.Errorf("want unsigned integer, got %T", raw)
}

func toInt(raw any) (int, error) {
	switch n := raw.(type) {
	case json.Number:
		v, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return 0, err
		}
		if v < math.MinInt || v > math.MaxInt {
			return 0, fmt.Errorf("descriptor %d out of range", v)
		}
		return int(v), nil
	case int:
		return n, nil
	}
	return 0, fmt.Errorf("want integer, got %T", raw)
}
