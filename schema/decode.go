package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

type fieldType int

const (
	typeInt fieldType = iota
	typeString
	typeEmail
	typeObject
)

func (t fieldType) String() string {
	switch t {
	case typeInt:
		return "number"
	case typeObject:
		return "object"
	default:
		return "string"
	}
}

// field describes one expected property of a JSON object.
type field struct {
	name     string
	typ      fieldType
	fields   []field
	optional bool
}

var (
	postShape = []field{
		{name: "id", typ: typeInt},
		{name: "title", typ: typeString},
		{name: "body", typ: typeString},
		{name: "userId", typ: typeInt},
	}

	postPatchShape = []field{
		{name: "id", typ: typeInt},
		{name: "title", typ: typeString, optional: true},
		{name: "body", typ: typeString, optional: true},
		{name: "userId", typ: typeInt, optional: true},
	}

	userShape = []field{
		{name: "id", typ: typeInt},
		{name: "name", typ: typeString},
		{name: "username", typ: typeString},
		{name: "email", typ: typeEmail},
		{name: "phone", typ: typeString},
		{name: "website", typ: typeString},
		{name: "company", typ: typeObject, fields: []field{
			{name: "name", typ: typeString},
			{name: "catchPhrase", typ: typeString},
			{name: "bs", typ: typeString},
		}},
	}

	commentShape = []field{
		{name: "id", typ: typeInt},
		{name: "postId", typ: typeInt},
		{name: "name", typ: typeString},
		{name: "email", typ: typeEmail},
		{name: "body", typ: typeString},
	}
)

// DecodePost validates raw as a single post.
func DecodePost(raw json.RawMessage) (Post, error) {
	return decodeOne[Post]("post", postShape, raw)
}

// DecodePosts validates raw as a list of posts.
func DecodePosts(raw json.RawMessage) ([]Post, error) {
	return decodeList[Post]("post", postShape, raw)
}

// DecodePostPatch validates the partial echo returned by an update. Only the
// id is required; fields that are present must have the right type.
func DecodePostPatch(raw json.RawMessage) (Post, error) {
	return decodeOne[Post]("post", postPatchShape, raw)
}

// DecodeUser validates raw as a single user.
func DecodeUser(raw json.RawMessage) (User, error) {
	return decodeOne[User]("user", userShape, raw)
}

// DecodeUsers validates raw as a list of users.
func DecodeUsers(raw json.RawMessage) ([]User, error) {
	return decodeList[User]("user", userShape, raw)
}

// DecodeComment validates raw as a single comment.
func DecodeComment(raw json.RawMessage) (Comment, error) {
	return decodeOne[Comment]("comment", commentShape, raw)
}

// DecodeComments validates raw as a list of comments.
func DecodeComments(raw json.RawMessage) ([]Comment, error) {
	return decodeList[Comment]("comment", commentShape, raw)
}

func decodeOne[T any](entity string, shape []field, raw json.RawMessage) (T, error) {
	var out T
	var issues []Issue
	checkObject("", raw, shape, &issues)
	if err := newIssues(entity, issues, false); err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, errors.Wrapf(err, "decode %s", entity)
	}
	return out, nil
}

func decodeList[T any](entity string, shape []field, raw json.RawMessage) ([]T, error) {
	if jsonKind(raw) != "array" {
		return nil, newIssues(entity, []Issue{{Message: "expected array, got " + jsonKind(raw)}}, false)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrapf(err, "decode %s list", entity)
	}
	var issues []Issue
	for i, item := range items {
		checkObject(fmt.Sprintf("[%d]", i), item, shape, &issues)
	}
	if err := newIssues(entity, issues, false); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrapf(err, "decode %s list", entity)
	}
	return out, nil
}

func checkObject(path string, raw json.RawMessage, shape []field, issues *[]Issue) {
	if k := jsonKind(raw); k != "object" {
		*issues = append(*issues, Issue{Field: path, Message: "expected object, got " + k})
		return
	}
	var props map[string]json.RawMessage
	if err := json.Unmarshal(raw, &props); err != nil {
		*issues = append(*issues, Issue{Field: path, Message: "malformed object"})
		return
	}
	for _, f := range shape {
		name := joinPath(path, f.name)
		v, ok := props[f.name]
		if !ok {
			if !f.optional {
				*issues = append(*issues, Issue{Field: name, Message: "required"})
			}
			continue
		}
		checkValue(name, v, f, issues)
	}
}

func checkValue(name string, v json.RawMessage, f field, issues *[]Issue) {
	got := jsonKind(v)
	switch f.typ {
	case typeInt:
		if got != "number" {
			*issues = append(*issues, Issue{Field: name, Message: "expected number, got " + got})
			return
		}
		if _, err := strconv.ParseInt(string(bytes.TrimSpace(v)), 10, 64); err != nil {
			*issues = append(*issues, Issue{Field: name, Message: "expected integer"})
		}
	case typeString, typeEmail:
		if got != "string" {
			*issues = append(*issues, Issue{Field: name, Message: "expected string, got " + got})
			return
		}
		if f.typ == typeEmail {
			var s string
			_ = json.Unmarshal(v, &s)
			if !ValidEmail(s) {
				*issues = append(*issues, Issue{Field: name, Message: "not a valid email address"})
			}
		}
	case typeObject:
		checkObject(name, v, f.fields, issues)
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// jsonKind names the JSON type of raw by its first significant byte.
func jsonKind(raw json.RawMessage) string {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return "nothing"
	}
	switch c := b[0]; {
	case c == '{':
		return "object"
	case c == '[':
		return "array"
	case c == '"':
		return "string"
	case c == 't' || c == 'f':
		return "boolean"
	case c == 'n':
		return "null"
	case c == '-' || (c >= '0' && c <= '9'):
		return "number"
	default:
		return "invalid"
	}
}

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9_'+\-.]*[A-Za-z0-9_+\-]@([A-Za-z0-9][A-Za-z0-9\-]*\.)+[A-Za-z]{2,}$`)

// ValidEmail reports whether s looks like a deliverable email address.
func ValidEmail(s string) bool {
	if s == "" || strings.HasPrefix(s, ".") || strings.Contains(s, "..") {
		return false
	}
	return emailPattern.MatchString(s)
}
