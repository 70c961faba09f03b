// Package validate turns raw request bodies and path parameters into typed,
// checked inputs. Business logic only ever sees values that passed through here.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"

	"github.com/pavelanni/mcqengine/internal/apperr"
)

var (
	identTag  = "ident"
	identText = "{0} must be 1-128 printable characters"

	requiredTag  = "required"
	requiredText = "{0} is required"
)

// Validator wraps a configured go-playground validator and its English translator.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New returns a Validator with JSON field names and the custom ident rule.
func New() *Validator {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(identTag, func(fl validator.FieldLevel) bool {
		return validIdent(fl.Field().String())
	})
	registerTranslation(v, trans, identTag, identText, false)
	registerTranslation(v, trans, requiredTag, requiredText, true)

	return &Validator{validate: v, trans: trans}
}

func registerTranslation(v *validator.Validate, trans ut.Translator, tag, text string, override bool) {
	_ = v.RegisterTranslation(
		tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

type normalizer interface {
	normalize()
}

// Decode reads a JSON body into T, normalizes it and runs the struct rules.
// An empty body decodes as an empty object. All failures are validation errors.
func Decode[T any](v *Validator, r io.Reader) (T, error) {
	var in T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		return in, apperr.Validation("malformed request body: %v", err)
	}
	if n, ok := any(&in).(normalizer); ok {
		n.normalize()
	}
	if err := v.Struct(in); err != nil {
		return in, err
	}
	return in, nil
}

// Struct validates s and converts rule failures into a field-level validation error.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("%v", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fe.Translate(v.trans)
	}
	return apperr.ValidationFields(fields)
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Ident checks a path identifier such as an institution, faculty or student id.
func Ident(name, raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !validIdent(s) {
		return "", apperr.InvalidIdentifier("invalid %s %q", name, raw)
	}
	return s, nil
}

// MaxIdentLen is the longest identifier accepted, in characters.
const MaxIdentLen = 128

// validIdent accepts 1 to MaxIdentLen printable characters. Email-style and
// slash-separated enrollment numbers pass; control characters do not.
func validIdent(s string) bool {
	if s == "" || !utf8.ValidString(s) || utf8.RuneCountInString(s) > MaxIdentLen {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// TestID checks that raw is a canonical test id.
func TestID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", apperr.InvalidIdentifier("invalid test id %q", raw)
	}
	return id.String(), nil
}

// IDList is a list of identifiers. JSON numbers are accepted and kept as
// their decimal text; surrounding space is trimmed and blank entries dropped.
type IDList []string

func (l *IDList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("identifier list: %w", err)
	}
	out := make(IDList, 0, len(raw))
	for _, item := range raw {
		var s string
		switch x := item.(type) {
		case string:
			s = strings.TrimSpace(x)
		case json.Number:
			s = x.String()
		case nil:
			continue
		default:
			return fmt.Errorf("identifier list: unsupported element %v", x)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// NoAnswer marks an answer entry that could not be read as an option index.
// It never equals a correct index.
const NoAnswer = -1

// AnswerList is an ordered answer vector. Entries that are not integers
// become NoAnswer instead of failing the request.
type AnswerList []int

func (a *AnswerList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("answers: %w", err)
	}
	if raw == nil {
		*a = nil
		return nil
	}
	out := make(AnswerList, 0, len(raw))
	for _, item := range raw {
		out = append(out, answerIndex(item))
	}
	*a = out
	return nil
}

func answerIndex(item any) int {
	var n json.Number
	switch x := item.(type) {
	case json.Number:
		n = x
	case string:
		n = json.Number(strings.TrimSpace(x))
	default:
		return NoAnswer
	}
	if i, err := n.Int64(); err == nil {
		return clampIndex(i)
	}
	f, err := n.Float64()
	if err != nil || f != float64(int64(f)) {
		return NoAnswer
	}
	return clampIndex(int64(f))
}

func clampIndex(i int64) int {
	if i < 0 || i > math.MaxInt32 {
		return NoAnswer
	}
	return int(i)
}
