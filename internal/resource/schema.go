// Package resource describes the seven backend resources (their forms,
// filters, columns, statistics and export layout) and drives one list page
// per resource through a Controller.
package resource

import (
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"

	"github.com/sadopc/portdesk/internal/api"
)

type Kind int

const (
	KindText Kind = iota
	KindTextarea
	KindEmail
	KindNumber
	KindInteger
	KindDate
	KindSelect
	KindRef
)

// WireDate is the date layout sent to the backend.
const WireDate = "2006-01-02"

type Option struct {
	Value string
	Label string
}

// Field is one form field. Rules is a validator tag applied to the parsed
// value; Messages overrides the message of a failing tag. The pseudo tags
// "required", "number", "date" and "option" cover checks made before the
// rules run.
type Field struct {
	Key         string
	Label       string
	Kind        Kind
	Required    bool
	Rules       string
	Messages    map[string]string
	Options     []Option
	Aliases     map[string]string
	RefResource string
	RefLabel    string
	Default     string
	Placeholder string
}

// Canonical maps an input value through the field's aliases.
func (f Field) Canonical(v string) string {
	if to, ok := f.Aliases[v]; ok {
		return to
	}
	return v
}

// OptionLabel returns the label of value, or value itself.
func (f Field) OptionLabel(value string) string {
	for _, o := range f.Options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

func (f Field) message(tag, fallback string) string {
	if m, ok := f.Messages[tag]; ok {
		return m
	}
	return fallback
}

// CrossCheck validates relations between already parsed fields. It adds to
// errs for any violation.
type CrossCheck func(rec api.Record, errs ValidationErrors)

type Schema struct {
	Fields []Field
	Checks []CrossCheck
}

// Field returns the field named key.
func (s Schema) Field(key string) (Field, bool) {
	i := slices.IndexFunc(s.Fields, func(f Field) bool { return f.Key == key })
	if i < 0 {
		return Field{}, false
	}
	return s.Fields[i], true
}

// ValidationErrors maps a field key to its message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + v[k]
	}
	return strings.Join(parts, "; ")
}

var (
	validate     = newValidator()
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("mail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidEmail applies the same rule as KindEmail fields.
func ValidEmail(s string) bool {
	return validate.Var(strings.TrimSpace(s), "mail") == nil
}

// Validate checks form and builds the wire record. Values are trimmed, run
// through aliases, and parsed by kind: numbers become float64 and dates
// YYYY-MM-DD. Empty optional values are left out of the record. The error
// map is nil when the form is valid.
func (s Schema) Validate(form map[string]string) (api.Record, ValidationErrors) {
	rec := api.Record{}
	errs := ValidationErrors{}
	for _, f := range s.Fields {
		raw := f.Canonical(strings.TrimSpace(form[f.Key]))
		if raw == "" {
			if f.Required {
				errs[f.Key] = f.message("required", "Este campo es requerido")
			}
			continue
		}
		v, msg := f.parse(raw)
		if msg != "" {
			errs[f.Key] = msg
			continue
		}
		if msg := f.check(v); msg != "" {
			errs[f.Key] = msg
			continue
		}
		rec[f.Key] = v
	}
	for _, c := range s.Checks {
		c(rec, errs)
	}
	if len(errs) == 0 {
		return rec, nil
	}
	return rec, errs
}

func (f Field) parse(raw string) (any, string) {
	switch f.Kind {
	case KindNumber, KindInteger:
		n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return nil, f.message("number", "Debe ser un número")
		}
		if f.Kind == KindInteger && n != float64(int64(n)) {
			return nil, f.message("number", "Debe ser un número entero")
		}
		return n, ""
	case KindDate:
		d, ok := NormalizeDate(raw)
		if !ok {
			return nil, f.message("date", "Fecha inválida (AAAA-MM-DD)")
		}
		return d, ""
	case KindSelect:
		if !slices.ContainsFunc(f.Options, func(o Option) bool { return o.Value == raw }) {
			return nil, f.message("option", "Opción inválida")
		}
		return raw, ""
	default:
		return raw, ""
	}
}

func (f Field) check(v any) string {
	tag := f.Rules
	if f.Kind == KindEmail {
		tag = joinTags(tag, "mail")
	}
	if tag == "" {
		return ""
	}
	err := validate.Var(v, tag)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return f.message(fe.Tag(), defaultMessage(f, fe))
}

func joinTags(a, b string) string {
	if a == "" {
		return b
	}
	return a + "," + b
}

func defaultMessage(f Field, fe validator.FieldError) string {
	numeric := f.Kind == KindNumber || f.Kind == KindInteger
	switch fe.Tag() {
	case "mail", "email":
		return "Email inválido"
	case "min", "gte":
		if numeric {
			return "Valor mínimo: " + fe.Param()
		}
		return "Mínimo " + fe.Param() + " caracteres"
	case "max", "lte":
		if numeric {
			return "Valor máximo: " + fe.Param()
		}
		return "Máximo " + fe.Param() + " caracteres"
	default:
		return "Formato inválido"
	}
}

var dateLayouts = []string{WireDate, "02/01/2006", time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"}

// NormalizeDate reads YYYY-MM-DD, DD/MM/YYYY or RFC3339 and returns
// YYYY-MM-DD.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.Format(WireDate), true
		}
	}
	return "", false
}

// Normalize rewrites aliased select values of a decoded record in place.
func (s Schema) Normalize(rec api.Record) api.Record {
	for _, f := range s.Fields {
		if len(f.Aliases) == 0 {
			continue
		}
		if v, ok := rec[f.Key].(string); ok {
			rec[f.Key] = f.Canonical(v)
		}
	}
	return rec
}

// FormValues turns a record into form input for editing.
func (s Schema) FormValues(rec api.Record) map[string]string {
	form := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		switch f.Kind {
		case KindRef:
			form[f.Key] = rec.Ref(f.Key)
		case KindDate:
			raw := rec.String(f.Key)
			if d, ok := NormalizeDate(raw); ok {
				raw = d
			}
			form[f.Key] = raw
		default:
			form[f.Key] = f.Canonical(rec.String(f.Key))
		}
	}
	return form
}

// Defaults returns an empty form with default values filled in.
func (s Schema) Defaults() map[string]string {
	form := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		form[f.Key] = f.Default
	}
	return form
}

// notBefore reports an error on later when it precedes earlier. Both are
// YYYY-MM-DD so they compare as strings.
func notBefore(earlier, later, msg string) CrossCheck {
	return func(rec api.Record, errs ValidationErrors) {
		a, _ := rec[earlier].(string)
		b, _ := rec[later].(string)
		if a == "" || b == "" {
			return
		}
		if b < a {
			errs[later] = msg
		}
	}
}
