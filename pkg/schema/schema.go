// Package schema normalizes and validates entity input before it reaches the
// store. Rules come from struct tags:
//
//	validate:"..."   go-playground/validator rules
//	schema:"..."     comma separated options:
//	                 default=<v>     value used when the field is zero
//	                 emptynil        an empty string becomes nil
//	                 clamp=<lo>:<hi> numbers are bounded instead of rejected
//	                 maxitems=<n>    list fields hold at most n non-blank items
//	                 jsonschema=<n>  the field must satisfy a registered document
//	                 readonly        the field cannot be written by callers
//
// Every string is trimmed. Fields of the embedded models.Base are system
// managed and never accepted from input.
package schema

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

var (
	timeType  = reflect.TypeOf(time.Time{})
	valuerTyp = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

type field struct {
	index      []int
	name       string
	column     string
	typ        reflect.Type
	rules      string
	def        string
	hasDefault bool
	emptyNil   bool
	clamp      *[2]float64
	maxItems   int
	document   string
	readonly   bool
	system     bool
}

// Check is an entity level rule run after field validation.
type Check[T any] func(v *T, errs *apperrors.ValidationError)

// Schema validates and normalizes values of T.
type Schema[T any] struct {
	entity string
	fields []*field
	lookup map[string]*field
	checks []Check[T]
}

// New builds the schema for T. It panics on malformed tags since schemas are
// declared once at package init.
func New[T any](entity string, checks ...Check[T]) *Schema[T] {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("schema: %s is not a struct", t))
	}

	s := &Schema[T]{
		entity: entity,
		lookup: map[string]*field{},
		checks: checks,
	}
	s.collect(t, nil, false)
	return s
}

func (s *Schema[T]) collect(t reflect.Type, parent []int, system bool) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int{}, parent...), i)

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			// resolved inline: schemas are built during package var init
			s.collect(sf.Type, index, system || sf.Type == reflect.TypeOf(models.Base{}))
			continue
		}
		if !sf.IsExported() {
			continue
		}

		column := strings.SplitN(sf.Tag.Get("db"), ",", 2)[0]
		if column == "" || column == "-" {
			continue
		}
		name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = column
		}

		f := &field{
			index:  index,
			name:   name,
			column: column,
			typ:    sf.Type,
			rules:  sf.Tag.Get("validate"),
			system: system,
		}
		parseOptions(f, sf.Tag.Get("schema"))

		s.fields = append(s.fields, f)
		s.lookup[name] = f
		s.lookup[column] = f
	}
}

func parseOptions(f *field, tag string) {
	if tag == "" {
		return
	}
	for _, opt := range strings.Split(tag, ",") {
		key, value, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "default":
			f.def, f.hasDefault = value, true
		case "emptynil":
			f.emptyNil = true
		case "readonly":
			f.readonly = true
		case "jsonschema":
			f.document = value
		case "maxitems":
			n, err := strconv.Atoi(value)
			if err != nil {
				panic(fmt.Sprintf("schema: bad maxitems %q on %s", value, f.name))
			}
			f.maxItems = n
		case "clamp":
			lo, hi, ok := strings.Cut(value, ":")
			l, errLo := strconv.ParseFloat(lo, 64)
			h, errHi := strconv.ParseFloat(hi, 64)
			if !ok || errLo != nil || errHi != nil {
				panic(fmt.Sprintf("schema: bad clamp %q on %s", value, f.name))
			}
			f.clamp = &[2]float64{l, h}
		default:
			panic(fmt.Sprintf("schema: unknown option %q on %s", key, f.name))
		}
	}
}

// Entity is the name used in validation errors.
func (s *Schema[T]) Entity() string {
	return s.entity
}

// Columns lists every mapped column.
func (s *Schema[T]) Columns() []string {
	cols := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		cols = append(cols, f.column)
	}
	return cols
}

// Column resolves a json or column name to its column.
func (s *Schema[T]) Column(name string) (string, bool) {
	f, ok := s.lookup[name]
	if !ok {
		return "", false
	}
	return f.column, true
}

// Validate normalizes v and checks every rule, returning the normalized value.
// All violations are reported together.
func (s *Schema[T]) Validate(ctx context.Context, v T) (T, error) {
	errs := apperrors.NewValidationError(s.entity)
	rv := reflect.ValueOf(&v).Elem()

	for _, f := range s.fields {
		if f.system {
			continue
		}
		fv := rv.FieldByIndex(f.index)
		s.normalize(f, fv, errs)
		if f.document != "" {
			s.checkDocumentField(ctx, f, fv, errs)
		}
	}

	if err := validate.StructCtx(ctx, v); err != nil {
		addValidatorErrors(errs, err)
	}

	for _, check := range s.checks {
		check(&v, errs)
	}

	return v, errs.OrNil()
}

// ValidatePatch converts a partial update keyed by json or column name into
// typed, normalized column values. Unknown and system fields are rejected.
func (s *Schema[T]) ValidatePatch(ctx context.Context, patch map[string]any) (map[string]any, error) {
	errs := apperrors.NewValidationError(s.entity)
	out := make(map[string]any, len(patch))

	for _, key := range slices.Sorted(maps.Keys(patch)) {
		raw := patch[key]
		f, ok := s.lookup[key]
		switch {
		case !ok:
			errs.Add(key, "is not a recognised field")
			continue
		case f.system || f.readonly:
			errs.Add(f.name, "cannot be changed")
			continue
		}

		fv, ok := s.convert(ctx, f, raw, errs)
		if !ok {
			continue
		}
		s.normalize(f, fv, errs)

		if f.rules != "" {
			if err := validate.VarCtx(ctx, fv.Interface(), f.rules); err != nil {
				addVarErrors(errs, f.name, err)
				continue
			}
		}
		out[f.column] = columnValue(fv)
	}

	return out, errs.OrNil()
}

// FilterValues converts equality filter values to the column types they are
// compared with. Nil entries are skipped.
func (s *Schema[T]) FilterValues(ctx context.Context, filters map[string]any) (map[string]any, error) {
	errs := apperrors.NewValidationError(s.entity)
	out := make(map[string]any, len(filters))

	for _, key := range slices.Sorted(maps.Keys(filters)) {
		raw := filters[key]
		if raw == nil {
			continue
		}
		f, ok := s.lookup[key]
		if !ok {
			errs.Add(key, "is not a recognised field")
			continue
		}
		fv, ok := s.convert(ctx, f, raw, errs)
		if !ok {
			continue
		}
		out[f.column] = columnValue(fv)
	}

	return out, errs.OrNil()
}

// Decode builds a T from loosely typed input such as a decoded JSON body and
// validates it. System and read-only fields in input are ignored.
func (s *Schema[T]) Decode(ctx context.Context, input map[string]any) (T, error) {
	var v T
	errs := apperrors.NewValidationError(s.entity)
	rv := reflect.ValueOf(&v).Elem()

	for _, key := range slices.Sorted(maps.Keys(input)) {
		raw := input[key]
		f, ok := s.lookup[key]
		if !ok {
			errs.Add(key, "is not a recognised field")
			continue
		}
		if f.system || f.readonly {
			continue
		}
		fv, ok := s.convert(ctx, f, raw, errs)
		if !ok {
			continue
		}
		rv.FieldByIndex(f.index).Set(fv)
	}

	v, err := s.Validate(ctx, v)
	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		for _, fe := range verr.Fields {
			if !errs.HasField(fe.Field) {
				errs.Fields = append(errs.Fields, fe)
			}
		}
	}
	return v, errs.OrNil()
}

func (s *Schema[T]) convert(ctx context.Context, f *field, raw any, errs *apperrors.ValidationError) (reflect.Value, bool) {
	fv := reflect.New(f.typ).Elem()

	if raw == nil {
		if f.typ.Kind() == reflect.Ptr || f.typ.Kind() == reflect.Slice || f.typ.Kind() == reflect.Map {
			return fv, true
		}
		if f.hasDefault {
			return fv, true
		}
		errs.Add(f.name, "must not be null")
		return fv, false
	}

	if s, ok := raw.(string); ok && isTime(f.typ) {
		t, err := ParseDate(s)
		if err != nil {
			errs.Add(f.name, "must be a valid date: %v", err)
			return fv, false
		}
		if f.typ.Kind() == reflect.Ptr {
			fv.Set(reflect.ValueOf(&t))
		} else {
			fv.Set(reflect.ValueOf(t))
		}
		return fv, true
	}

	var encoded []byte
	if str, ok := raw.(string); ok && isScalar(f.typ) {
		encoded = []byte(strings.TrimSpace(str))
	} else if str, ok := raw.(string); ok && isDocument(f.typ) {
		if !json.Valid([]byte(str)) {
			var v any
			err := json.Unmarshal([]byte(str), &v)
			errs.Add(f.name, "must be valid JSON: %v", err)
			return fv, false
		}
		encoded = []byte(str)
	} else {
		b, err := json.Marshal(raw)
		if err != nil {
			errs.Add(f.name, "has an unsupported value")
			return fv, false
		}
		encoded = b
	}

	if f.document != "" {
		messages, err := checkDocument(ctx, f.document, encoded)
		if err != nil {
			errs.Add(f.name, "%v", err)
			return fv, false
		}
		for _, m := range messages {
			errs.Add(f.name, "%s", m)
		}
		if len(messages) > 0 {
			return fv, false
		}
	}

	if err := json.Unmarshal(encoded, fv.Addr().Interface()); err != nil {
		errs.Add(f.name, "must be %s", describe(f.typ))
		return fv, false
	}
	return fv, true
}

func (s *Schema[T]) normalize(f *field, fv reflect.Value, errs *apperrors.ValidationError) {
	switch {
	case fv.Kind() == reflect.String:
		fv.SetString(strings.TrimSpace(fv.String()))
	case fv.Kind() == reflect.Ptr && fv.Type().Elem().Kind() == reflect.String && !fv.IsNil():
		trimmed := strings.TrimSpace(fv.Elem().String())
		if trimmed == "" && f.emptyNil {
			fv.Set(reflect.Zero(fv.Type()))
		} else {
			fv.Elem().SetString(trimmed)
		}
	}

	if f.hasDefault && fv.IsZero() {
		if err := setFromString(fv, f.def); err != nil {
			panic(fmt.Sprintf("schema: default %q for %s: %v", f.def, f.name, err))
		}
	}

	if f.clamp != nil {
		switch fv.Kind() {
		case reflect.Int, reflect.Int32, reflect.Int64:
			fv.SetInt(int64(Clamp(float64(fv.Int()), f.clamp[0], f.clamp[1])))
		case reflect.Float32, reflect.Float64:
			fv.SetFloat(Clamp(fv.Float(), f.clamp[0], f.clamp[1]))
		}
	}

	if list, ok := stringList(fv); ok {
		kept := make([]string, 0, list.Len())
		for i := 0; i < list.Len(); i++ {
			if item := strings.TrimSpace(list.Index(i).String()); item != "" {
				kept = append(kept, item)
			}
		}
		list.Set(reflect.ValueOf(kept).Convert(list.Type()))
		if f.maxItems > 0 && len(kept) > f.maxItems {
			errs.Add(f.name, "must have at most %d items", f.maxItems)
		}
	}
}

func (s *Schema[T]) checkDocumentField(ctx context.Context, f *field, fv reflect.Value, errs *apperrors.ValidationError) {
	encoded, err := json.Marshal(fv.Interface())
	if err != nil {
		errs.Add(f.name, "has an unsupported value")
		return
	}
	messages, err := checkDocument(ctx, f.document, encoded)
	if err != nil {
		errs.Add(f.name, "%v", err)
		return
	}
	for _, m := range messages {
		errs.Add(f.name, "%s", m)
	}
}

// stringList finds a []string directly or inside a JSONB wrapper.
func stringList(fv reflect.Value) (reflect.Value, bool) {
	if fv.Kind() == reflect.Struct {
		if data := fv.FieldByName("Data"); data.IsValid() {
			fv = data
		}
	}
	if fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() == reflect.String && fv.CanSet() {
		return fv, true
	}
	return reflect.Value{}, false
}

func setFromString(fv reflect.Value, s string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(s)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		fv.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	default:
		return fmt.Errorf("unsupported kind %s", fv.Kind())
	}
	return nil
}

// columnValue unwraps a converted field into something a driver can bind.
func columnValue(fv reflect.Value) any {
	if fv.Kind() == reflect.Ptr && fv.IsNil() {
		return nil
	}
	if fv.Type().Implements(valuerTyp) {
		return fv.Interface()
	}
	if fv.Kind() == reflect.Ptr {
		return fv.Elem().Interface()
	}
	return fv.Interface()
}

func isTime(t reflect.Type) bool {
	return t == timeType || (t.Kind() == reflect.Ptr && t.Elem() == timeType)
}

// isScalar reports whether text input should be read as a JSON literal.
func isScalar(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int32, reflect.Int64, reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isDocument(t reflect.Type) bool {
	if t.Kind() == reflect.Struct {
		_, ok := t.FieldByName("Data")
		return ok && t.Implements(valuerTyp)
	}
	return false
}

func describe(t reflect.Type) string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if isDocument(t) {
		return "a valid JSON document"
	}
	switch {
	case t.Kind() == reflect.String:
		return "a string"
	case t.Kind() >= reflect.Int && t.Kind() <= reflect.Float64:
		return "a number"
	case t.Kind() == reflect.Bool:
		return "true or false"
	case t.Kind() == reflect.Array:
		return "a valid identifier"
	case t.Kind() == reflect.Slice:
		return "a list"
	default:
		return "a valid " + strings.ToLower(t.Name())
	}
}
