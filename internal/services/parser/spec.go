package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// maxSchemaErrors bounds how many schema violations are copied into a Failure.
const maxSchemaErrors = 5

// Definition describes one structured response shape
type Definition[T any] struct {
	Name string
	Kind Kind
	// Schema is a JSON Schema document expressed as Go values.
	Schema map[string]any
	// Prepare may reshape the extracted JSON before schema validation.
	Prepare func([]byte) ([]byte, error)
	// Check runs semantic rules on the decoded value.
	Check func(*T) error
}

// Spec is a compiled Definition
type Spec[T any] struct {
	def    Definition[T]
	schema *gojsonschema.Schema
}

// Compile loads the definition's schema.
func Compile[T any](def Definition[T]) (*Spec[T], error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.Schema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s schema: %w", def.Name, err)
	}
	return &Spec[T]{def: def, schema: schema}, nil
}

// MustCompile is Compile for package-level specs.
func MustCompile[T any](def Definition[T]) *Spec[T] {
	s, err := Compile(def)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the spec name used in failures and metrics.
func (s *Spec[T]) Name() string {
	return s.def.Name
}

// Parse turns raw generator output into a validated value. It never panics.
func (s *Spec[T]) Parse(raw string) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Fail[T](s.failure(ReasonPanic, fmt.Sprint(r)))
		}
	}()

	text := strings.TrimSpace(raw)
	if text == "" {
		return Fail[T](s.failure(ReasonEmpty, ""))
	}
	text = StripCodeFence(text)

	body, ok := ExtractJSON(text, s.def.Kind)
	if !ok {
		if loose, found := ExtractLoose(text, s.def.Kind); found {
			var probe any
			err := json.Unmarshal([]byte(loose), &probe)
			return Fail[T](s.failure(ReasonSyntax, errString(err)))
		}
		return Fail[T](s.failure(ReasonNoJSON, ""))
	}

	data := []byte(body)
	if s.def.Prepare != nil {
		prepared, err := s.def.Prepare(data)
		if err != nil {
			return Fail[T](s.failure(ReasonSchema, err.Error()))
		}
		data = prepared
	}

	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Fail[T](s.failure(ReasonSyntax, err.Error()))
	}
	if !result.Valid() {
		return Fail[T](s.failure(ReasonSchema, schemaErrors(result.Errors())))
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return Fail[T](s.failure(ReasonSyntax, err.Error()))
	}

	if s.def.Check != nil {
		if err := s.def.Check(&value); err != nil {
			return Fail[T](s.failure(ReasonSemantic, err.Error()))
		}
	}
	return Ok(value)
}

func (s *Spec[T]) failure(reason Reason, detail string) *Failure {
	return &Failure{Spec: s.def.Name, Reason: reason, Detail: detail}
}

func schemaErrors(errs []gojsonschema.ResultError) string {
	parts := make([]string, 0, maxSchemaErrors)
	for i, e := range errs {
		if i == maxSchemaErrors {
			parts = append(parts, fmt.Sprintf("and %d more", len(errs)-maxSchemaErrors))
			break
		}
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}

func errString(err error) string {
	if err == nil {
		return "unbalanced JSON"
	}
	return err.Error()
}
