package tool

import (
	"errors"
	"reflect"

	"github.com/casualjim/chatstream/pkg/stdx"
	"github.com/fogfish/opts"
	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrNoName is returned when a tool has no name and none can be derived.
var ErrNoName = errors.New("tool name is required")

// Definition is a function exposed to the model.
type Definition struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

var parameterReflector = jsonschema.Reflector{
	AllowAdditionalProperties: true,
	DoNotReference:            true,
}

// Option configures a Definition.
type Option = opts.Option[Definition]

var (
	Name        = opts.ForName[Definition, string]("Name")
	Description = opts.ForName[Definition, string]("Description")
)

// New builds a Definition whose arguments are described by the struct P.
// Without a Name option the type name of P is used.
func New[P any](options ...Option) (Definition, error) {
	typ := reflect.TypeFor[P]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return Definition{}, errors.New("tool parameters must be a struct")
	}

	def := Definition{Parameters: reflectParameters(typ)}
	if err := opts.Apply(&def, options); err != nil {
		return Definition{}, err
	}
	if def.Name == "" {
		def.Name = typ.Name()
	}
	if def.Name == "" {
		return Definition{}, ErrNoName
	}
	return def, nil
}

// Must is New that panics on error.
func Must[P any](options ...Option) Definition {
	return stdx.Must1(New[P](options...))
}

// SchemaFor reflects the JSON schema of T, inlined and without $schema or $id.
func SchemaFor[T any]() *jsonschema.Schema {
	typ := reflect.TypeFor[T]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return reflectParameters(typ)
}

func reflectParameters(typ reflect.Type) *jsonschema.Schema {
	schema := parameterReflector.ReflectFromType(typ)
	schema.Version = ""
	schema.ID = ""
	if typ.Kind() == reflect.Struct && schema.Properties == nil {
		schema.Properties = orderedmap.New[string, *jsonschema.Schema]()
	}
	return schema
}

// Schema returns the argument schema, an empty object schema when none is set.
func (d Definition) Schema() *jsonschema.Schema {
	if d.Parameters != nil {
		return d.Parameters
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}
}

// ParametersJSON renders the argument schema.
func (d Definition) ParametersJSON() ([]byte, error) {
	return json.Marshal(d.Schema())
}
