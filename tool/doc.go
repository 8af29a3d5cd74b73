/*
Package tool describes the functions a model may call.

A Definition carries a name, a description and a JSON schema for the
arguments. The schema is reflected from a Go struct with invopop/jsonschema,
so struct tags drive the generated documentation:

	type WeatherArgs struct {
		City string `json:"city" jsonschema:"description=City to look up"`
	}

	weather := tool.Must[WeatherArgs](
		tool.Name("get_weather"),
		tool.Description("Current weather for a city"),
	)

Providers send the definitions with the chat request; the model answers with
messages.ToolCall values whose Arguments match the schema.
*/
package tool
