package openapi

import (
	"net/http"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

func operation(tag, id, summary string, req *openapi3.RequestBodyRef, resp *openapi3.Responses, sec *openapi3.SecurityRequirements) *openapi3.Operation {
	return &openapi3.Operation{
		Tags:        []string{tag},
		Summary:     summary,
		OperationID: id,
		RequestBody: req,
		Responses:   resp,
		Security:    sec,
	}
}

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func body(schema string) *openapi3.RequestBodyRef {
	return inlineBody(ref(schema))
}

func inlineBody(schema *openapi3.SchemaRef) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: true,
			Content:  openapi3.NewContentWithJSONSchemaRef(schema),
		},
	}
}

// stringProps is an object schema whose listed properties are strings.
func stringProps(names ...string) *openapi3.SchemaRef {
	props := openapi3.Schemas{}
	for _, n := range names {
		props[n] = &openapi3.SchemaRef{Value: openapi3.NewStringSchema()}
	}
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: props,
		Required:   names,
	}}
}

func emptyObject() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}
}

func pathParam(name, desc string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter(name).
			WithDescription(desc).
			WithSchema(openapi3.NewStringSchema()),
	}
}

func queryParam(name, desc string, def int) *openapi3.ParameterRef {
	schema := openapi3.NewIntegerSchema().WithMin(1)
	schema.Default = def
	return &openapi3.ParameterRef{
		Value: openapi3.NewQueryParameter(name).
			WithDescription(desc).
			WithSchema(schema),
	}
}

// newResponses builds the success response plus the listed error statuses,
// all sharing the error envelope. 500 is always included.
func newResponses(status int, description string, schema *openapi3.SchemaRef, errorCodes ...int) *openapi3.Responses {
	opts := []openapi3.NewResponsesOption{
		openapi3.WithStatus(status, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription(description).
				WithContent(openapi3.NewContentWithJSONSchemaRef(schema)),
		}),
	}
	return openapi3.NewResponses(append(opts, errorResponses(errorCodes)...)...)
}

// noContent is newResponses for 204 endpoints.
func noContent(errorCodes ...int) *openapi3.Responses {
	opts := []openapi3.NewResponsesOption{
		openapi3.WithStatus(http.StatusNoContent, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("No content"),
		}),
	}
	return openapi3.NewResponses(append(opts, errorResponses(errorCodes)...)...)
}

func errorResponses(codes []int) []openapi3.NewResponsesOption {
	codes = append(codes, http.StatusInternalServerError)
	sort.Ints(codes)
	errorRef := ref("ErrorResponse")
	opts := make([]openapi3.NewResponsesOption, 0, len(codes))
	for _, code := range codes {
		opts = append(opts, openapi3.WithStatus(code, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription(http.StatusText(code)).
				WithContent(openapi3.NewContentWithJSONSchemaRef(errorRef)),
		}))
	}
	return opts
}
