package controllers

import (
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/feirahub/feira/pkg/ctx"
)

type GraphQLController struct {
	schema graphql.Schema
}

func NewGraphQLController(schema graphql.Schema) *GraphQLController {
	return &GraphQLController{schema: schema}
}

type graphqlInput struct {
	Query     string         `json:"query" validate:"required"`
	Variables map[string]any `json:"variables"`
}

// Query executes a catalogue query. Field errors come back inside the result
// body per the GraphQL convention, so the HTTP status is 200 either way.
func (gc *GraphQLController) Query(c *ctx.Context) {
	var in graphqlInput
	if !c.BindJSON(&in) {
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         gc.schema,
		RequestString:  in.Query,
		VariableValues: in.Variables,
		Context:        c.Context(),
	})
	c.JSON(http.StatusOK, result)
}
