package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/nextmetro/internal/core/domain"
)

// gqlError carries a machine-readable code (and suggestions for unknown
// stations) in the GraphQL error extensions.
type gqlError struct {
	msg        string
	extensions map[string]interface{}
}

func (e *gqlError) Error() string                       { return e.msg }
func (e *gqlError) Extensions() map[string]interface{} { return e.extensions }

func toGQLError(err error) error {
	var unknown *domain.UnknownStationError
	switch {
	case errors.As(err, &unknown):
		suggestions := unknown.Suggestions
		if suggestions == nil {
			suggestions = []string{}
		}
		return &gqlError{msg: msgUnknownStation, extensions: map[string]interface{}{
			"code":        "unknown_station",
			"suggestions": suggestions,
		}}
	case errors.Is(err, domain.ErrMissingParameter):
		return &gqlError{msg: msgStationRequired, extensions: map[string]interface{}{"code": "bad_request"}}
	case errors.Is(err, domain.ErrInvalidRange), errors.Is(err, domain.ErrInvalidArgument):
		return &gqlError{msg: msgCountRange, extensions: map[string]interface{}{"code": "bad_request"}}
	default:
		return err
	}
}

// boardToMap flattens a board for the default graphql-go resolvers.
func boardToMap(b *domain.Board) map[string]interface{} {
	service := b.Service
	if service == "" {
		service = string(domain.ServiceOpen)
	}
	m := map[string]interface{}{
		"service":     service,
		"station":     b.Station,
		"line":        b.Line,
		"headwayMin":  b.HeadwayMin,
		"nextArrival": b.NextArrival,
		"tz":          b.Timezone,
	}
	if b.IsLast != nil {
		m["isLast"] = *b.IsLast
	}
	arrivals := make([]map[string]interface{}, 0, len(b.Arrivals))
	for _, a := range b.Arrivals {
		arrivals = append(arrivals, map[string]interface{}{"time": a.Time, "isLast": a.IsLast})
	}
	m["arrivals"] = arrivals
	return m
}

// buildSchema creates the GraphQL schema wired to the board service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	arrivalType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Arrival",
		Fields: graphql.Fields{
			"time":   &graphql.Field{Type: graphql.String},
			"isLast": &graphql.Field{Type: graphql.Boolean},
		},
	})

	boardType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Board",
		Fields: graphql.Fields{
			"service":     &graphql.Field{Type: graphql.String},
			"station":     &graphql.Field{Type: graphql.String},
			"line":        &graphql.Field{Type: graphql.String},
			"headwayMin":  &graphql.Field{Type: graphql.Int},
			"nextArrival": &graphql.Field{Type: graphql.String},
			"isLast":      &graphql.Field{Type: graphql.Boolean},
			"tz":          &graphql.Field{Type: graphql.String},
			"arrivals":    &graphql.Field{Type: graphql.NewList(arrivalType)},
		},
	})

	stationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Station",
		Fields: graphql.Fields{
			"name": &graphql.Field{Type: graphql.String},
			"line": &graphql.Field{Type: graphql.String},
		},
	})

	scheduleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Schedule",
		Fields: graphql.Fields{
			"line":            &graphql.Field{Type: graphql.String},
			"headwayMin":      &graphql.Field{Type: graphql.Int},
			"lastWindowStart": &graphql.Field{Type: graphql.String},
			"serviceEnd":      &graphql.Field{Type: graphql.String},
			"serviceResume":   &graphql.Field{Type: graphql.String},
			"tz":              &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"nextMetro": &graphql.Field{
				Type:        boardType,
				Description: "Next arrivals at a station",
				Args: graphql.FieldConfigArgument{
					"station": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"n":       &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					station, _ := p.Args["station"].(string)
					n, _ := p.Args["n"].(int)
					board, err := deps.Boards.Board(p.Context, station, n)
					if err != nil {
						return nil, toGQLError(err)
					}
					return boardToMap(board), nil
				},
			},
			"stations": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Station names resembling a query",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					q, _ := p.Args["query"].(string)
					limit, _ := p.Args["limit"].(int)
					return deps.Boards.SuggestStations(q, limit), nil
				},
			},
			"allStations": &graphql.Field{
				Type:        graphql.NewList(stationType),
				Description: "Every station on the line",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Boards.Stations(), nil
				},
			},
			"schedule": &graphql.Field{
				Type:        scheduleType,
				Description: "Timetable parameters",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					cfg := deps.Boards.Schedule()
					return map[string]interface{}{
						"line":            cfg.Line,
						"headwayMin":      cfg.HeadwayMinutes,
						"lastWindowStart": cfg.LastWindowStart.String(),
						"serviceEnd":      cfg.ServiceEnd.String(),
						"serviceResume":   cfg.ServiceResume.String(),
						"tz":              cfg.Timezone,
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
