package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/detour/internal/core/domain"
)

type gqlUserKey struct{}

func gqlUser(ctx context.Context) (*domain.User, error) {
	u, ok := ctx.Value(gqlUserKey{}).(*domain.User)
	if !ok || u == nil {
		return nil, domain.ErrUnauthorized
	}
	return u, nil
}

// buildSchema creates the GraphQL schema wired to our services.
// Every resolver runs as the authenticated user.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"name":         &graphql.Field{Type: graphql.String},
			"email":        &graphql.Field{Type: graphql.String},
			"access_level": &graphql.Field{Type: graphql.Int},
		},
	})

	stopoverType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stopover",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"label":    &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: coordinateType},
			"origin":   &graphql.Field{Type: graphql.String},
			"place_id": &graphql.Field{Type: graphql.String},
			"sequence": &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TripQuery",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"origin":          &graphql.Field{Type: graphql.String},
			"destination":     &graphql.Field{Type: graphql.String},
			"threshold_miles": &graphql.Field{Type: graphql.Float},
			"categories":      &graphql.Field{Type: graphql.NewList(graphql.String)},
			"keywords":        &graphql.Field{Type: graphql.NewList(graphql.String)},
			"status":          &graphql.Field{Type: graphql.String},
			"stopovers": &graphql.Field{
				Type:        graphql.NewList(stopoverType),
				Description: "Stopovers found so far; origin filters to organic or sponsor",
				Args: graphql.FieldConfigArgument{
					"origin": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					var id string
					switch q := p.Source.(type) {
					case domain.Query:
						id = q.ID
					case *domain.Query:
						id = q.ID
					default:
						return nil, errors.New("unexpected query source")
					}
					all, err := deps.Queries.Stopovers(p.Context, id)
					if err != nil {
						return nil, err
					}
					origin, _ := p.Args["origin"].(string)
					if origin == "" {
						return all, nil
					}
					var out []domain.Stopover
					for _, st := range all {
						if string(st.Origin) == origin {
							out = append(out, st)
						}
					}
					return out, nil
				},
			},
		},
	})

	tagType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Tag",
		Fields: graphql.Fields{
			"id":      &graphql.Field{Type: graphql.String},
			"keyword": &graphql.Field{Type: graphql.String},
		},
	})

	sponsorType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Sponsor",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"owner_id": &graphql.Field{Type: graphql.String},
			"keyword":  &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: coordinateType},
		},
	})

	root := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"me": &graphql.Field{
				Type: userType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return gqlUser(p.Context)
				},
			},
			"queries": &graphql.Field{
				Type:        graphql.NewList(queryType),
				Description: "The caller's trip queries, newest first",
				Resolve: func(p graphql.ResolveParams) (any, error) {
					u, err := gqlUser(p.Context)
					if err != nil {
						return nil, err
					}
					return deps.Queries.ListByUser(p.Context, u.ID)
				},
			},
			"query": &graphql.Field{
				Type:        queryType,
				Description: "One of the caller's trip queries",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					u, err := gqlUser(p.Context)
					if err != nil {
						return nil, err
					}
					return deps.Queries.GetOwned(p.Context, u.ID, p.Args["id"].(string))
				},
			},
			"tags": &graphql.Field{
				Type: graphql.NewList(tagType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					u, err := gqlUser(p.Context)
					if err != nil {
						return nil, err
					}
					return deps.Tags.List(p.Context, u.ID)
				},
			},
			"sponsorsNear": &graphql.Field{
				Type:        graphql.NewList(sponsorType),
				Description: "Sponsor locations within radius miles, nearest first",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 25.0},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					at := domain.Coordinate{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}
					return deps.Sponsors.Near(p.Context, at, p.Args["radius"].(float64))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: root})
}

// GraphQLHandler serves the GraphQL endpoint. Mount it behind RequireAuth.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string         `json:"query"`
		OperationName string         `json:"operationName"`
		Variables     map[string]any `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		ctx := context.WithValue(c.UserContext(), gqlUserKey{}, currentUser(c))
		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        ctx,
		})
		return c.JSON(result)
	}
}
