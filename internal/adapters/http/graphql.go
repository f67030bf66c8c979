package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/waymap/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BoundingBox",
		Fields: graphql.Fields{
			"max_lat": &graphql.Field{Type: graphql.Float},
			"min_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	coordType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TileCoordinate",
		Fields: graphql.Fields{
			"x": &graphql.Field{Type: graphql.Float},
			"y": &graphql.Field{Type: graphql.Float},
		},
	})

	wayType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Way",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"startLat": &graphql.Field{Type: graphql.Float},
			"startLon": &graphql.Field{Type: graphql.Float},
			"endLat":   &graphql.Field{Type: graphql.Float},
			"endLon":   &graphql.Field{Type: graphql.Float},
			"name":     &graphql.Field{Type: graphql.String},
			"type":     &graphql.Field{Type: graphql.String},
		},
	})

	tileType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Tile",
		Fields: graphql.Fields{
			"tile":          &graphql.Field{Type: coordType},
			"key":           &graphql.Field{Type: graphql.String},
			"bounds":        &graphql.Field{Type: boundsType},
			"center":        &graphql.Field{Type: geoPointType},
			"width_meters":  &graphql.Field{Type: graphql.Float},
			"height_meters": &graphql.Field{Type: graphql.Float},
			"canvas_width":  &graphql.Field{Type: graphql.Int},
			"canvas_height": &graphql.Field{Type: graphql.Int},
			"ways": &graphql.Field{
				Type:        graphql.NewList(wayType),
				Description: "Ways drawn on the tile",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					info, ok := p.Source.(domain.TileInfo)
					if !ok {
						return nil, errors.New("unexpected tile source")
					}
					return deps.Tiles.Ways(p.Context, info.Tile)
				},
			},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "StoreStats",
		Fields: graphql.Fields{
			"nodes":      &graphql.Field{Type: graphql.Int},
			"ways":       &graphql.Field{Type: graphql.Int},
			"generation": &graphql.Field{Type: graphql.String},
		},
	})

	nodeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Node",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"latitude":  &graphql.Field{Type: graphql.Float},
			"longitude": &graphql.Field{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"tile": &graphql.Field{
				Type:        tileType,
				Description: "Describe a tile of the grid",
				Args: graphql.FieldConfigArgument{
					"x": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"y": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					tile := domain.TileCoordinate{X: p.Args["x"].(float64), Y: p.Args["y"].(float64)}
					return deps.Tiles.Describe(tile), nil
				},
			},
			"ways": &graphql.Field{
				Type:        graphql.NewList(wayType),
				Description: "Ways whose endpoints both lie inside the box",
				Args: graphql.FieldConfigArgument{
					"max_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"min_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"max_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"min_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"offset":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: maxPageLimit},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Ways == nil {
						return nil, errors.New("way store not available")
					}
					box := domain.GeoBoundingBox{
						MaxLat: p.Args["max_lat"].(float64),
						MinLat: p.Args["min_lat"].(float64),
						MaxLon: p.Args["max_lon"].(float64),
						MinLon: p.Args["min_lon"].(float64),
					}
					page, err := deps.Ways.Page(p.Context, box, p.Args["offset"].(int), p.Args["limit"].(int))
					if err != nil {
						if errors.Is(err, domain.ErrInvalidBoundingBox) {
							return nil, errors.New(msgInvalidBox)
						}
						return nil, err
					}
					return page.Ways, nil
				},
			},
			"nearest": &graphql.Field{
				Type:        nodeType,
				Description: "Traversable node nearest to a point",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Routes == nil {
						return nil, errors.New("routing not available")
					}
					return deps.Routes.Nearest(p.Context, domain.GeoPoint{
						Lat: p.Args["lat"].(float64),
						Lon: p.Args["lon"].(float64),
					})
				},
			},
			"stats": &graphql.Field{
				Type:        statsType,
				Description: "Size of the way store",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Ways == nil {
						return nil, errors.New("way store not available")
					}
					nodes, ways, err := deps.Ways.Stats(p.Context)
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"nodes":      nodes,
						"ways":       ways,
						"generation": strconv.FormatUint(deps.Ways.Generation(p.Context), 10),
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
		// This would be a programming error in the schema definition
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
