package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/core/usecases"
)

// rankedField resolves a field of a domain.RankedShelter source.
func rankedField(get func(domain.RankedShelter) interface{}) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		s, ok := p.Source.(domain.RankedShelter)
		if !ok {
			return nil, nil
		}
		return get(s), nil
	}
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	hazardZoneType := graphql.NewObject(graphql.ObjectConfig{
		Name: "HazardZone",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"centroid":      &graphql.Field{Type: coordinateType},
			"radius_meters": &graphql.Field{Type: graphql.Float},
			"vertex_count":  &graphql.Field{Type: graphql.Int},
			"boundary":      &graphql.Field{Type: graphql.NewList(coordinateType)},
			"created_at": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					z, ok := p.Source.(*domain.HazardZone)
					if !ok || z == nil {
						return nil, nil
					}
					return z.CreatedAt.UTC().Format(time.RFC3339), nil
				},
			},
		},
	})

	riskType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RiskAssessment",
		Fields: graphql.Fields{
			"in_hazard": &graphql.Field{Type: graphql.Boolean},
			"tier":      &graphql.Field{Type: graphql.String},
			"distance_to_edge_meters": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					ra, ok := p.Source.(domain.RiskAssessment)
					if !ok || ra.DistanceToEdgeMeters == nil {
						return nil, nil
					}
					return *ra.DistanceToEdgeMeters, nil
				},
			},
		},
	})

	shelterType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Shelter",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String, Resolve: rankedField(func(s domain.RankedShelter) interface{} { return s.ID })},
			"name":            &graphql.Field{Type: graphql.String, Resolve: rankedField(func(s domain.RankedShelter) interface{} { return s.Name })},
			"location":        &graphql.Field{Type: coordinateType, Resolve: rankedField(func(s domain.RankedShelter) interface{} { return s.Location })},
			"address":         &graphql.Field{Type: graphql.String, Resolve: rankedField(func(s domain.RankedShelter) interface{} { return s.Address })},
			"capacity_text":   &graphql.Field{Type: graphql.String, Resolve: rankedField(func(s domain.RankedShelter) interface{} { return s.CapacityText })},
			"area_text":       &graphql.Field{Type: graphql.String, Resolve: rankedField(func(s domain.RankedShelter) interface{} { return s.AreaText })},
			"category":        &graphql.Field{Type: graphql.String, Resolve: rankedField(func(s domain.RankedShelter) interface{} { return s.Category })},
			"distance_meters": &graphql.Field{Type: graphql.Float, Resolve: rankedField(func(s domain.RankedShelter) interface{} { return s.DistanceMeters })},
			"in_hazard":       &graphql.Field{Type: graphql.Boolean, Resolve: rankedField(func(s domain.RankedShelter) interface{} { return s.InHazard })},
		},
	})

	nearbyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "NearbyShelters",
		Fields: graphql.Fields{
			"items":    &graphql.Field{Type: graphql.NewList(shelterType)},
			"source":   &graphql.Field{Type: graphql.String},
			"degraded": &graphql.Field{Type: graphql.Boolean},
			"notice":   &graphql.Field{Type: graphql.String},
		},
	})

	categoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ShelterCategory",
		Fields: graphql.Fields{
			"category": &graphql.Field{Type: graphql.String},
			"count":    &graphql.Field{Type: graphql.Int},
		},
	})

	stepType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteStep",
		Fields: graphql.Fields{
			"index":            &graphql.Field{Type: graphql.Int},
			"instruction":      &graphql.Field{Type: graphql.String},
			"distance_meters":  &graphql.Field{Type: graphql.Float},
			"duration_seconds": &graphql.Field{Type: graphql.Float},
			"coordinate":       &graphql.Field{Type: coordinateType},
			"kind":             &graphql.Field{Type: graphql.String},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteSummary",
		Fields: graphql.Fields{
			"distance_meters":  &graphql.Field{Type: graphql.Float},
			"duration_seconds": &graphql.Field{Type: graphql.Float},
			"distance_text":    &graphql.Field{Type: graphql.String},
			"duration_text":    &graphql.Field{Type: graphql.String},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"southwest": &graphql.Field{Type: coordinateType},
			"northeast": &graphql.Field{Type: coordinateType},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"mode":             &graphql.Field{Type: graphql.String},
			"coordinates":      &graphql.Field{Type: graphql.NewList(coordinateType)},
			"steps":            &graphql.Field{Type: graphql.NewList(stepType)},
			"summary":          &graphql.Field{Type: summaryType},
			"bounds":           &graphql.Field{Type: boundsType},
			"encoded_polyline": &graphql.Field{Type: graphql.String},
			"source":           &graphql.Field{Type: graphql.String},
			"degraded":         &graphql.Field{Type: graphql.Boolean},
			"notice":           &graphql.Field{Type: graphql.String},
		},
	})

	timelineSummaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TimelineSummary",
		Fields: graphql.Fields{
			"frames":           &graphql.Field{Type: graphql.Int},
			"skipped_lines":    &graphql.Field{Type: graphql.Int},
			"dropped_frames":   &graphql.Field{Type: graphql.Int},
			"first_minute":     &graphql.Field{Type: graphql.Float},
			"last_minute":      &graphql.Field{Type: graphql.Float},
			"cell_size_meters": &graphql.Field{Type: graphql.Float},
		},
	})

	playbackType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Playback",
		Fields: graphql.Fields{
			"state":       &graphql.Field{Type: graphql.String},
			"index":       &graphql.Field{Type: graphql.Int},
			"frame_count": &graphql.Field{Type: graphql.Int},
			"time_minutes": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					snap, ok := p.Source.(*domain.PlaybackSnapshot)
					if !ok || snap == nil || snap.Frame == nil {
						return nil, nil
					}
					return snap.Frame.TimeMinutes, nil
				},
			},
		},
	})

	wildfireStatusType := graphql.NewObject(graphql.ObjectConfig{
		Name: "WildfireStatus",
		Fields: graphql.Fields{
			"loaded":   &graphql.Field{Type: graphql.Boolean},
			"summary":  &graphql.Field{Type: timelineSummaryType},
			"playback": &graphql.Field{Type: playbackType},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"hazardLatest": &graphql.Field{
				Type:        hazardZoneType,
				Description: "The latest hazard zone, null when none exists",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if z := deps.Hazards.Latest(); z != nil {
						return z, nil
					}
					return nil, nil
				},
			},
			"classifyPoint": &graphql.Field{
				Type:        riskType,
				Description: "Classify a point against the latest hazard zone",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					point := domain.Coordinate{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					return deps.Hazards.Classify(point)
				},
			},
			"nearbyShelters": &graphql.Field{
				Type:        nearbyType,
				Description: "Shelters ranked by distance",
				Args: graphql.FieldConfigArgument{
					"lat":           &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":           &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"limit":         &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: usecases.DefaultShelterLimit},
					"category":      &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"excludeHazard": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: true},
					"source":        &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: string(domain.SourceCatalog)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Shelters.Nearby(p.Context, usecases.NearbyQuery{
						Origin:        domain.Coordinate{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)},
						Limit:         p.Args["limit"].(int),
						Category:      p.Args["category"].(string),
						ExcludeHazard: p.Args["excludeHazard"].(bool),
						Source:        domain.ShelterSource(p.Args["source"].(string)),
					})
				},
			},
			"shelterCategories": &graphql.Field{
				Type:        graphql.NewList(categoryType),
				Description: "Catalog shelter counts per category",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Shelters.Categories(p.Context)
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Walking or driving route between two points",
				Args: graphql.FieldConfigArgument{
					"mode":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"startLat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"startLon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"endLat":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"endLon":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					mode, err := domain.ParseTravelMode(p.Args["mode"].(string))
					if err != nil {
						return nil, err
					}
					start := domain.Coordinate{Lat: p.Args["startLat"].(float64), Lon: p.Args["startLon"].(float64)}
					end := domain.Coordinate{Lat: p.Args["endLat"].(float64), Lon: p.Args["endLon"].(float64)}
					return deps.Routes.Route(p.Context, mode, start, end)
				},
			},
			"wildfireStatus": &graphql.Field{
				Type:        wildfireStatusType,
				Description: "Wildfire timeline playback status",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Wildfire.Status(), nil
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
