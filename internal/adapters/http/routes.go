package http

import (
	"errors"
	"math"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/waymap/internal/core/domain"
)

// NearestHandler returns the traversable node closest to ?lat=&lon=.
func NearestHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Routes == nil {
			return errUnavailable(c, "routing not available")
		}

		p, err := pointQuery(c, "lat", "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		node, err := deps.Routes.Nearest(c.UserContext(), p)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(node)
	}
}

// RouteHandler returns the shortest path between two points, given as
// from_lat, from_lon, to_lat and to_lon, or between two intersections, given
// as from_street, from_cross, to_street and to_cross. An unreachable
// destination is answered with found set to false.
func RouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Routes == nil {
			return errUnavailable(c, "routing not available")
		}

		var (
			route domain.Route
			err   error
		)
		if c.Query("from_street") != "" || c.Query("to_street") != "" {
			for _, q := range []string{"from_street", "from_cross", "to_street", "to_cross"} {
				if c.Query(q) == "" {
					return errBadRequest(c, q+" is required")
				}
			}
			route, err = deps.Routes.RouteStreets(c.UserContext(),
				domain.StreetCorner{Street: c.Query("from_street"), Cross: c.Query("from_cross")},
				domain.StreetCorner{Street: c.Query("to_street"), Cross: c.Query("to_cross")})
		} else {
			from, perr := pointQuery(c, "from_lat", "from_lon")
			if perr != nil {
				return errBadRequest(c, perr.Error())
			}
			to, perr := pointQuery(c, "to_lat", "to_lon")
			if perr != nil {
				return errBadRequest(c, perr.Error())
			}
			route, err = deps.Routes.Route(c.UserContext(), from, to)
		}
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(route)
	}
}

func pointQuery(c *fiber.Ctx, lat, lon string) (domain.GeoPoint, error) {
	for _, q := range []string{lat, lon} {
		if c.Query(q) == "" {
			return domain.GeoPoint{}, errors.New(q + " is required")
		}
	}
	p := domain.GeoPoint{Lat: c.QueryFloat(lat, math.NaN()), Lon: c.QueryFloat(lon, math.NaN())}
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return domain.GeoPoint{}, errors.New(lat + " and " + lon + " must be numbers")
	}
	return p, nil
}
