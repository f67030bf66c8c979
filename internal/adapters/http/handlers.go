package http

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/waymap/internal/core/domain"
)

const maxPageLimit = 1000

// WaysHandler answers a bounding box query. The body is the JSON array
// [maxLat, minLat, maxLon, minLon] and the response is the array of ways
// whose endpoints both lie inside the box.
func WaysHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Ways == nil {
			return errUnavailable(c, "way store not available")
		}

		var coords []float64
		if err := json.Unmarshal(c.Body(), &coords); err != nil {
			return errBadRequest(c, msgInvalidBox)
		}
		box, err := domain.BoundingBoxFromArray(coords)
		if err != nil {
			return errBadRequest(c, msgInvalidBox)
		}

		ways, err := deps.Ways.Ways(c.UserContext(), box)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(ways)
	}
}

// ListWaysHandler returns one page of the ways inside the box given by the
// max_lat, min_lat, max_lon and min_lon query parameters.
func ListWaysHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Ways == nil {
			return errUnavailable(c, "way store not available")
		}

		for _, q := range []string{"max_lat", "min_lat", "max_lon", "min_lon"} {
			if c.Query(q) == "" {
				return errBadRequest(c, q+" is required")
			}
		}
		box := domain.GeoBoundingBox{
			MaxLat: c.QueryFloat("max_lat", 0),
			MinLat: c.QueryFloat("min_lat", 0),
			MaxLon: c.QueryFloat("max_lon", 0),
			MinLon: c.QueryFloat("min_lon", 0),
		}
		if err := box.Validate(); err != nil {
			return errBadRequest(c, msgInvalidBox)
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", maxPageLimit)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > maxPageLimit {
			limit = maxPageLimit
		}

		page, err := deps.Ways.Page(c.UserContext(), box, offset, limit)
		if err != nil {
			return serviceError(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: page.Total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page.Ways, Pagination: pg})
	}
}

// TileHandler describes the geography of a tile.
func TileHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tile, err := tileParam(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(deps.Tiles.Describe(tile))
	}
}

// TileWaysHandler returns the ways drawn on a tile.
func TileWaysHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tile, err := tileParam(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		ways, err := deps.Tiles.Ways(c.UserContext(), tile)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(ways)
	}
}

// TilePNGHandler returns the tile rendered as a PNG image.
func TilePNGHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tile, err := tileParam(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		data, err := deps.Tiles.RenderPNG(c.UserContext(), tile)
		if err != nil {
			return serviceError(c, err)
		}

		c.Set(fiber.HeaderContentType, "image/png")
		c.Set("Cache-Control", "public, max-age=300")
		return c.Send(data)
	}
}

// StoreStats holds the size of the way store.
type StoreStats struct {
	Nodes      int    `json:"nodes"`
	Ways       int    `json:"ways"`
	Generation uint64 `json:"generation"`
}

// StatsHandler returns node and way counts.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Ways == nil {
			return errUnavailable(c, "way store not available")
		}

		nodes, ways, err := deps.Ways.Stats(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(StoreStats{Nodes: nodes, Ways: ways, Generation: deps.Ways.Generation(c.UserContext())})
	}
}

// tileParam reads the :x and :y route parameters.
func tileParam(c *fiber.Ctx) (domain.TileCoordinate, error) {
	x, err := coordParam(c, "x")
	if err != nil {
		return domain.TileCoordinate{}, err
	}
	y, err := coordParam(c, "y")
	if err != nil {
		return domain.TileCoordinate{}, err
	}
	return domain.TileCoordinate{X: x, Y: y}, nil
}

func coordParam(c *fiber.Ctx, name string) (float64, error) {
	v, err := strconv.ParseFloat(c.Params(name), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("tile %s must be a number, got %q", name, c.Params(name))
	}
	return v, nil
}
