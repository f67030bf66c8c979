package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/samirrijal/waymap/internal/core/domain"
)

// The node/way layout of the maps.sqlite3 databases: ways reference their
// endpoints through the "start" and "end" columns.
const schema = `
CREATE TABLE IF NOT EXISTS node (
	id TEXT PRIMARY KEY,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS way (
	id TEXT PRIMARY KEY,
	name TEXT,
	type TEXT,
	start TEXT NOT NULL,
	"end" TEXT NOT NULL
);`

// WayRepo implements ports.WayRepository over a sqlite database file.
type WayRepo struct {
	db *sql.DB
}

// Open opens the database at path and makes sure the tables exist.
func Open(path string) (*WayRepo, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &WayRepo{db: db}, nil
}

// Ping verifies the database is reachable.
func (r *WayRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the database handle.
func (r *WayRepo) Close() error {
	return r.db.Close()
}

// FindInBox returns the ways whose start and end nodes are both inside box.
func (r *WayRepo) FindInBox(ctx context.Context, box domain.GeoBoundingBox) ([]domain.Way, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT way.id, COALESCE(way.name, ''), COALESCE(way.type, ''),
		       s.latitude, s.longitude, e.latitude, e.longitude
		FROM way
		INNER JOIN node s ON way.start = s.id
		INNER JOIN node e ON way."end" = e.id
		WHERE s.latitude BETWEEN ?1 AND ?2 AND s.longitude BETWEEN ?3 AND ?4
		  AND e.latitude BETWEEN ?1 AND ?2 AND e.longitude BETWEEN ?3 AND ?4
		ORDER BY way.id`,
		box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ways := []domain.Way{}
	for rows.Next() {
		var w domain.Way
		if err := rows.Scan(&w.ID, &w.Name, &w.Type, &w.StartLat, &w.StartLon, &w.EndLat, &w.EndLon); err != nil {
			return nil, err
		}
		ways = append(ways, w)
	}
	return ways, rows.Err()
}

// UpsertBatch writes nodes and ways in one transaction.
func (r *WayRepo) UpsertBatch(ctx context.Context, nodes []domain.Node, ways []domain.WayRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	nodeStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO node (id, latitude, longitude) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()
	for _, n := range nodes {
		if _, err := nodeStmt.ExecContext(ctx, n.ID, n.Latitude, n.Longitude); err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
	}

	wayStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO way (id, name, type, start, "end") VALUES (?, NULLIF(?, ''), NULLIF(?, ''), ?, ?)`)
	if err != nil {
		return err
	}
	defer wayStmt.Close()
	for _, w := range ways {
		if _, err := wayStmt.ExecContext(ctx, w.ID, w.Name, w.Type, w.StartID, w.EndID); err != nil {
			return fmt.Errorf("way %s: %w", w.ID, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of stored nodes and ways.
func (r *WayRepo) Count(ctx context.Context) (int, int, error) {
	var nodes, ways int
	err := r.db.QueryRowContext(ctx, `SELECT (SELECT count(*) FROM node), (SELECT count(*) FROM way)`).Scan(&nodes, &ways)
	return nodes, ways, err
}

// traversable matches ways that can be routed along; buildings have no type.
const traversable = `COALESCE(%[1]s.type, '') NOT IN ('', 'unclassified')`

// RoutableNodes returns every endpoint of a traversable way.
func (r *WayRepo) RoutableNodes(ctx context.Context) ([]domain.Node, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, latitude, longitude FROM node
		WHERE id IN (
			SELECT start FROM way WHERE %[1]s
			UNION
			SELECT "end" FROM way WHERE %[1]s
		)
		ORDER BY id`, fmt.Sprintf(traversable, "way")))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nodes := []domain.Node{}
	for rows.Next() {
		var n domain.Node
		if err := rows.Scan(&n.ID, &n.Latitude, &n.Longitude); err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// Outgoing returns the traversable ways that start at nodeID.
func (r *WayRepo) Outgoing(ctx context.Context, nodeID string) ([]domain.Edge, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT way.id, COALESCE(way.name, ''),
		       s.id, s.latitude, s.longitude, e.id, e.latitude, e.longitude
		FROM way
		INNER JOIN node s ON way.start = s.id
		INNER JOIN node e ON way."end" = e.id
		WHERE way.start = ? AND %s
		ORDER BY way.id`, fmt.Sprintf(traversable, "way")), nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := []domain.Edge{}
	for rows.Next() {
		var e domain.Edge
		if err := rows.Scan(&e.WayID, &e.Name,
			&e.From.ID, &e.From.Latitude, &e.From.Longitude,
			&e.To.ID, &e.To.Latitude, &e.To.Longitude); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// Intersection returns a node shared by a traversable way named street and
// one named cross. When several qualify the way ids decide.
func (r *WayRepo) Intersection(ctx context.Context, street, cross string) (domain.Node, error) {
	var n domain.Node
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT n.id, n.latitude, n.longitude
		FROM way a
		INNER JOIN way b
		        ON b.start IN (a.start, a."end") OR b."end" IN (a.start, a."end")
		INNER JOIN node n
		        ON n.id = CASE WHEN a.start IN (b.start, b."end") THEN a.start ELSE a."end" END
		WHERE a.name = ?1 AND b.name = ?2 AND %s AND %s
		ORDER BY a.id, b.id
		LIMIT 1`, fmt.Sprintf(traversable, "a"), fmt.Sprintf(traversable, "b")),
		street, cross).Scan(&n.ID, &n.Latitude, &n.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Node{}, domain.ErrNoIntersection
	}
	return n, err
}
