package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/waymap/internal/core/domain"
)

// batchSize bounds the statements queued in one pgx.Batch.
const batchSize = 5000

// WayRepo implements ports.WayRepository with pgx.
type WayRepo struct {
	db *DB
}

// NewWayRepo creates a new WayRepo.
func NewWayRepo(db *DB) *WayRepo {
	return &WayRepo{db: db}
}

// FindInBox returns the ways whose start and end nodes are both inside box.
func (r *WayRepo) FindInBox(ctx context.Context, box domain.GeoBoundingBox) ([]domain.Way, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT w.id, COALESCE(w.name, ''), COALESCE(w.type, ''),
		       s.latitude, s.longitude, e.latitude, e.longitude
		FROM way w
		INNER JOIN node s ON w.start_id = s.id
		INNER JOIN node e ON w.end_id = e.id
		WHERE s.latitude BETWEEN $1 AND $2 AND s.longitude BETWEEN $3 AND $4
		  AND e.latitude BETWEEN $1 AND $2 AND e.longitude BETWEEN $3 AND $4
		ORDER BY w.id
	`, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ways := []domain.Way{}
	for rows.Next() {
		var w domain.Way
		if err := rows.Scan(
			&w.ID, &w.Name, &w.Type,
			&w.StartLat, &w.StartLon, &w.EndLat, &w.EndLon,
		); err != nil {
			return nil, err
		}
		ways = append(ways, w)
	}
	return ways, rows.Err()
}

// UpsertBatch inserts nodes then ways using pgx.Batch. Nodes go first so
// that every way's endpoints exist when it is written.
func (r *WayRepo) UpsertBatch(ctx context.Context, nodes []domain.Node, ways []domain.WayRecord) error {
	for start := 0; start < len(nodes); start += batchSize {
		end := min(start+batchSize, len(nodes))
		batch := &pgx.Batch{}
		for _, n := range nodes[start:end] {
			batch.Queue(`
				INSERT INTO node (id, latitude, longitude)
				VALUES ($1, $2, $3)
				ON CONFLICT (id) DO UPDATE
				SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude
			`, n.ID, n.Latitude, n.Longitude)
		}
		if err := r.sendBatch(ctx, batch); err != nil {
			return fmt.Errorf("nodes: %w", err)
		}
	}

	for start := 0; start < len(ways); start += batchSize {
		end := min(start+batchSize, len(ways))
		batch := &pgx.Batch{}
		for _, w := range ways[start:end] {
			batch.Queue(`
				INSERT INTO way (id, name, type, start_id, end_id)
				VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5)
				ON CONFLICT (id) DO UPDATE
				SET name = EXCLUDED.name, type = EXCLUDED.type,
				    start_id = EXCLUDED.start_id, end_id = EXCLUDED.end_id
			`, w.ID, w.Name, w.Type, w.StartID, w.EndID)
		}
		if err := r.sendBatch(ctx, batch); err != nil {
			return fmt.Errorf("ways: %w", err)
		}
	}
	return nil
}

func (r *WayRepo) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// Count returns the number of stored nodes and ways.
func (r *WayRepo) Count(ctx context.Context) (int, int, error) {
	var nodes, ways int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT (SELECT count(*) FROM node), (SELECT count(*) FROM way)
	`).Scan(&nodes, &ways)
	return nodes, ways, err
}

// RoutableNodes returns every endpoint of a traversable way.
func (r *WayRepo) RoutableNodes(ctx context.Context) ([]domain.Node, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT n.id, n.latitude, n.longitude
		FROM node n
		WHERE n.id IN (
			SELECT start_id FROM way WHERE COALESCE(type, '') NOT IN ('', 'unclassified')
			UNION
			SELECT end_id FROM way WHERE COALESCE(type, '') NOT IN ('', 'unclassified')
		)
		ORDER BY n.id
	`)
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
	rows, err := r.db.Pool.Query(ctx, `
		SELECT w.id, COALESCE(w.name, ''),
		       s.id, s.latitude, s.longitude, e.id, e.latitude, e.longitude
		FROM way w
		INNER JOIN node s ON w.start_id = s.id
		INNER JOIN node e ON w.end_id = e.id
		WHERE w.start_id = $1 AND COALESCE(w.type, '') NOT IN ('', 'unclassified')
		ORDER BY w.id
	`, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := []domain.Edge{}
	for rows.Next() {
		var e domain.Edge
		if err := rows.Scan(
			&e.WayID, &e.Name,
			&e.From.ID, &e.From.Latitude, &e.From.Longitude,
			&e.To.ID, &e.To.Latitude, &e.To.Longitude,
		); err != nil {
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
	err := r.db.Pool.QueryRow(ctx, `
		SELECT n.id, n.latitude, n.longitude
		FROM way a
		INNER JOIN way b
		        ON b.start_id IN (a.start_id, a.end_id) OR b.end_id IN (a.start_id, a.end_id)
		INNER JOIN node n
		        ON n.id = CASE WHEN a.start_id IN (b.start_id, b.end_id) THEN a.start_id ELSE a.end_id END
		WHERE a.name = $1 AND b.name = $2
		  AND COALESCE(a.type, '') NOT IN ('', 'unclassified')
		  AND COALESCE(b.type, '') NOT IN ('', 'unclassified')
		ORDER BY a.id, b.id
		LIMIT 1
	`, street, cross).Scan(&n.ID, &n.Latitude, &n.Longitude)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Node{}, domain.ErrNoIntersection
	}
	return n, err
}
