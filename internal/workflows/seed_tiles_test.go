package workflows

import (
	"context"
	"errors"
	"testing"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/waymap/internal/core/domain"
)

type fakeRenderer struct {
	fail map[string]bool
}

func (f *fakeRenderer) RenderPNG(ctx context.Context, tile domain.TileCoordinate) ([]byte, error) {
	if f.fail[tile.Key()] {
		return nil, errors.New("backend unavailable")
	}
	return []byte("png!"), nil
}

func newEnv(t *testing.T, r TileRenderer) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(SeedTilesWorkflow)
	acts := &SeedActivities{Tiles: r}
	env.RegisterActivityWithOptions(acts.RenderTile, activity.RegisterOptions{Name: ActivityRenderTile})
	return env
}

func TestSeedTilesWorkflow_RendersBlock(t *testing.T) {
	env := newEnv(t, &fakeRenderer{})
	env.ExecuteWorkflow(SeedTilesWorkflow, SeedTilesInput{
		Origin: domain.TileCoordinate{X: 148.6, Y: 332.7}, Cols: 3, Rows: 2, Parallelism: 4,
	})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var res SeedTilesResult
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatal(err)
	}
	if res.Rendered != 6 || res.Bytes != 24 || len(res.Failed) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestSeedTilesWorkflow_ReportsFailures(t *testing.T) {
	env := newEnv(t, &fakeRenderer{fail: map[string]bool{"1:0": true}})
	env.ExecuteWorkflow(SeedTilesWorkflow, SeedTilesInput{Cols: 2, Rows: 1})

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var res SeedTilesResult
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatal(err)
	}
	if res.Rendered != 1 || len(res.Failed) != 1 || res.Failed[0] != "1:0" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestSeedTilesWorkflow_RejectsEmptyBlock(t *testing.T) {
	env := newEnv(t, &fakeRenderer{})
	env.ExecuteWorkflow(SeedTilesWorkflow, SeedTilesInput{Cols: 0, Rows: 3})

	if err := env.GetWorkflowError(); err == nil {
		t.Fatal("expected workflow error for an empty block")
	}
}

func TestSeedTilesInput_Tiles(t *testing.T) {
	tiles := SeedTilesInput{Origin: domain.TileCoordinate{X: 1, Y: 2}, Cols: 2, Rows: 2}.Tiles()
	want := []domain.TileCoordinate{{X: 1, Y: 2}, {X: 2, Y: 2}, {X: 1, Y: 3}, {X: 2, Y: 3}}
	if len(tiles) != len(want) {
		t.Fatalf("expected %d tiles, got %d", len(want), len(tiles))
	}
	for i := range want {
		if tiles[i] != want[i] {
			t.Errorf("tile %d: expected %v, got %v", i, want[i], tiles[i])
		}
	}
}
