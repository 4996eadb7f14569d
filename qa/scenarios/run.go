package scenarios

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/acasal/alertd/core/dispatch"
	"github.com/acasal/alertd/core/match"
	"github.com/acasal/alertd/core/model"
	"github.com/acasal/alertd/infra/store"
	"github.com/acasal/alertd/internal/eventbus"
)

// RunScenario seeds a fresh store with the scenario resources, replays the
// uplinks through the dispatch engine and checks the outcome tally.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	dispatch.ResetMetrics(nil)

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "scenario.db"))
	if err != nil {
		t.Fatalf("scenario %s: open store: %v", sc.Name, err)
	}
	defer st.Close()

	ctx := context.Background()
	resources := make([]model.Resource, 0, len(sc.Resources))
	for _, r := range sc.Resources {
		resources = append(resources, r.ToModel())
	}
	if err := st.SeedResources(ctx, resources); err != nil {
		t.Fatalf("scenario %s: seed: %v", sc.Name, err)
	}

	bus := eventbus.New()
	defer bus.Close()
	eng, err := dispatch.New(st, match.New(st), nil, nil, bus, 0)
	if err != nil {
		t.Fatalf("scenario %s: engine: %v", sc.Name, err)
	}

	var assigned, pending, rejected int
	for _, u := range sc.Uplinks {
		out := eng.ProcessArmored(ctx, u.DevEUI, u.Payload())
		switch out.Kind {
		case dispatch.OutcomeAssigned:
			assigned++
		case dispatch.OutcomePending:
			pending++
		case dispatch.OutcomeRejected:
			rejected++
		}
	}

	if assigned != sc.Expected.Assigned {
		t.Errorf("scenario %s: expected %d assigned, got %d", sc.Name, sc.Expected.Assigned, assigned)
	}
	if pending != sc.Expected.Pending {
		t.Errorf("scenario %s: expected %d pending, got %d", sc.Name, sc.Expected.Pending, pending)
	}
	if rejected != sc.Expected.Rejected {
		t.Errorf("scenario %s: expected %d rejected, got %d", sc.Name, sc.Expected.Rejected, rejected)
	}
}
