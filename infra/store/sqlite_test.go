package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/acasal/alertd/core/model"
	corestore "github.com/acasal/alertd/core/store"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "alertd.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return s
}

func testResources() []model.Resource {
	return []model.Resource{
		{
			ID: 1, Name: "Centro de Salud Caminomorisco", Municipality: "Caminomorisco",
			Category: model.CategoryMedical, Location: model.Location{Lat: 40.3645, Lon: -6.2910},
			Available: true, AvgSpeedKMH: 60, PrepDelayS: 120,
		},
		{
			ID: 2, Name: "Parque de Bomberos Pinofranqueado", Municipality: "Pinofranqueado",
			Category: model.CategoryFire, Location: model.Location{Lat: 40.3333, Lon: -6.3205},
			Available: true, AvgSpeedKMH: 70, PrepDelayS: 180,
		},
	}
}

func TestCreateAndGetAlert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := model.Alert{
		SourceID: "0004a30b001b7ad1",
		Category: model.CategoryMedical,
		Location: model.Location{Lat: 40.3645, Lon: -6.29},
	}
	if err := s.CreateAlert(ctx, &a); err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == 0 {
		t.Fatal("expected store-assigned id")
	}
	got, err := s.GetAlert(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != model.StateReported {
		t.Errorf("state: got %s, want reported", got.State)
	}
	if got.SourceID != a.SourceID || got.Category != a.Category {
		t.Errorf("got %+v, want %+v", got, a)
	}

	if _, err := s.GetAlert(ctx, 9999); !errors.Is(err, corestore.ErrNotFound) {
		t.Errorf("unknown id: got %v, want ErrNotFound", err)
	}
}

func TestSeedResourcesIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SeedResources(ctx, testResources()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.SeedResources(ctx, testResources()); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	rs, err := s.AvailableResources(ctx, model.CategoryMedical)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rs) != 1 {
		t.Fatalf("got %d medical resources, want 1", len(rs))
	}
	if rs[0].Name != "Centro de Salud Caminomorisco" || rs[0].Municipality != "Caminomorisco" {
		t.Errorf("unexpected resource %+v", rs[0])
	}
}

func TestSeedRejectsInvalidResource(t *testing.T) {
	s := openTestStore(t)
	bad := testResources()
	bad[0].AvgSpeedKMH = 0
	if err := s.SeedResources(context.Background(), bad); err == nil {
		t.Error("expected validation error")
	}
}

func TestAssignClaimsResourceOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.SeedResources(ctx, testResources()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	a := model.Alert{SourceID: "dev", Category: model.CategoryFire, Location: model.Location{Lat: 40.34, Lon: -6.31}}
	if err := s.CreateAlert(ctx, &a); err != nil {
		t.Fatalf("create: %v", err)
	}

	asg, err := s.Assign(ctx, model.Assignment{AlertID: a.ID, ResourceID: 2, DistanceM: 2500, ETASeconds: 300})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if asg.ID == 0 {
		t.Error("expected store-assigned assignment id")
	}

	got, err := s.GetAlert(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != model.StateAssigned {
		t.Errorf("alert state: got %s, want assigned", got.State)
	}
	if rs, _ := s.AvailableResources(ctx, model.CategoryFire); len(rs) != 0 {
		t.Errorf("resource still available after claim: %+v", rs)
	}

	// A second claim on the same resource must lose.
	b := model.Alert{SourceID: "dev2", Category: model.CategoryFire, Location: model.Location{Lat: 40.34, Lon: -6.31}}
	if err := s.CreateAlert(ctx, &b); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = s.Assign(ctx, model.Assignment{AlertID: b.ID, ResourceID: 2, DistanceM: 2500, ETASeconds: 300})
	if !errors.Is(err, corestore.ErrResourceConflict) {
		t.Errorf("got %v, want ErrResourceConflict", err)
	}
	if got, _ := s.GetAlert(ctx, b.ID); got.State != model.StateReported {
		t.Errorf("losing alert moved to %s, want reported", got.State)
	}
}

func TestResolveReleasesResourceExactlyOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.SeedResources(ctx, testResources()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	a := model.Alert{SourceID: "dev", Category: model.CategoryMedical, Location: model.Location{Lat: 40.36, Lon: -6.29}}
	if err := s.CreateAlert(ctx, &a); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Assign(ctx, model.Assignment{AlertID: a.ID, ResourceID: 1, DistanceM: 100, ETASeconds: 126}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	ok, released, err := s.ResolveAlert(ctx, a.ID)
	if err != nil || !ok {
		t.Fatalf("first resolve: got (%v, %v), want (true, nil)", ok, err)
	}
	if !released {
		t.Error("first resolve reported no resource released")
	}
	if rs, _ := s.AvailableResources(ctx, model.CategoryMedical); len(rs) != 1 {
		t.Error("resource not released on resolve")
	}
	got, _ := s.GetAlert(ctx, a.ID)
	if got.State != model.StateResolved {
		t.Errorf("state: got %s, want resolved", got.State)
	}

	ok, released, err = s.ResolveAlert(ctx, a.ID)
	if err != nil || ok || released {
		t.Fatalf("second resolve: got (%v, %v, %v), want (false, false, nil)", ok, released, err)
	}
}

func TestResolveReportedAlertWithoutAssignment(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := model.Alert{SourceID: "dev", Category: model.CategoryRescue, Location: model.Location{Lat: 40.38, Lon: -6.18}}
	if err := s.CreateAlert(ctx, &a); err != nil {
		t.Fatalf("create: %v", err)
	}
	ok, released, err := s.ResolveAlert(ctx, a.ID)
	if err != nil || !ok {
		t.Fatalf("got (%v, %v), want (true, nil)", ok, err)
	}
	if released {
		t.Error("resolve without an assignment reported a released resource")
	}
}

func TestListAlertsFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.SeedResources(ctx, testResources()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	for i := 0; i < 3; i++ {
		a := model.Alert{SourceID: "dev", Category: model.CategoryRescue, Location: model.Location{Lat: 40, Lon: -6}}
		if err := s.CreateAlert(ctx, &a); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	a := model.Alert{SourceID: "dev", Category: model.CategoryMedical, Location: model.Location{Lat: 40.36, Lon: -6.29}}
	if err := s.CreateAlert(ctx, &a); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Assign(ctx, model.Assignment{AlertID: a.ID, ResourceID: 1, DistanceM: 50, ETASeconds: 123}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	reported, err := s.ListAlerts(ctx, corestore.AlertFilter{State: model.StateReported})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reported) != 3 {
		t.Errorf("reported: got %d, want 3", len(reported))
	}
	limited, err := s.ListAlerts(ctx, corestore.AlertFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limit: got %d, want 2", len(limited))
	}
}
