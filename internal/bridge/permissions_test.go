package bridge

import (
	"context"
	"testing"

	"github.com/claude/healthbridge/internal/healthstore"
)

// TestNativeTypesIsTotal verifies that unknown permission tags resolve to an
// empty list rather than an error.
func TestNativeTypesIsTotal(t *testing.T) {
	if got := NativeTypes(Permission("READ_KARMA")); got != nil {
		t.Errorf("unknown tag resolved to %v, want nil", got)
	}
	if got := NativeTypes(PermReadDistance); len(got) != 4 {
		t.Errorf("READ_DISTANCE resolved to %d types, want 4", len(got))
	}
}

// TestReduceStatesMostRestrictiveWins verifies the documented reduction
// policy: denied > notDetermined > authorized.
func TestReduceStatesMostRestrictiveWins(t *testing.T) {
	cases := []struct {
		states []healthstore.AuthorizationState
		want   healthstore.AuthorizationState
	}{
		{nil, healthstore.NotDetermined},
		{[]healthstore.AuthorizationState{healthstore.Authorized}, healthstore.Authorized},
		{[]healthstore.AuthorizationState{healthstore.Authorized, healthstore.NotDetermined}, healthstore.NotDetermined},
		{[]healthstore.AuthorizationState{healthstore.NotDetermined, healthstore.Denied, healthstore.Authorized}, healthstore.Denied},
	}
	for _, c := range cases {
		if got := ReduceStates(c.states); got != c.want {
			t.Errorf("ReduceStates(%v) = %v, want %v", c.states, got, c.want)
		}
	}
}

// TestCheckPermissionsReducesMultiType verifies that a multi-type permission
// reports one reduced state instead of the last-queried one.
func TestCheckPermissionsReducesMultiType(t *testing.T) {
	b, store := newTestBridge(nil)
	ctx := context.Background()

	// Three of four distance types authorized, one denied. Whatever the
	// query order, the reduced state must be denied.
	store.SetAuthorization(ctx, []string{
		healthstore.TypeDistanceCycling,
		healthstore.TypeDistanceSwimming,
		healthstore.TypeDistanceSnowSports,
	}, healthstore.Authorized)
	store.SetAuthorization(ctx, []string{healthstore.TypeDistanceWalkingRunning}, healthstore.Denied)

	got, err := b.CheckPermissions(ctx, []Permission{PermReadDistance})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[PermReadDistance] != healthstore.Denied {
		t.Errorf("got %v, want denied", got[PermReadDistance])
	}
}

// TestCheckPermissionsOmitsUnknownTags verifies that unmapped tags produce no
// entry and no error.
func TestCheckPermissionsOmitsUnknownTags(t *testing.T) {
	b, _ := newTestBridge(nil)
	got, err := b.CheckPermissions(context.Background(), []Permission{Permission("READ_KARMA"), PermReadSteps})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got[Permission("READ_KARMA")]; ok {
		t.Error("unknown tag should be omitted")
	}
	if got[PermReadSteps] != healthstore.NotDetermined {
		t.Errorf("steps = %v, want notDetermined", got[PermReadSteps])
	}
}

// TestRequestPermissionsBulkApproximation verifies that an accepted bulk
// request marks every tag true, an undetectable per-type outcome being the
// one honest contract available.
func TestRequestPermissionsBulkApproximation(t *testing.T) {
	b, _ := newTestBridge(nil)
	got, err := b.RequestPermissions(context.Background(), []Permission{PermReadSteps, PermReadHeartRate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got[PermReadSteps] || !got[PermReadHeartRate] {
		t.Errorf("got %v, want both tags true", got)
	}
}

// TestRequestPermissionsRefused verifies that a refused bulk request marks
// every tag false.
func TestRequestPermissionsRefused(t *testing.T) {
	b, store := newTestBridge(nil)
	store.SetGrantOnAsk(false)
	got, err := b.RequestPermissions(context.Background(), []Permission{PermReadSteps, PermReadWorkouts})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[PermReadSteps] || got[PermReadWorkouts] {
		t.Errorf("got %v, want both tags false", got)
	}
}
