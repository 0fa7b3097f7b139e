package bridge

import (
	"context"
	"fmt"

	"github.com/claude/healthbridge/internal/healthstore"
)

// Permission is an abstract permission tag. One tag may cover several native
// record types (READ_DISTANCE covers four distance sub-types).
type Permission string

const (
	PermReadSteps          Permission = "READ_STEPS"
	PermReadWeight         Permission = "READ_WEIGHT"
	PermReadHeight         Permission = "READ_HEIGHT"
	PermReadActiveCalories Permission = "READ_ACTIVE_CALORIES"
	PermReadBasalCalories  Permission = "READ_BASAL_CALORIES"
	PermReadTotalCalories  Permission = "READ_TOTAL_CALORIES"
	PermReadWorkouts       Permission = "READ_WORKOUTS"
	PermReadHeartRate      Permission = "READ_HEART_RATE"
	PermReadRoute          Permission = "READ_ROUTE"
	PermReadDistance       Permission = "READ_DISTANCE"
	PermReadMindfulness    Permission = "READ_MINDFULNESS"
	PermReadHRV            Permission = "READ_HRV"
	PermReadBloodPressure  Permission = "READ_BLOOD_PRESSURE"
)

// permissionTypes maps each permission tag to the native record types it
// covers. Immutable; built once at process start.
var permissionTypes = map[Permission][]string{
	PermReadSteps:          {healthstore.TypeStepCount},
	PermReadWeight:         {healthstore.TypeBodyMass},
	PermReadHeight:         {healthstore.TypeHeight},
	PermReadActiveCalories: {healthstore.TypeActiveEnergy},
	PermReadBasalCalories:  {healthstore.TypeBasalEnergy},
	PermReadTotalCalories:  {healthstore.TypeActiveEnergy, healthstore.TypeBasalEnergy},
	PermReadWorkouts:       {healthstore.TypeWorkout},
	PermReadHeartRate:      {healthstore.TypeHeartRate},
	PermReadRoute:          {healthstore.TypeWorkoutRoute},
	PermReadDistance: {
		healthstore.TypeDistanceCycling,
		healthstore.TypeDistanceSwimming,
		healthstore.TypeDistanceWalkingRunning,
		healthstore.TypeDistanceSnowSports,
	},
	PermReadMindfulness:   {healthstore.TypeMindfulSession},
	PermReadHRV:           {healthstore.TypeHRV},
	PermReadBloodPressure: {healthstore.TypeBloodPressureSystolic, healthstore.TypeBloodPressureDiastolic},
}

// NativeTypes returns the native record types a permission covers. Total:
// unknown tags return nil, never an error.
func NativeTypes(p Permission) []string {
	return permissionTypes[p]
}

// ReduceStates collapses the per-type states of a multi-type permission into
// one state, most restrictive wins: denied > notDetermined > authorized.
// An empty input reduces to notDetermined.
func ReduceStates(states []healthstore.AuthorizationState) healthstore.AuthorizationState {
	out := healthstore.Authorized
	if len(states) == 0 {
		return healthstore.NotDetermined
	}
	for _, st := range states {
		switch st {
		case healthstore.Denied:
			return healthstore.Denied
		case healthstore.NotDetermined:
			out = healthstore.NotDetermined
		}
	}
	return out
}

// CheckPermissions reports one authorization state per known permission tag.
// Tags with no native mapping are silently omitted.
func (b *Bridge) CheckPermissions(ctx context.Context, perms []Permission) (map[Permission]healthstore.AuthorizationState, error) {
	out := make(map[Permission]healthstore.AuthorizationState, len(perms))
	for _, p := range perms {
		types := NativeTypes(p)
		if len(types) == 0 {
			continue
		}
		states := make([]healthstore.AuthorizationState, 0, len(types))
		for _, t := range types {
			st, err := b.store.AuthorizationStatus(ctx, t)
			if err != nil {
				return nil, fmt.Errorf("checking %s: %w", p, err)
			}
			states = append(states, st)
		}
		out[p] = ReduceStates(states)
	}
	return out, nil
}

// RequestPermissions issues one bulk authorization request for the union of
// all native types behind the given tags.
//
// The store reports only the overall outcome of the request, so when it
// succeeds every tag is reported true regardless of which underlying types
// were individually granted, and when it is refused every tag is reported
// false. That approximation is the one honest contract the backing stores
// offer.
func (b *Bridge) RequestPermissions(ctx context.Context, perms []Permission) (map[Permission]bool, error) {
	seen := map[string]bool{}
	var union []string
	for _, p := range perms {
		for _, t := range NativeTypes(p) {
			if !seen[t] {
				seen[t] = true
				union = append(union, t)
			}
		}
	}

	granted := false
	if len(union) > 0 {
		var err error
		granted, err = b.store.RequestAuthorization(ctx, union)
		if err != nil {
			return nil, fmt.Errorf("requesting authorization: %w", err)
		}
	}

	out := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		out[p] = granted
	}
	return out, nil
}
