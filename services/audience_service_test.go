package services

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"

	"github.com/tobi-04/srm-be-sub001/models"
)

func TestResolveUnknownGroupIsEmptyWithoutQuerying(t *testing.T) {
	gormDB, state, cleanup := newScriptedGormDB(t, nil)
	defer cleanup()

	s := NewAudienceService(gormDB)
	ids, err := s.Resolve(context.Background(), "vip", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("got %v", ids)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestResolveAllExcludesStaff(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .?user_id.? FROM .?users.? WHERE delete_at IS NULL .*role_id <> "),
			argAt:   map[int]driver.Value{0: true, 1: int64(models.RoleIDStaff)},
			columns: []string{"user_id"},
			rows: [][]driver.Value{
				{int64(1)},
				{int64(2)},
			},
		},
	}

	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	s := NewAudienceService(gormDB)
	ids, err := s.Resolve(context.Background(), GroupAll, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("got %v", ids)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestResolveStaffOnly(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("role_id = "),
			argAt:   map[int]driver.Value{1: int64(models.RoleIDStaff)},
			columns: []string{"user_id"},
			rows: [][]driver.Value{
				{int64(5)},
			},
		},
	}

	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	s := NewAudienceService(gormDB)
	ids, err := s.Resolve(context.Background(), GroupStaff, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != 5 {
		t.Fatalf("got %v", ids)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestResolvePurchasedUsesEnrollmentExists(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("EXISTS .SELECT 1 FROM enrollments"),
			columns: []string{"user_id"},
			rows: [][]driver.Value{
				{int64(3)},
			},
		},
	}

	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	s := NewAudienceService(gormDB)
	ids, err := s.Resolve(context.Background(), GroupPurchased, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != 3 {
		t.Fatalf("got %v", ids)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestResolveUnpurchasedNegatesEnrollmentExists(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("NOT EXISTS .SELECT 1 FROM enrollments"),
			columns: []string{"user_id"},
		},
	}

	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	s := NewAudienceService(gormDB)
	ids, err := s.Resolve(context.Background(), GroupUnpurchased, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("got %v", ids)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestResolveNarrowsByAcquisitionSource(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("source_id IN .SELECT source_id FROM acquisition_sources"),
			argAt:   map[int]driver.Value{2: "facebook"},
			columns: []string{"user_id"},
			rows: [][]driver.Value{
				{int64(8)},
			},
		},
	}

	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	s := NewAudienceService(gormDB)
	ids, err := s.Resolve(context.Background(), GroupAll, []string{"facebook"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != 8 {
		t.Fatalf("got %v", ids)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}
