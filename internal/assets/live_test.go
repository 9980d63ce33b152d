package assets_test

import (
	"math/rand/v2"
	"testing"

	"infobeamer-cms/internal/assets"
)

func TestLiveExcludesUnconfirmed(t *testing.T) {
	var all []assets.Asset
	for i, state := range assets.States {
		all = append(all, assets.Asset{ID: int64(i + 1), User: "github:a", State: state})
	}
	for _, now := range []int64{0, 100, 1 << 40} {
		live := assets.Live(all, now, false)
		if len(live) != 1 || live[0].State != assets.StateConfirmed {
			t.Fatalf("now=%d: expected only the confirmed asset, got %+v", now, live)
		}
	}
}

func TestLiveOpenWindowAlwaysLive(t *testing.T) {
	asset := assets.Asset{ID: 1, State: assets.StateConfirmed}
	for _, now := range []int64{-1, 0, 1, 1_700_000_000} {
		if len(assets.Live([]assets.Asset{asset}, now, false)) != 1 {
			t.Fatalf("expected asset without window to be live at %d", now)
		}
	}
}

func TestLiveBoundedWindow(t *testing.T) {
	asset := assets.Asset{ID: 1, State: assets.StateConfirmed, Starts: ptr(100), Ends: ptr(200)}
	cases := map[int64]bool{99: false, 100: true, 150: true, 200: true, 201: false}
	for now, want := range cases {
		got := len(assets.Live([]assets.Asset{asset}, now, false)) == 1
		if got != want {
			t.Fatalf("now=%d: live=%v want %v", now, got, want)
		}
	}
	if len(assets.Live([]assets.Asset{asset}, 99, true)) != 1 {
		t.Fatal("expected window to be ignored when time filter is disabled")
	}
}

func TestLiveHalfOpenWindows(t *testing.T) {
	startsOnly := assets.Asset{ID: 1, State: assets.StateConfirmed, Starts: ptr(100)}
	endsOnly := assets.Asset{ID: 2, State: assets.StateConfirmed, Ends: ptr(100)}

	if ids := assets.IDs(assets.Live([]assets.Asset{startsOnly, endsOnly}, 50, false)); len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("now=50: unexpected live ids %v", ids)
	}
	if ids := assets.IDs(assets.Live([]assets.Asset{startsOnly, endsOnly}, 500, false)); len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("now=500: unexpected live ids %v", ids)
	}
}

func TestLiveZeroBoundIsOpen(t *testing.T) {
	asset, ok, err := assets.Parse(raw(t, 9, "image", `{"user":"github:alice","state":"confirmed","starts":"0","ends":0}`))
	if err != nil || !ok {
		t.Fatalf("Parse returned ok=%v err=%v", ok, err)
	}
	if ids := assets.IDs(assets.Live([]assets.Asset{asset}, 1700000000, false)); len(ids) != 1 || ids[0] != 9 {
		t.Fatalf("expected zero bounds to be open, got live ids %v", ids)
	}

	endsZero := assets.Asset{ID: 2, State: assets.StateConfirmed, Starts: ptr(100), Ends: ptr(0)}
	if ids := assets.IDs(assets.Live([]assets.Asset{endsZero}, 50, false)); len(ids) != 0 {
		t.Fatalf("non-zero starts must still apply, got %v", ids)
	}
}

func TestShuffleKeepsMembership(t *testing.T) {
	in := []assets.Asset{{ID: 3}, {ID: 1}, {ID: 2}}
	out := assets.Shuffle(in, rand.New(rand.NewPCG(1, 2)))
	if len(out) != 3 {
		t.Fatalf("unexpected length %d", len(out))
	}
	ids := assets.IDs(out)
	if ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("membership changed: %v", ids)
	}
	if in[0].ID != 3 {
		t.Fatal("input slice must not be reordered")
	}
}

func TestSelectionHelpers(t *testing.T) {
	all := []assets.Asset{
		{ID: 1, User: "github:a", State: assets.StateNew},
		{ID: 2, User: "github:a", State: assets.StateDeleted},
		{ID: 3, User: "github:b", State: assets.StateReview},
		{ID: 4, User: "github:a", State: assets.StateReview},
	}

	if ids := assets.IDs(assets.OwnedBy(all, "github:a")); len(ids) != 2 || ids[0] != 1 || ids[1] != 4 {
		t.Fatalf("unexpected owned ids %v", ids)
	}
	if ids := assets.IDs(assets.AwaitingModeration(all)); len(ids) != 2 || ids[0] != 3 {
		t.Fatalf("unexpected review ids %v", ids)
	}
	if len(assets.Pending(all)) != 3 {
		t.Fatalf("expected three pending assets")
	}

	counts := assets.CountByState(all)
	if len(counts) != len(assets.States) {
		t.Fatalf("expected every state present, got %v", counts)
	}
	if counts[assets.StateReview] != 2 || counts[assets.StateConfirmed] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
