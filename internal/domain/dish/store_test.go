package dish

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T, dishes ...*Dish) *Store {
	t.Helper()
	store := NewStore(zerolog.Nop())
	if err := store.ReplaceAll("scan_test", dishes); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	return store
}

func testDish(id string) *Dish {
	return &Dish{
		ID:                 id,
		OriginalName:       "牛肉面",
		EnglishTranslation: "Beef Noodle Soup",
		Description:        "wheat noodles, braised beef, scallion",
	}
}

func TestReplaceAllResetsState(t *testing.T) {
	d := testDish("dish_1")
	d.GenerationState = StateSucceeded
	d.ImageRef = &ImageRef{URL: "https://img.example/stale.png"}

	store := newTestStore(t, d)

	got, ok := store.Get("dish_1")
	if !ok {
		t.Fatalf("dish not found after ReplaceAll")
	}
	if got.GenerationState != StateNotRequested {
		t.Errorf("state = %s, want %s", got.GenerationState, StateNotRequested)
	}
	if got.ImageRef != nil {
		t.Errorf("ImageRef = %+v, want nil", got.ImageRef)
	}
}

func TestReplaceAllRejectsDuplicateIDs(t *testing.T) {
	store := NewStore(zerolog.Nop())
	err := store.ReplaceAll("scan_dup", []*Dish{testDish("dish_1"), testDish("dish_1")})
	if err == nil {
		t.Fatal("expected duplicate id error, got nil")
	}
}

func TestTransitionTable(t *testing.T) {
	ref := ImageRef{URL: "https://img.example/dish.png"}

	tests := []struct {
		name    string
		setup   []Event
		event   Event
		want    GenerationState
		wantErr error
	}{
		{name: "visible from not requested", event: Visible(), want: StatePending},
		{name: "visible while pending ignored", setup: []Event{Visible()}, event: Visible(), want: StatePending, wantErr: ErrInvalidTransition},
		{name: "succeed from pending", setup: []Event{Visible()}, event: Succeeded(ref), want: StateSucceeded},
		{name: "fail from pending", setup: []Event{Visible()}, event: Failed(), want: StateFailed},
		{name: "retry from failed", setup: []Event{Visible(), Failed()}, event: Retry(), want: StatePending},
		{name: "retry from succeeded ignored", setup: []Event{Visible(), Succeeded(ref)}, event: Retry(), want: StateSucceeded, wantErr: ErrInvalidTransition},
		{name: "visible after failure ignored", setup: []Event{Visible(), Failed()}, event: Visible(), want: StateFailed, wantErr: ErrInvalidTransition},
		{name: "retry from not requested ignored", event: Retry(), want: StateNotRequested, wantErr: ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, testDish("dish_1"))
			for _, ev := range tt.setup {
				if _, err := store.Transition("dish_1", ev); err != nil {
					t.Fatalf("setup transition %s: %v", ev.Kind, err)
				}
			}

			got, err := store.Transition("dish_1", tt.event)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got.GenerationState != tt.want {
				t.Errorf("state = %s, want %s", got.GenerationState, tt.want)
			}
		})
	}
}

func TestTransitionUnknownDish(t *testing.T) {
	store := newTestStore(t, testDish("dish_1"))
	if _, err := store.Transition("dish_missing", Visible()); !errors.Is(err, ErrDishNotFound) {
		t.Fatalf("err = %v, want ErrDishNotFound", err)
	}
}

func TestSucceededRequiresImageRef(t *testing.T) {
	store := newTestStore(t, testDish("dish_1"))
	if _, err := store.Transition("dish_1", Visible()); err != nil {
		t.Fatalf("visible: %v", err)
	}

	got, err := store.Transition("dish_1", Succeeded(ImageRef{}))
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if got.GenerationState != StatePending {
		t.Errorf("state = %s, want %s", got.GenerationState, StatePending)
	}
	if got.ImageRef != nil {
		t.Errorf("ImageRef = %+v, want nil", got.ImageRef)
	}
}

func TestImageRefOnlyOnSuccess(t *testing.T) {
	store := newTestStore(t, testDish("dish_1"))
	ref := ImageRef{URL: "https://img.example/dish.png"}

	store.Transition("dish_1", Visible())
	store.Transition("dish_1", Succeeded(ref))

	got, _ := store.Get("dish_1")
	if got.ImageRef == nil || got.ImageRef.URL != ref.URL {
		t.Fatalf("ImageRef = %+v, want %+v", got.ImageRef, ref)
	}

	// A fresh collection must not carry the old reference over.
	if err := store.ReplaceAll("scan_next", []*Dish{testDish("dish_1")}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	got, _ = store.Get("dish_1")
	if got.ImageRef != nil {
		t.Errorf("ImageRef after replace = %+v, want nil", got.ImageRef)
	}
}

func TestListPreservesScanOrder(t *testing.T) {
	store := newTestStore(t, testDish("dish_3"), testDish("dish_1"), testDish("dish_2"))

	got := store.List()
	wantOrder := []string{"dish_3", "dish_1", "dish_2"}
	if len(got) != len(wantOrder) {
		t.Fatalf("len = %d, want %d", len(got), len(wantOrder))
	}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("dish[%d].ID = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestGetReturnsCopy(t *testing.T) {
	store := newTestStore(t, testDish("dish_1"))

	got, _ := store.Get("dish_1")
	got.GenerationState = StateFailed

	again, _ := store.Get("dish_1")
	if again.GenerationState != StateNotRequested {
		t.Errorf("store mutated through returned copy: state = %s", again.GenerationState)
	}
}

func TestClear(t *testing.T) {
	store := newTestStore(t, testDish("dish_1"))
	store.Clear()

	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
	if store.ScanID() != "" {
		t.Errorf("ScanID = %q, want empty", store.ScanID())
	}
	if _, err := store.Transition("dish_1", Visible()); !errors.Is(err, ErrDishNotFound) {
		t.Errorf("err = %v, want ErrDishNotFound", err)
	}
}
