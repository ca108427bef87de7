package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeItems(t *testing.T) {
	tests := map[string]struct {
		into       []Item
		from       []Item
		want       []Item
		wantMoved  int
		wantSummed int
	}{
		"sums matching product": {
			into:       []Item{{ProductID: "A", Quantity: 1}},
			from:       []Item{{ProductID: "A", Quantity: 2}},
			want:       []Item{{ProductID: "A", Quantity: 3}},
			wantSummed: 1,
		},
		"moves new products after existing ones": {
			into:       []Item{{ProductID: "A", Quantity: 1}},
			from:       []Item{{ProductID: "B", Quantity: 4}, {ProductID: "A", Quantity: 1}, {ProductID: "C", Quantity: 1}},
			want:       []Item{{ProductID: "A", Quantity: 2}, {ProductID: "B", Quantity: 4}, {ProductID: "C", Quantity: 1}},
			wantMoved:  2,
			wantSummed: 1,
		},
		"empty user cart": {
			into:      nil,
			from:      []Item{{ProductID: "A", Quantity: 2}},
			want:      []Item{{ProductID: "A", Quantity: 2}},
			wantMoved: 1,
		},
		"empty session cart": {
			into: []Item{{ProductID: "A", Quantity: 2}},
			from: nil,
			want: []Item{{ProductID: "A", Quantity: 2}},
		},
		"ignores non-positive lines": {
			into: []Item{{ProductID: "A", Quantity: 2}},
			from: []Item{{ProductID: "B", Quantity: 0}},
			want: []Item{{ProductID: "A", Quantity: 2}},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, moved, summed := MergeItems(tc.into, tc.from)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantMoved, moved)
			assert.Equal(t, tc.wantSummed, summed)
		})
	}
}

func TestMergeItemsDoesNotMutateInput(t *testing.T) {
	into := []Item{{ProductID: "A", Quantity: 1}}

	MergeItems(into, []Item{{ProductID: "A", Quantity: 5}})

	assert.Equal(t, 1, into[0].Quantity)
}

func TestOwnerValidate(t *testing.T) {
	assert.NoError(t, UserOwner("u1").Validate())
	assert.NoError(t, SessionOwner("s1").Validate())
	assert.ErrorIs(t, Owner{}.Validate(), ErrInvalidOwner)
	assert.ErrorIs(t, Owner{UserID: "u1", SessionKey: "s1"}.Validate(), ErrInvalidOwner)
	assert.ErrorIs(t, UserOwner("   ").Validate(), ErrInvalidOwner)

	assert.Equal(t, "user:u1", UserOwner("u1").Key())
	assert.Equal(t, "session:s1", SessionOwner("s1").Key())
}
