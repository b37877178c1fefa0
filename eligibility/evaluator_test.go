package eligibility_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/perks-engine/eligibility"
	"github.com/warp/perks-engine/offer"
	"github.com/warp/perks-engine/usage"
	"github.com/warp/perks-engine/usage/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newFixture() (*eligibility.Evaluator, *store.Memory) {
	mem := store.NewMemory()
	return eligibility.NewEvaluator(mem), mem
}

func unlimitedOffer(id string) *offer.Offer {
	return &offer.Offer{
		ID:                 id,
		SupplierID:         "sup-1",
		UsageLimit:         offer.Unlimited,
		RedemptionType:     offer.Branch,
		DiscountPercentage: decimal.NewFromInt(10),
	}
}

func singleUseOffer(id string) *offer.Offer {
	o := unlimitedOffer(id)
	o.UsageLimit = offer.OncePerEmployee
	return o
}

func multiUseOffer(id string, uses int) *offer.Offer {
	o := unlimitedOffer(id)
	o.UsageLimit = offer.MultipleUses
	o.UsesPerEmployee = uses
	return o
}

func record(t *testing.T, mem *store.Memory, employeeID, offerID string, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		_, err := mem.RecordUsage(context.Background(), employeeID, offerID, "")
		require.NoError(t, err)
	}
}

// =============================================================================
// EVALUATE TESTS
// =============================================================================

func TestEvaluate_Unlimited_AlwaysAllowed(t *testing.T) {
	// GIVEN: An unlimited offer with many recorded usages
	// WHEN: Evaluating eligibility
	// THEN: Always allowed, regardless of prior recordings

	ev, mem := newFixture()
	o := unlimitedOffer("o-unlim")
	record(t, mem, "emp-1", o.ID, 25)

	d, err := ev.Evaluate(context.Background(), "emp-1", o)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reason)
}

func TestEvaluate_OncePerEmployee_Lifecycle(t *testing.T) {
	// GIVEN: A single-use offer
	// WHEN: Evaluating before and after the one recording
	// THEN: First allowed, then denied with the single-use reason

	ev, mem := newFixture()
	o := singleUseOffer("o-once")
	ctx := context.Background()

	d, err := ev.Evaluate(ctx, "emp-1", o)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "first evaluation must be allowed")

	record(t, mem, "emp-1", o.ID, 1)

	d, err = ev.Evaluate(ctx, "emp-1", o)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "offer already used, single-use only", d.Reason)

	// Another employee is unaffected.
	d, err = ev.Evaluate(ctx, "emp-2", o)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestEvaluate_MultipleUses_DeniesAtCap(t *testing.T) {
	// GIVEN: Employee E1, offer O1 with two uses per employee
	// WHEN: Recording usages up to the cap
	// THEN: Allowed at counts 0 and 1, denied at 2 with a reason citing max 2

	ev, mem := newFixture()
	o := multiUseOffer("o-multi", 2)
	ctx := context.Background()

	d, err := ev.Evaluate(ctx, "emp-1", o)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	record(t, mem, "emp-1", o.ID, 1)
	d, err = ev.Evaluate(ctx, "emp-1", o)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	record(t, mem, "emp-1", o.ID, 1)
	d, err = ev.Evaluate(ctx, "emp-1", o)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "maximum 2")
}

func TestEvaluate_MultipleUses_UnsetCapDefaultsToOne(t *testing.T) {
	// Legacy records may omit the cap; the lenient default treats it as 1.
	ev, mem := newFixture()
	o := multiUseOffer("o-default", 0)
	ctx := context.Background()

	d, err := ev.Evaluate(ctx, "emp-1", o)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	record(t, mem, "emp-1", o.ID, 1)
	d, err = ev.Evaluate(ctx, "emp-1", o)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestEvaluate_NilOffer_IsOfferNotFound(t *testing.T) {
	ev, _ := newFixture()

	_, err := ev.Evaluate(context.Background(), "emp-1", nil)
	assert.ErrorIs(t, err, usage.ErrOfferNotFound)
}

// =============================================================================
// REMAINING USES TESTS
// =============================================================================

func TestRemainingUses_Unlimited(t *testing.T) {
	ev, _ := newFixture()

	rem, err := ev.RemainingUses(context.Background(), "emp-1", unlimitedOffer("o-1"))
	require.NoError(t, err)
	assert.True(t, rem.Unlimited)
}

func TestRemainingUses_OncePerEmployee_TransitionsOnce(t *testing.T) {
	ev, mem := newFixture()
	o := singleUseOffer("o-once")
	ctx := context.Background()

	rem, err := ev.RemainingUses(ctx, "emp-1", o)
	require.NoError(t, err)
	assert.Equal(t, eligibility.Remaining{Uses: 1}, rem)

	record(t, mem, "emp-1", o.ID, 1)

	rem, err = ev.RemainingUses(ctx, "emp-1", o)
	require.NoError(t, err)
	assert.Equal(t, eligibility.Remaining{Uses: 0}, rem)
}

func TestRemainingUses_MultipleUses_DecreasesByOne(t *testing.T) {
	// GIVEN: A 3-use offer
	// WHEN: Recording one usage at a time
	// THEN: Remaining decreases by exactly 1 per recording, never negative

	ev, mem := newFixture()
	o := multiUseOffer("o-multi", 3)
	ctx := context.Background()

	for want := 3; want > 0; want-- {
		rem, err := ev.RemainingUses(ctx, "emp-1", o)
		require.NoError(t, err)
		assert.Equal(t, want, rem.Uses)
		record(t, mem, "emp-1", o.ID, 1)
	}

	rem, err := ev.RemainingUses(ctx, "emp-1", o)
	require.NoError(t, err)
	assert.Equal(t, 0, rem.Uses)

	// Over-recorded state (e.g. offer cap lowered after the fact) still
	// reads as zero, not negative.
	record(t, mem, "emp-1", o.ID, 2)
	rem, err = ev.RemainingUses(ctx, "emp-1", o)
	require.NoError(t, err)
	assert.Equal(t, 0, rem.Uses)
}

// =============================================================================
// BROWSE HINT + STATUS TEXT TESTS
// =============================================================================

func TestShouldHideFromBrowse(t *testing.T) {
	ev, mem := newFixture()
	ctx := context.Background()

	once := singleUseOffer("o-once")
	multi := multiUseOffer("o-multi", 1)
	unlim := unlimitedOffer("o-unlim")

	hide, err := ev.ShouldHideFromBrowse(ctx, "emp-1", once)
	require.NoError(t, err)
	assert.False(t, hide, "unused single-use offer stays visible")

	record(t, mem, "emp-1", once.ID, 1)
	record(t, mem, "emp-1", multi.ID, 1)
	record(t, mem, "emp-1", unlim.ID, 1)

	hide, err = ev.ShouldHideFromBrowse(ctx, "emp-1", once)
	require.NoError(t, err)
	assert.True(t, hide, "used single-use offer is hidden")

	hide, err = ev.ShouldHideFromBrowse(ctx, "emp-1", multi)
	require.NoError(t, err)
	assert.False(t, hide, "exhausted multi-use offers stay visible")

	hide, err = ev.ShouldHideFromBrowse(ctx, "emp-1", unlim)
	require.NoError(t, err)
	assert.False(t, hide)
}

func TestStatusText(t *testing.T) {
	ev, mem := newFixture()
	ctx := context.Background()

	cases := []struct {
		name   string
		o      *offer.Offer
		before string
		after  string
	}{
		{"unlimited", unlimitedOffer("s-1"), "unlimited use", "unlimited use"},
		{"once per employee", singleUseOffer("s-2"), "single use only", "used"},
		{"multiple uses", multiUseOffer("s-3", 3), "3 of 3 remaining", "2 of 3 remaining"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text, err := ev.StatusText(ctx, "emp-1", tc.o)
			require.NoError(t, err)
			assert.Equal(t, tc.before, text)

			record(t, mem, "emp-1", tc.o.ID, 1)

			text, err = ev.StatusText(ctx, "emp-1", tc.o)
			require.NoError(t, err)
			assert.Equal(t, tc.after, text)
		})
	}
}

// =============================================================================
// STORAGE FAILURE PROPAGATION
// =============================================================================

// failingStore returns a storage error on every read.
type failingStore struct {
	store.Memory
}

func (f *failingStore) Get(ctx context.Context, employeeID, offerID string) (usage.EmployeeOfferUsage, bool, error) {
	return usage.EmployeeOfferUsage{}, false, &usage.StorageError{
		Op:  "get",
		Key: usage.Key{EmployeeID: employeeID, OfferID: offerID},
		Err: errors.New("connection refused"),
	}
}

func TestEvaluate_StorageFailurePropagates(t *testing.T) {
	ev := eligibility.NewEvaluator(&failingStore{})

	_, err := ev.Evaluate(context.Background(), "emp-1", singleUseOffer("o-1"))
	assert.ErrorIs(t, err, usage.ErrStorageFailure)
	assert.True(t, usage.IsRetryable(err))
}
