package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStage(plan int) *Stage {
	return NewStage("ORD-001", "ITEM-001", "PROD-001", ClassRegular, StationCutting, 0, "regular", plan, nil)
}

// TestNewStage tests stage creation
func TestNewStage(t *testing.T) {
	deadline := time.Now().Add(48 * time.Hour)
	stage := NewStage("ORD-001", "ITEM-001", "PROD-001", ClassRegular, StationCutting, 0, "regular", 10, &deadline)

	require.NotNil(t, stage)
	assert.NotEmpty(t, stage.StageID)
	assert.Equal(t, "ORD-001", stage.OrderID)
	require.NotNil(t, stage.LineItemID)
	assert.Equal(t, "ITEM-001", *stage.LineItemID)
	assert.False(t, stage.IsAggregated())
	assert.Equal(t, 10, stage.PlanQuantity)
	assert.Equal(t, 0, stage.CompletedQuantity)
	assert.Equal(t, StageStatusInProgress, stage.Status)

	events := stage.GetDomainEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(*StageCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, stage.StageID, created.StageID)
	assert.False(t, created.Aggregated)
}

// TestNewAggregatedStage tests aggregated stage creation
func TestNewAggregatedStage(t *testing.T) {
	stage := NewAggregatedStage("ORD-001", StationCutting, 0, "regular", 25, nil)

	require.NotNil(t, stage)
	assert.Nil(t, stage.LineItemID)
	assert.True(t, stage.IsAggregated())
	assert.Equal(t, 25, stage.PlanQuantity)
}

// TestStageConfirm tests the confirmation outcomes
func TestStageConfirm(t *testing.T) {
	tests := []struct {
		name          string
		plan          int
		completed     int
		wantAdvance   int
		wantRemainder int
		wantStatus    StageStatus
		wantErr       error
	}{
		{name: "full completion", plan: 10, completed: 10, wantAdvance: 10, wantStatus: StageStatusDone},
		{name: "partial completion", plan: 10, completed: 7, wantAdvance: 7, wantRemainder: 3, wantStatus: StageStatusPartial},
		{name: "zero is a no-op", plan: 10, completed: 0, wantStatus: StageStatusInProgress},
		{name: "negative rejected", plan: 10, completed: -1, wantStatus: StageStatusInProgress, wantErr: ErrInvalidQuantity},
		{name: "exceeding plan rejected", plan: 10, completed: 11, wantStatus: StageStatusInProgress, wantErr: ErrQuantityExceedsPlan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage := newTestStage(tt.plan)
			advance, remainder, err := stage.Confirm(tt.completed)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0, stage.CompletedQuantity)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantAdvance, advance)
				assert.Equal(t, tt.wantRemainder, remainder)
			}
			assert.Equal(t, tt.wantStatus, stage.Status)
			assert.LessOrEqual(t, stage.CompletedQuantity, stage.PlanQuantity)
		})
	}
}

// TestStageConfirmNotActive tests confirming a held stage
func TestStageConfirmNotActive(t *testing.T) {
	stage := newTestStage(10)
	require.NoError(t, stage.Hold())

	_, _, err := stage.Confirm(5)
	assert.ErrorIs(t, err, ErrStageNotActive)
}

// TestSplitRemainder tests the sibling remainder stage
func TestSplitRemainder(t *testing.T) {
	deadline := time.Now().Add(24 * time.Hour)
	stage := NewStage("ORD-001", "ITEM-001", "PROD-001", ClassRegular, StationSanding, 4, "regular", 10, &deadline)

	_, remainder, err := stage.Confirm(7)
	require.NoError(t, err)
	require.Equal(t, 3, remainder)

	sibling := stage.SplitRemainder(remainder)
	require.NotNil(t, sibling)
	assert.NotEqual(t, stage.StageID, sibling.StageID)
	assert.Equal(t, stage.Station, sibling.Station)
	assert.Equal(t, stage.Sequence, sibling.Sequence)
	assert.Equal(t, stage.LineItemID, sibling.LineItemID)
	assert.Equal(t, 3, sibling.PlanQuantity)
	assert.Equal(t, StageStatusInProgress, sibling.Status)
	assert.Nil(t, sibling.Deadline)
}

// TestStageAddPlan tests merge by addition
func TestStageAddPlan(t *testing.T) {
	stage := newTestStage(10)
	require.NoError(t, stage.Hold())

	stage.AddPlan(5)
	assert.Equal(t, 15, stage.PlanQuantity)
	assert.Equal(t, StageStatusInProgress, stage.Status)
}

// TestStageReplacePlan tests plan replacement on manual transfer
func TestStageReplacePlan(t *testing.T) {
	stage := newTestStage(10)
	_, _, err := stage.Confirm(4)
	require.NoError(t, err)

	require.NoError(t, stage.ReplacePlan(8))
	assert.Equal(t, 8, stage.PlanQuantity)
	assert.Equal(t, StageStatusInProgress, stage.Status)

	// Replacing below completed quantity would break the invariant
	assert.ErrorIs(t, stage.ReplacePlan(3), ErrQuantityExceedsPlan)
}

// TestStageTransferOut tests manual transfer out of a stage
func TestStageTransferOut(t *testing.T) {
	stage := newTestStage(10)

	// A partial transfer keeps the rest in progress here
	require.NoError(t, stage.TransferOut(3, StationCNC))
	assert.Equal(t, 7, stage.PlanQuantity)
	assert.Equal(t, StageStatusInProgress, stage.Status)

	// Moving everything left closes the stage
	require.NoError(t, stage.TransferOut(7, StationCNC))
	assert.Equal(t, StageStatusDone, stage.Status)
	assert.ErrorIs(t, stage.TransferOut(1, StationCNC), ErrStageNotActive)
}

// TestStageTransferOutBounds tests the remaining-plan bound
func TestStageTransferOutBounds(t *testing.T) {
	stage := newTestStage(10)

	assert.ErrorIs(t, stage.TransferOut(0, StationCNC), ErrInvalidQuantity)
	assert.ErrorIs(t, stage.TransferOut(11, StationCNC), ErrQuantityExceedsPlan)
}

// TestStagePostpone tests deadline shifting
func TestStagePostpone(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stage := NewStage("ORD-001", "ITEM-001", "PROD-001", ClassRegular, StationCutting, 0, "regular", 10, &deadline)

	require.NoError(t, stage.Postpone())
	require.NotNil(t, stage.Deadline)
	assert.Equal(t, deadline.Add(24*time.Hour), *stage.Deadline)

	noDeadline := newTestStage(10)
	assert.ErrorIs(t, noDeadline.Postpone(), ErrNoDeadline)
}

// TestStageHold tests the waiting state
func TestStageHold(t *testing.T) {
	stage := newTestStage(10)

	require.NoError(t, stage.Hold())
	assert.Equal(t, StageStatusWaiting, stage.Status)

	assert.ErrorIs(t, stage.Hold(), ErrStageNotActive)
}
