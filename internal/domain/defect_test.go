package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDefect(t *testing.T) *Defect {
	t.Helper()
	stage := NewStage("ORD-001", "ITEM-001", "PROD-001", ClassRegular, StationSanding, 4, "regular", 10, nil)
	task := NewTaskAssignment(stage, "WORKER-001", 10, nil)
	return NewDefect(task, 4)
}

// TestNewDefect tests defect creation from a task
func TestNewDefect(t *testing.T) {
	defect := newTestDefect(t)

	require.NotNil(t, defect)
	assert.NotEmpty(t, defect.DefectID)
	assert.Equal(t, "ORD-001", defect.OrderID)
	assert.Equal(t, "WORKER-001", defect.WorkerID)
	assert.Equal(t, StationSanding, defect.Station)
	assert.Equal(t, 4, defect.Quantity)
	assert.Equal(t, DefectStatusPendingReview, defect.Status)
}

// TestDefectApprove tests the approval transition
func TestDefectApprove(t *testing.T) {
	defect := newTestDefect(t)
	deadline := time.Now().Add(72 * time.Hour)

	require.NoError(t, defect.Approve("ADMIN-001", "scratched surface", &deadline))
	assert.Equal(t, DefectStatusApprovedForRework, defect.Status)
	assert.Equal(t, "ADMIN-001", defect.ReviewerID)
	require.NotNil(t, defect.Deadline)

	// Approving twice is not allowed
	assert.ErrorIs(t, defect.Approve("ADMIN-001", "", nil), ErrInvalidDefectTransition)
}

// TestDefectLifecycleNeverSkipsStates tests state reachability
func TestDefectLifecycleNeverSkipsStates(t *testing.T) {
	defect := newTestDefect(t)

	// reworked is unreachable before in_rework
	assert.ErrorIs(t, defect.CompleteRework(4, 0, 100.0), ErrInvalidDefectTransition)
	// in_rework is unreachable before approval
	assert.ErrorIs(t, defect.StartRework("WORKER-002", "TASK-002"), ErrInvalidDefectTransition)

	require.NoError(t, defect.Approve("ADMIN-001", "", nil))
	require.NoError(t, defect.StartRework("WORKER-002", "TASK-002"))
	assert.Equal(t, DefectStatusInRework, defect.Status)
	require.NotNil(t, defect.ReworkTaskID)

	require.NoError(t, defect.CompleteRework(4, 0, 320.5))
	assert.Equal(t, DefectStatusReworked, defect.Status)
	assert.Equal(t, 320.5, defect.ReworkCost)
	assert.Equal(t, 1, defect.Attempts)
}

// TestDefectFailedReworkLoopsBack tests the return-to-review edge
func TestDefectFailedReworkLoopsBack(t *testing.T) {
	defect := newTestDefect(t)
	require.NoError(t, defect.Approve("ADMIN-001", "", nil))
	require.NoError(t, defect.StartRework("WORKER-002", "TASK-002"))

	require.NoError(t, defect.CompleteRework(3, 1, 0))
	assert.Equal(t, DefectStatusPendingReview, defect.Status)
	assert.Nil(t, defect.ReworkTaskID)
	assert.Equal(t, 1, defect.Attempts)

	// The loop can run again through the full approval path
	require.NoError(t, defect.Approve("ADMIN-001", "second attempt", nil))
	require.NoError(t, defect.StartRework("WORKER-003", "TASK-003"))
	require.NoError(t, defect.CompleteRework(4, 0, 150.0))
	assert.Equal(t, DefectStatusReworked, defect.Status)
	assert.Equal(t, 2, defect.Attempts)
}

// TestDefectReject tests the terminal rejection
func TestDefectReject(t *testing.T) {
	defect := newTestDefect(t)

	require.NoError(t, defect.Reject("ADMIN-001", "customer accepted as-is"))
	assert.Equal(t, DefectStatusRejected, defect.Status)

	// Rejected is final
	assert.ErrorIs(t, defect.Approve("ADMIN-001", "", nil), ErrInvalidDefectTransition)
	assert.ErrorIs(t, defect.Reject("ADMIN-001", ""), ErrInvalidDefectTransition)
	assert.ErrorIs(t, defect.Replenish(), ErrInvalidDefectTransition)
}

// TestDefectReplenish tests the direct replenish path
func TestDefectReplenish(t *testing.T) {
	defect := newTestDefect(t)

	require.NoError(t, defect.Replenish())
	assert.Equal(t, DefectStatusReworked, defect.Status)
	assert.Nil(t, defect.ReworkStageID)

	approved := newTestDefect(t)
	require.NoError(t, approved.Approve("ADMIN-001", "", nil))
	assert.ErrorIs(t, approved.Replenish(), ErrInvalidDefectTransition)
}

// TestDefectDuplicateRework tests the duplicate rework task guard
func TestDefectDuplicateRework(t *testing.T) {
	defect := newTestDefect(t)
	require.NoError(t, defect.Approve("ADMIN-001", "", nil))
	require.NoError(t, defect.StartRework("WORKER-002", "TASK-002"))

	assert.ErrorIs(t, defect.StartRework("WORKER-003", "TASK-003"), ErrInvalidDefectTransition)
}
