package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledLedgerIsNoop(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, EnsureSchema(ctx, nil))
	assert.NoError(t, RecordSubmission(ctx, nil, Lead{RecordID: "rec1"}))
	assert.NoError(t, RecordUpdate(ctx, nil, "rec1", LeadUpdate{MeetingLink: "https://meet"}))

	leads, err := ListRecent(ctx, nil, 10)
	assert.NoError(t, err)
	assert.Empty(t, leads)

	_, err = GetLead(ctx, nil, "rec1")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestLeadUpdateEmpty(t *testing.T) {
	assert.True(t, LeadUpdate{}.Empty())
	assert.False(t, LeadUpdate{ScheduledTime: "2025-01-01T00:00:00Z"}.Empty())
}
