package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-replypilot/internal/models"
)

func TestReplyLogRepository_HasSent(t *testing.T) {
	db := newTestDB(t)
	defer closeTestDB(db)
	repo := NewReplyLogRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.ReplyLog{
		ThreadID: "t1", TriggerMessageID: "m2", Recipient: "cust@x.com",
		Reason: "NEEDS_REPLY", Status: models.ReplyStatusFailed, Error: "relay refused",
	}))

	sent, err := repo.HasSent(ctx, "t1", "m2")
	require.NoError(t, err)
	assert.False(t, sent, "failed attempts do not count")

	require.NoError(t, repo.Create(ctx, &models.ReplyLog{
		ThreadID: "t1", TriggerMessageID: "m2", Recipient: "cust@x.com",
		Reason: "NEEDS_REPLY", Status: models.ReplyStatusSent, TrackingID: "trk",
	}))

	sent, err = repo.HasSent(ctx, "t1", "m2")
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = repo.HasSent(ctx, "t1", "m3")
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestReplyLogRepository_List(t *testing.T) {
	db := newTestDB(t)
	defer closeTestDB(db)
	repo := NewReplyLogRepository(db)
	ctx := context.Background()

	for _, trigger := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &models.ReplyLog{
			ThreadID: "t1", TriggerMessageID: trigger, Recipient: "cust@x.com",
			Reason: "NEEDS_REPLY", Status: models.ReplyStatusSent,
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.ReplyLog{
		ThreadID: "t2", TriggerMessageID: "z", Recipient: "o@x.com",
		Reason: "STALE_OWN_REPLY", Status: models.ReplyStatusSent,
	}))

	byThread, err := repo.ListByThread(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, byThread, 3)
	assert.Equal(t, "a", byThread[0].TriggerMessageID)

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "z", recent[0].TriggerMessageID)
}
