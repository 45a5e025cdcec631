package services

import (
	"go_datachat_backend/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryListIsRecencyOrdered(t *testing.T) {
	r := NewSessionRegistry()
	r.Save(&models.Conversation{ID: "a"})
	r.Save(&models.Conversation{ID: "b"})

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)

	r.AppendMessage("a", "m1")
	list = r.List()
	assert.Equal(t, "a", list[0].ID)
}

func TestRegistryDeleteGuardsLastConversation(t *testing.T) {
	r := NewSessionRegistry()
	r.Save(&models.Conversation{ID: "only"})

	err := r.Delete("only")
	require.Error(t, err)
	_, ok := r.ByID("only")
	assert.True(t, ok)

	r.Save(&models.Conversation{ID: "second"})
	assert.NoError(t, r.Delete("only"))
}

func TestRegistryDeleteUnknown(t *testing.T) {
	r := NewSessionRegistry()
	r.Save(&models.Conversation{ID: "a"})
	assert.Error(t, r.Delete("missing"))
}

func TestRegistryDeleteCancelsRun(t *testing.T) {
	r := NewSessionRegistry()
	r.Save(&models.Conversation{ID: "a"})
	r.Save(&models.Conversation{ID: "b"})

	ctx, _ := r.BeginRun("a")
	require.NoError(t, r.Delete("a"))
	assert.Error(t, ctx.Err())
}

func TestBeginRunCancelsPreviousRun(t *testing.T) {
	r := NewSessionRegistry()
	r.Save(&models.Conversation{ID: "a"})

	ctx1, stop1 := r.BeginRun("a")
	ctx2, stop2 := r.BeginRun("a")
	defer stop2()

	assert.Error(t, ctx1.Err())
	assert.NoError(t, ctx2.Err())

	// the stale run's stop must not touch the newer run
	stop1()
	assert.NoError(t, ctx2.Err())
}

func TestAppendAndLatestMessage(t *testing.T) {
	r := NewSessionRegistry()
	r.Save(&models.Conversation{ID: "a"})

	_, ok := r.LatestMessageID("a")
	assert.False(t, ok)

	r.AppendMessage("a", "m1")
	r.AppendMessage("a", "m2")
	id, ok := r.LatestMessageID("a")
	require.True(t, ok)
	assert.Equal(t, "m2", id)

	r.RemoveMessage("a", "m2")
	id, _ = r.LatestMessageID("a")
	assert.Equal(t, "m1", id)
}

func TestBindSummaryRenamesDefaultConversation(t *testing.T) {
	r := NewSessionRegistry()
	r.Save(&models.Conversation{ID: "a", Name: models.DefaultConvoName})
	r.Save(&models.Conversation{ID: "b", Name: "my analysis"})

	r.BindSummary("a", 3, "job-1", "orders_db", false)
	convo, _ := r.ByID("a")
	assert.Equal(t, "orders_db", convo.Name)
	assert.Equal(t, int64(3), convo.DBSummaryID)
	assert.Equal(t, "job-1", convo.DBSummaryJobID)

	// explicit names survive a summary bind
	r.BindSummary("b", 4, "job-2", "orders_db", false)
	convo, _ = r.ByID("b")
	assert.Equal(t, "my analysis", convo.Name)
}

func TestRegistryReturnsClones(t *testing.T) {
	r := NewSessionRegistry()
	r.Save(&models.Conversation{ID: "a", Name: "original"})

	convo, _ := r.ByID("a")
	convo.Name = "mutated"

	again, _ := r.ByID("a")
	assert.Equal(t, "original", again.Name)
}

func TestReplaceMessages(t *testing.T) {
	r := NewSessionRegistry()
	r.Save(&models.Conversation{ID: "a"})
	r.AppendMessage("a", "stale")

	r.ReplaceMessages("a", []string{"m1", "m2"})
	r.MarkMessagesLoaded("a")

	convo, _ := r.ByID("a")
	assert.Equal(t, []string{"m1", "m2"}, convo.Messages)
	assert.True(t, convo.MessagesLoaded)
	assert.False(t, convo.LoadingMessages)
}
