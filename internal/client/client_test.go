package client_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/prism/internal/client"
)

func TestDeduplicatorFlagsRepeatsWithinTTL(t *testing.T) {
	d := client.NewDeduplicator(time.Hour)
	msg := []byte("hello")
	assert.True(t, d.IsNew(msg))
	assert.False(t, d.IsNew(msg))
}

func TestDeduplicatorPurgeDropsExpired(t *testing.T) {
	d := client.NewDeduplicator(time.Millisecond)
	msg := []byte("hello")
	assert.True(t, d.IsNew(msg))
	time.Sleep(5 * time.Millisecond)
	d.Purge()
	assert.True(t, d.IsNew(msg))
}

func TestMessageStoreTracksContactsAndConversations(t *testing.T) {
	store := client.NewMessageStore("alice")
	now := time.Now()
	store.Record(client.ClearText{Sender: "bob", Receiver: "alice", Body: []byte("hi"), Timestamp: now})
	store.Record(client.ClearText{Sender: "alice", Receiver: "bob", Body: []byte("yo"), Timestamp: now.Add(time.Second)})

	assert.Equal(t, []string{"bob"}, store.Contacts())
	assert.Len(t, store.Received(), 1)
	convo := store.ConversationWith("bob")
	require.Len(t, convo, 2)
	assert.True(t, convo[0].Timestamp.Before(convo[1].Timestamp))
}

func TestFindRoutePicksReachableStartWithEnoughHops(t *testing.T) {
	target := client.ServerRecord{Name: "dropbox-1"}
	starts := []client.ServerRecord{{Name: "emix-a", Epoch: "e1"}}
	candidates := []client.ServerRecord{
		{Name: "emix-a", Epoch: "e1"},
		{Name: "emix-b", Epoch: "e1"},
		{Name: "emix-c", Epoch: "e1"},
	}

	route := client.FindRoute(client.AlwaysReachable, starts, candidates, target, 2, "e1")
	require.NotNil(t, route)
	assert.Len(t, route.Hops, 2)
	assert.Equal(t, "dropbox-1", route.Target.Name)
}

func TestFindRouteFailsWithoutEnoughHops(t *testing.T) {
	target := client.ServerRecord{Name: "dropbox-1"}
	starts := []client.ServerRecord{{Name: "emix-a", Epoch: "e1"}}
	candidates := []client.ServerRecord{{Name: "emix-a", Epoch: "e1"}}

	route := client.FindRoute(client.AlwaysReachable, starts, candidates, target, 3, "e1")
	assert.Nil(t, route)
}

func TestSendLogEntryFinishedAfterRedundancy(t *testing.T) {
	entry := &client.SendLogEntry{Redundancy: 2}
	assert.False(t, entry.Finished())
	entry.Sent(client.Route{Target: client.ServerRecord{Name: "db1"}, Timestamp: time.Now()})
	assert.False(t, entry.Finished())
	entry.Sent(client.Route{Target: client.ServerRecord{Name: "db2"}, Timestamp: time.Now()})
	assert.True(t, entry.Finished())
}

func TestSendLogAttemptRequeuesUnfinishedEntries(t *testing.T) {
	log := client.NewSendLog(2, 10*time.Millisecond)
	log.Add(client.ClearText{Sender: "alice", Receiver: "bob"})
	require.Equal(t, 1, log.Len())

	ok := log.Attempt(client.AlwaysReachable, func(e *client.SendLogEntry) {
		e.Sent(client.Route{Target: client.ServerRecord{Name: "db1"}, Timestamp: time.Now()})
	})
	assert.True(t, ok)
	assert.Equal(t, 1, log.Len()) // still pending one more redundant send

	log.Attempt(client.AlwaysReachable, func(e *client.SendLogEntry) {
		e.Sent(client.Route{Target: client.ServerRecord{Name: "db2"}, Timestamp: time.Now()})
	})
	assert.Equal(t, 0, log.Len())
	assert.True(t, log.Empty())
}
