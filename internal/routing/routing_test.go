package routing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/prism/internal/logging"
	"github.com/luxfi/prism/internal/routing"
)

// base anchors test timestamps at the current time so the 60-second TTL
// has not already elapsed when an LSP is inserted.
var base = time.Now().UnixMicro()

func lsp(originator string, neighbors []routing.Neighbor, ts int64) routing.LSP {
	return routing.LSP{
		Originator:     originator,
		Neighbors:      neighbors,
		MicroTimestamp: base + ts,
		TTL:            60,
		HopCount:       0,
	}
}

func TestUpdateIfRejectsStaleTimestamp(t *testing.T) {
	db := routing.NewDatabase("a", 8, "genesis", logging.Nop())

	require.True(t, db.UpdateIf(lsp("b", nil, 100)))
	require.False(t, db.UpdateIf(lsp("b", nil, 50)))
	require.True(t, db.UpdateIf(lsp("b", nil, 200)))
}

func TestRoutingTableDijkstra(t *testing.T) {
	db := routing.NewDatabase("a", 8, "genesis", logging.Nop())

	require.True(t, db.UpdateIf(lsp("a", []routing.Neighbor{{Pseudonym: "b", Cost: 1}}, 1)))
	require.True(t, db.UpdateIf(lsp("b", []routing.Neighbor{{Pseudonym: "a", Cost: 1}, {Pseudonym: "c", Cost: 1}}, 1)))
	require.True(t, db.UpdateIf(lsp("c", []routing.Neighbor{{Pseudonym: "b", Cost: 1}}, 1)))

	db.UpdateRoutingTable()

	hop, ok := db.NextHop("c")
	require.True(t, ok)
	assert.Equal(t, "b", hop)

	dests := db.ReachableDestinations()
	assert.ElementsMatch(t, []string{"b", "c"}, dests)
}

func TestNeighborhoodDeclaresDeadAfterTimeout(t *testing.T) {
	var declaredDead string
	n := routing.NewNeighborhood(routing.Neighbor{Address: "self", Pseudonym: "a"}, 30*time.Millisecond, logging.Nop())
	n.OnDead(func(pseudonym string) { declaredDead = pseudonym })

	n.SetAlive(routing.Neighbor{Address: "addr-b", Pseudonym: "b"})
	assert.True(t, n.IsAlive("b"))

	time.Sleep(80 * time.Millisecond)
	assert.False(t, n.IsAlive("b"))
	assert.Equal(t, "b", declaredDead)
}
