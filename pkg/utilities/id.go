package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

var (
	nodesMu sync.Mutex
	nodes   = map[int64]*snowflake.Node{}
)

// nodeFromEnv reads SNOWFLAKE_NODE, defaulting to node 1.
func nodeFromEnv() int64 {
	id, err := strconv.ParseInt(os.Getenv("SNOWFLAKE_NODE"), 10, 64)
	if err != nil {
		return 1
	}
	return id
}

// NewSnowflakeID generates a snowflake ID string on the node named by
// SNOWFLAKE_NODE. Row ids across the club tables use it.
func NewSnowflakeID() string {
	return NewSnowflakeIDWithNode(nodeFromEnv())
}

// NewSnowflakeIDWithNode generates a snowflake ID string using the provided node ID.
// Nodes are kept for the life of the process so ids from one node never repeat.
// If the node cannot be initialized, it falls back to a KSUID string.
func NewSnowflakeIDWithNode(nodeID int64) string {
	nodesMu.Lock()
	node, ok := nodes[nodeID]
	if !ok {
		var err error
		node, err = snowflake.NewNode(nodeID)
		if err != nil {
			nodesMu.Unlock()
			return NewKSUID()
		}
		nodes[nodeID] = node
	}
	nodesMu.Unlock()
	return node.Generate().String()
}
