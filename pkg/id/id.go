package id

import (
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

// NewNode builds a snowflake generator whose node number is derived from
// the hostname, so replicas sharing a database do not collide.
func NewNode() (*snowflake.Node, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "pointgate"
	}
	h := fnv.New32a()
	h.Write([]byte(host))
	return snowflake.NewNode(int64(h.Sum32() % 1024))
}

var Module = fx.Module("id",
	fx.Provide(NewNode),
)
