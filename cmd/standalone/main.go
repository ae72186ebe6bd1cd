// Command standalone runs ordering, delivery and the BFF in one process.
// With channel.transport and eventlog.driver set to memory it needs no
// infrastructure.
package main

import (
	"os"

	"github.com/egannguyen/go-food-delivery/internal/app"
	"github.com/egannguyen/go-food-delivery/internal/config"
)

func main() {
	os.Exit(app.Main(config.RoleAll))
}
