package main

import (
	"os"

	"github.com/egannguyen/go-food-delivery/internal/app"
	"github.com/egannguyen/go-food-delivery/internal/config"
)

func main() {
	os.Exit(app.Main(config.RoleBFF))
}
