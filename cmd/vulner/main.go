package main

import (
	"os"

	"github.com/aquasecurity/vulner/pkg"
	"github.com/aquasecurity/vulner/pkg/log"
)

var (
	version = "0.0.1"
)

func main() {
	app := pkg.NewApp(version)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}
