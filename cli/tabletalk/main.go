package main

import (
	"os"

	tabletalkcmder "github.com/papercomputeco/tabletalk/cmd/tabletalk"
)

func main() {
	cmd := tabletalkcmder.NewTabletalkCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
