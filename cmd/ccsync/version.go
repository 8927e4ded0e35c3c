package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccsync/ccsync/cmd"
)

// version is set at build time via -ldflags (e.g. "-X main.version=1.2.3");
// it defaults to a development marker otherwise.
var version = "dev"

func versionMain(command *cobra.Command, arguments []string) error {
	fmt.Println(version)
	return nil
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run:   cmd.Mainify(versionMain),
}
