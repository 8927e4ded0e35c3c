package main

import (
	"os"

	"github.com/spf13/cobra"
)

func rootMain(command *cobra.Command, arguments []string) {
	command.Help()
}

var rootCommand = &cobra.Command{
	Use:   "ccsync",
	Short: "ccsync keeps Lua source files synchronized onto ComputerCraft computers in a Minecraft save.",
	Run:   rootMain,
}

var rootConfiguration struct {
	help bool
}

func init() {
	flags := rootCommand.Flags()
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")

	cobra.EnableCommandSorting = false
	cobra.MousetrapHelpText = ""

	rootCommand.AddCommand(
		syncCommand,
		watchCommand,
		validateCommand,
		versionCommand,
	)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
