package main

import (
	"github.com/spf13/cobra"

	"github.com/ccsync/ccsync/cmd"
	"github.com/ccsync/ccsync/pkg/controller"
	"github.com/ccsync/ccsync/pkg/executor"
	"github.com/ccsync/ccsync/pkg/rules"
	"github.com/ccsync/ccsync/pkg/watchfs"
)

func watchMain(command *cobra.Command, arguments []string) error {
	l, err := loadForRun(watchConfiguration.config)
	if err != nil {
		return err
	}

	e := newEngine(l)

	var watcher controller.Watcher
	if l.cfg.Advanced.UsePolling {
		watcher = watchfs.NewPoller()
	} else {
		notify, err := watchfs.NewNotify()
		if err != nil {
			return err
		}
		watcher = notify
	}

	keys, err := newTerminalKeyHandler()
	var handler controller.KeyHandler = keys
	if err != nil {
		handler = newNoninteractiveKeyHandler()
	}

	sourceRoot := l.cfg.SourceRoot
	syncRules := l.cfg.Rules
	watch := &controller.Watch{
		Planner:  l.planner,
		Executor: executor.CopyToComputer,
		UI:       l.sink,
		Logger:   l.logger.Sublogger("watch"),
		Watcher:  watcher,
		ExpandFiles: func() ([]string, error) {
			return rules.ExpandAllSourceFiles(sourceRoot, syncRules)
		},
		KeyHandler: handler,
	}

	handle, err := e.InitWatchMode(watch)
	if err != nil {
		return err
	}
	handle.Start()

	waitForTermination(e)
	return nil
}

var watchCommand = &cobra.Command{
	Use:   "watch",
	Short: "Watch the source root and continuously sync changed files to computers",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(watchMain),
}

var watchConfiguration struct {
	config string
}

func init() {
	flags := watchCommand.Flags()
	flags.StringVarP(&watchConfiguration.config, "config", "c", "ccsync.yaml", "Path to the ccsync configuration file")
}
