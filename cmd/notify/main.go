// Command notify watches one or more paths and prints delivered events,
// colorized by event type, until interrupted.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	notify "github.com/sizeofvoid/notify-cpp"
)

var (
	recursive   bool
	backendName string
)

func main() {
	root := &cobra.Command{
		Use:   "notify [paths...]",
		Short: "Watch filesystem paths and print events as they occur",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run,
	}
	root.Flags().BoolVarP(&recursive, "recursive", "r", false, "watch directories recursively")
	root.Flags().StringVarP(&backendName, "backend", "b", defaultBackendName(), "backend to use: inotify, fanotify, kqueue")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, paths []string) error {
	c, err := newController(backendName)
	if err != nil {
		return err
	}
	defer c.Close()

	for _, p := range paths {
		fse, ferr := notify.NewFileSystemEvent(p, notify.All)
		if ferr != nil {
			return ferr
		}
		if recursive {
			c.WatchPathRecursively(fse)
		} else {
			info, serr := os.Stat(p)
			if serr != nil {
				return serr
			}
			if info.IsDir() {
				c.WatchDirectory(fse)
			} else {
				c.WatchFile(fse)
			}
		}
	}
	if err := c.Err(); err != nil {
		return err
	}

	c.OnEvents(notify.All.Atoms(), func(n notify.Notification) {
		printNotification(n)
	})
	c.OnUnexpectedEvent(func(n notify.Notification) {
		color.New(color.FgYellow).Printf("unexpected: %s\n", n)
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		c.Stop()
	}()

	return c.Run()
}

func printNotification(n notify.Notification) {
	col := color.New(color.FgWhite)
	switch {
	case n.Flag.Has(notify.Create):
		col = color.New(color.FgGreen)
	case n.Flag.Has(notify.DeleteSub), n.Flag.Has(notify.DeleteSelf):
		col = color.New(color.FgRed)
	case n.Flag.Has(notify.Modify):
		col = color.New(color.FgCyan)
	case n.Flag.Has(notify.Move), n.Flag.Has(notify.MoveSelf):
		col = color.New(color.FgMagenta)
	case n.Flag.Has(notify.EventQueueOverflow):
		col = color.New(color.FgYellow, color.Bold)
	}
	col.Printf("%s\n", n)
}

func newController(name string) (*notify.Controller, error) {
	switch name {
	case "inotify":
		return notify.InotifyController()
	case "fanotify":
		return notify.FanotifyController(notify.FanotifyClassNotif)
	case "kqueue":
		return notify.KqueueController()
	default:
		return nil, fmt.Errorf("unknown backend %q (want inotify, fanotify, or kqueue)", name)
	}
}
