package main

import (
	"fmt"
	"os"

	cc "github.com/ivanpirog/coloredcobra"
)

func main() {
	root := newRootCmd()

	cc.Init(&cc.Config{
		RootCmd:         root,
		Headings:        cc.HiCyan + cc.Bold + cc.Underline,
		Commands:        cc.HiYellow + cc.Bold,
		Example:         cc.Italic,
		ExecName:        cc.Bold,
		Flags:           cc.Bold,
		NoExtraNewlines: true,
		NoBottomNewline: true,
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
