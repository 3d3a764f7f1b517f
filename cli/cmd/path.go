package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wkalt/dynconn/fieldpath"
)

var pathCmd = &cobra.Command{
	Use:   "path [expression...]",
	Short: "Parse field paths and print their segments",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		failed := false
		for _, arg := range args {
			p, err := fieldpath.Parse(arg)
			if err != nil {
				color.New(color.FgRed).Fprintf(os.Stderr, "%q: %s\n", arg, err)
				failed = true
				continue
			}
			color.New(color.Bold).Printf("%q\n", arg)
			if p.IsRoot() {
				fmt.Println("  whole record")
				continue
			}
			for i, seg := range p {
				fmt.Printf("  %d %s\n", i, seg)
			}
		}
		if failed {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(pathCmd)
}
