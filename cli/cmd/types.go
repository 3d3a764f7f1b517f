package cmd

import (
	"fmt"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wkalt/dynconn/dyndata"
	"github.com/wkalt/dynconn/idl"
	"golang.org/x/exp/maps"
)

var typesCmd = &cobra.Command{
	Use:   "types [pattern...]",
	Short: "Validate IDL type definitions and print them as trees",
	Long: `Validate IDL type definitions and print them as trees. Arguments are
file patterns and may use ** to match directories, as in 'idl/**/*.idl'.
Without arguments, print the types of the engine configuration.`,
	Run: func(cmd *cobra.Command, args []string) {
		types := make(map[string]*dyndata.Type)
		if len(args) == 0 {
			cfg := loadConfig()
			for _, name := range cfg.TypeNames() {
				types[name], _ = cfg.Type(name)
			}
		}
		for _, pattern := range args {
			paths, err := doublestar.FilepathGlob(pattern)
			checkErr(err)
			if len(paths) == 0 {
				bailf("no files match %s", pattern)
			}
			for _, path := range paths {
				parsed, err := idl.ParseFile(path)
				checkErr(err)
				for name, t := range parsed {
					if _, ok := types[name]; ok {
						bailf("%s: type %s is already defined", path, name)
					}
					types[name] = t
				}
			}
		}
		names := maps.Keys(types)
		slices.Sort(names)
		heading := color.New(color.FgCyan, color.Bold)
		for i, name := range names {
			if i > 0 {
				fmt.Println()
			}
			heading.Println(name)
			fmt.Println(types[name].Describe())
		}
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}
