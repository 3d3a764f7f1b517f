package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/wkalt/dynconn/connector"
)

var (
	demoWriter   string
	demoReader   string
	demoCount    int
	demoInterval time.Duration
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Publish shapes through the in-process engine and print what a reader receives",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		c := openConnector(ctx)
		defer c.Close()
		out, err := c.Output(demoWriter)
		checkErr(err)
		in, err := c.Input(demoReader)
		checkErr(err)

		for i := 0; i < demoCount; i++ {
			checkErr(publishShapes(out, i, 1, 0))
			if err := in.Wait(time.Second); err != nil && !errors.Is(err, connector.ErrTimeout) {
				checkErr(err)
			}
			_, err := printSamples(in)
			checkErr(err)
			if demoInterval > 0 {
				time.Sleep(demoInterval)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.PersistentFlags().StringVarP(&demoWriter, "writer", "w", shapesWriter, "writer to publish on")
	demoCmd.PersistentFlags().StringVarP(&demoReader, "reader", "r", shapesReader, "reader to print")
	demoCmd.PersistentFlags().IntVarP(&demoCount, "count", "n", 5, "number of samples to publish")
	demoCmd.PersistentFlags().DurationVarP(&demoInterval, "interval", "i", 0, "delay between samples")
}
