package cmd

import (
	"context"
	"fmt"
	"math"

	"github.com/relvacode/iso8601"
	"github.com/spf13/cobra"
	"github.com/wkalt/dynconn/recorder"
)

var (
	replayWriter    string
	replayReader    string
	replayStartDate string
	replayEndDate   string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Publish archived samples through a writer",
	Long: `Publish archived samples through a writer, keeping their source
timestamps. --start and --end take ISO 8601 dates and limit the replay to
samples stamped in that range. With --reader, print what that reader receives.`,
	Run: func(cmd *cobra.Command, args []string) {
		start, end := int64(0), int64(math.MaxInt64)
		if replayStartDate != "" {
			t, err := iso8601.Parse([]byte(replayStartDate))
			if err != nil {
				bailf("error parsing start date: %s", err)
			}
			start = t.UnixNano()
		}
		if replayEndDate != "" {
			t, err := iso8601.Parse([]byte(replayEndDate))
			if err != nil {
				bailf("error parsing end date: %s", err)
			}
			end = t.UnixNano()
		}
		store := openStore()
		ctx := context.Background()
		c := openConnector(ctx)
		defer c.Close()

		out, err := c.Output(replayWriter)
		checkErr(err)
		n, err := recorder.Replay(ctx, store, archivePrefix, out, recorder.WithTimeRange(start, end))
		checkErr(err)
		if replayReader != "" {
			in, err := c.Input(replayReader)
			checkErr(err)
			_, err = printSamples(in)
			checkErr(err)
		}
		fmt.Printf("replayed %d samples from %s\n", n, store)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	addStorageFlags(replayCmd)

	replayCmd.PersistentFlags().StringVarP(&replayWriter, "writer", "w", shapesWriter, "writer to publish on")
	replayCmd.PersistentFlags().StringVarP(&replayReader, "reader", "r", "", "reader to print after replaying")
	replayCmd.PersistentFlags().StringVarP(&replayStartDate, "start", "s", "", "Start date")
	replayCmd.PersistentFlags().StringVarP(&replayEndDate, "end", "e", "", "End date")
}
