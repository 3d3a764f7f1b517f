package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/wkalt/dynconn/recorder"
	"github.com/wkalt/dynconn/util/log"
)

var (
	recordReader   string
	recordWriter   string
	recordCount    int
	recordDuration time.Duration
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Archive the samples a reader receives to a directory or S3",
	Long: `Archive the samples a reader receives to a directory or S3. With --count,
shapes are first published through --writer so there is something to record.
Recording stops after --duration or on interrupt.`,
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		c := openConnector(ctx)
		defer c.Close()

		in, err := c.Input(recordReader)
		checkErr(err)
		rec, err := recorder.New(in, store, recorder.WithPrefix(archivePrefix))
		checkErr(err)

		if recordCount > 0 {
			out, err := c.Output(recordWriter)
			checkErr(err)
			checkErr(publishShapes(out, 0, recordCount, 0))
		}
		if recordDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, recordDuration)
			defer cancel()
		}
		checkErr(rec.Run(ctx, 100*time.Millisecond))
		log.Infow(ctx, "archive written", "store", store, "prefix", archivePrefix)
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)
	addStorageFlags(recordCmd)

	recordCmd.PersistentFlags().StringVarP(&recordReader, "reader", "r", shapesReader, "reader to record")
	recordCmd.PersistentFlags().StringVarP(&recordWriter, "writer", "w", shapesWriter, "writer to publish shapes on")
	recordCmd.PersistentFlags().IntVarP(&recordCount, "count", "n", 0, "number of shapes to publish before recording")
	recordCmd.PersistentFlags().DurationVar(&recordDuration, "duration", time.Second, "how long to record (0 records until interrupted)")
}
