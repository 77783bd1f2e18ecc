package cmd

import (
	"fmt"
	"time"

	"midislicer/midi"
	"midislicer/split"
	"midislicer/store"
	"midislicer/util"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	batchMax      int
	batchS3Bucket string
)

func init() {
	registerSliceFlags(batchCmd)
	batchCmd.Flags().IntVar(&gridBars, "bars", 1, "grid step in bars")
	batchCmd.Flags().Int64Var(&gridTicks, "ticks", 0, "grid step in ticks, overrides --bars")
	batchCmd.Flags().IntVar(&batchMax, "max", 0, "max number of files to process, 0 for all")
	batchCmd.Flags().StringVar(&batchS3Bucket, "s3-bucket", "", "upload produced parts to this S3 bucket")
	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Splits every midi file under a directory by grid",
	Long:  `Splits every midi file under a directory by grid`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		batch(args[0])
	},
}

func batch(dir string) {
	paths := util.GatherAllMidiPaths(dir, batchMax)
	progress := debounce.New(500 * time.Millisecond)

	var written []string
	for i, path := range paths {
		i, path := i, path
		progress(func() {
			fmt.Printf("Processing %v of %v midi files\n", i+1, len(paths))
		})

		tl, err := midi.ReadTimeline(path)
		if err != nil {
			fmt.Printf("Skipping %v because: %v\n", path, err)
			continue
		}
		parts, err := split.ByGrid(tl, stepGrid(gridBars, gridTicks), sliceSettings())
		if err != nil {
			fmt.Printf("Skipping %v because: %v\n", path, err)
			continue
		}
		written = append(written, writeParts(parts, path)...)
	}
	fmt.Printf("Processed %v files, %v parts\n", len(paths), len(written))

	if batchS3Bucket != "" && len(written) > 0 {
		prefix := uuid.New().String()
		if err := store.UploadParts(batchS3Bucket, prefix, written); err != nil {
			panic("Could not upload parts: " + err.Error())
		}
		fmt.Printf("Uploaded %v parts to s3://%v/%v\n", len(written), batchS3Bucket, prefix)
	}
}
