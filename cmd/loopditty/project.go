package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Ursinus-CS476-F2020/LoopDitty/logging"
	"github.com/Ursinus-CS476-F2020/LoopDitty/projection"
	"github.com/Ursinus-CS476-F2020/LoopDitty/projection/config"
)

var (
	projectFile string
	projectSeed uint64
	projectFlat bool
)

// projectCmd runs one projection and prints its events
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Run one projection and stream its events as JSON lines",
	Long: `Read one projection request (features, weights, normalization names and
window configuration) as JSON and write every task event to stdout, one JSON
object per line. The last line is the done event carrying the point cloud.

Examples:
  loopditty project -f request.json
  loopditty project --seed 7 < request.json
  loopditty project -f request.json --flat`,
	Args: cobra.NoArgs,
	RunE: runProject,
}

func init() {
	rootCmd.AddCommand(projectCmd)

	projectCmd.Flags().StringVarP(&projectFile, "file", "f", "", "Request file (default: stdin)")
	projectCmd.Flags().Uint64Var(&projectSeed, "seed", 0, "PCA seed; overrides pca.seed when set")
	projectCmd.Flags().BoolVar(&projectFlat, "flat", false, "Emit the result as a flat float32 vertex buffer")
}

func runProject(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if projectFile != "" {
		f, err := os.Open(projectFile)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	run := *cfg
	if cmd.Flags().Changed("seed") {
		run.PCA.Seed = projectSeed
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return project(ctx, &run, in, cmd.OutOrStdout(), projectFlat)
}

// flatDone is the done event with the result as a vertex buffer
type flatDone struct {
	Type       projection.EventType `json:"type"`
	Result     []float32            `json:"result"`
	Generation uint64               `json:"generation"`
	ID         string               `json:"id,omitempty"`
}

// project decodes one request from in, runs it and writes the events to out.
// It fails with projection.ErrCancelled when the task was stopped.
func project(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, flat bool) error {
	req, err := projection.DecodeRequest(in)
	if err != nil {
		return err
	}

	p := projection.NewProjector(cfg)
	task := p.Project(ctx, req)
	logging.Debug("Projection started", logging.Fields{
		"invocation_id": task.ID,
		"frames":        req.Features.Frames(),
	})

	enc := json.NewEncoder(out)
	for e := range task.Events() {
		var v any = e
		if flat && e.Type == projection.EventDone {
			v = flatDone{
				Type:       e.Type,
				Result:     projection.Flatten32(e.Result),
				Generation: e.Generation,
				ID:         e.ID,
			}
		}
		if err := enc.Encode(v); err != nil {
			task.Cancel()
			return err
		}
	}

	// The stream has ended, so the task is finishing regardless of ctx.
	_, err = task.Wait(context.Background())
	return err
}
