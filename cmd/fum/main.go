package main

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Zelak312/fumkit/internal/fum"
	"github.com/Zelak312/fumkit/internal/fum/simhost"
	"github.com/Zelak312/fumkit/internal/logging"
)

// CLI flags
var (
	debugFlag         bool
	presetsFlag       string
	presetFlag        int
	stepsFlag         int
	jobsFlag          int
	randomMoveFlag    bool
	simpleMoveFlag    bool
	deviceFlag        string
	seedFlag          int64
	modelChannelsFlag int
	sizeFlag          int
)

var rootCmd = &cobra.Command{
	Use:   "fum",
	Short: "FreeU-Move sampling patch tools",
	Long: `fum lists the FUM presets and runs the patch through an in-memory
sampler to show what it records per job.

Examples:
  fum presets --presets my-presets.yaml
  fum simulate --preset 4 --jobs 3 --simple-move`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(logging.Options{
			LogPath:  ".",
			FileName: "fum.log",
			Debug:    debugFlag,
			Console:  true,
		})
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in and custom presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		presets, err := fum.LoadPresets(presetsFlag)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, p := range presets.All() {
			fmt.Fprintf(out, "%2d  %-14s b1=%.2f b2=%.2f s1=%.2f s2=%.2f start=%.2f end=%.2f\n",
				i, p.Name, p.B1, p.B2, p.S1, p.S2, p.Start, p.End)
		}
		return nil
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run jobs with FUM enabled through the reference sampler",
	Args:  cobra.NoArgs,
	RunE:  runSimulate,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&presetsFlag, "presets", "", "YAML file with custom presets")

	simulateCmd.Flags().IntVar(&presetFlag, "preset", 0, "Preset index applied before the first job")
	simulateCmd.Flags().IntVar(&stepsFlag, "steps", 20, "Sampling steps per job")
	simulateCmd.Flags().IntVar(&jobsFlag, "jobs", 1, "Number of jobs run with the same session")
	simulateCmd.Flags().BoolVar(&randomMoveFlag, "random-move", false, "Enable Random UNet Move")
	simulateCmd.Flags().BoolVar(&simpleMoveFlag, "simple-move", false, "Enable Simple UNet S1 Move")
	simulateCmd.Flags().StringVar(&deviceFlag, "device", fum.CPU, "Device the feature tensors are placed on")
	simulateCmd.Flags().Int64Var(&seedFlag, "seed", 0, "Random move seed, 0 uses the clock")
	simulateCmd.Flags().IntVar(&modelChannelsFlag, "model-channels", 4, "model_channels of the simulated UNet, 0 for an unsupported model")
	simulateCmd.Flags().IntVar(&sizeFlag, "size", 8, "Height and width of the feature maps")

	rootCmd.AddCommand(presetsCmd, simulateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if stepsFlag < 1 || jobsFlag < 1 || sizeFlag < 1 {
		return fmt.Errorf("--steps, --jobs and --size must be positive")
	}

	presets, err := fum.LoadPresets(presetsFlag)
	if err != nil {
		return err
	}

	host := simhost.New()
	session := fum.NewSession(seedFlag)
	script := fum.NewScript(session, presets, host, host)

	jobArgs := script.ApplyPreset(fum.DefaultArgs(), presetFlag)
	jobArgs.Enabled = true
	jobArgs.RandomMove = randomMoveFlag
	jobArgs.SimpleMove = simpleMoveFlag

	log.WithField("session", session.ID).
		WithFields(logging.StructFields(jobArgs.Params)).
		Info("Starting simulation")

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	for job := 0; job < jobsFlag; job++ {
		res, err := host.RunJob(script, simhost.NewModel(modelChannelsFlag), jobArgs, simhost.SampleOptions{
			Steps:  stepsFlag,
			Batch:  1,
			Height: sizeFlag,
			Width:  sizeFlag,
			Device: deviceFlag,
			Seed:   int64(job + 1),
		})
		if err != nil {
			return fmt.Errorf("job %d: %w", job, err)
		}

		active := 0
		for _, st := range res.Steps {
			if st.Active {
				active++
			}
		}
		log.WithField("job", job).
			WithField("activeSteps", active).
			WithField("callbacksLeft", res.CallbacksLeft).
			Debug("Job done")

		if err := enc.Encode(struct {
			Job      int            `json:"job"`
			Metadata map[string]any `json:"metadata"`
			Active   int            `json:"activeSteps"`
			Notices  []string       `json:"notices,omitempty"`
		}{job, res.Metadata, active, res.Notices}); err != nil {
			return err
		}
	}

	if degraded := session.Devices.CPUOnly(); len(degraded) > 0 {
		log.WithField("devices", degraded).Info("Devices running the spectral filter on CPU")
	}
	return nil
}
