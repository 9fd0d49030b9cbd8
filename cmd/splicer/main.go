package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/keagan/splicer/internal/config"
	"github.com/keagan/splicer/internal/export"
	"github.com/keagan/splicer/internal/ffmpeg"
	"github.com/keagan/splicer/internal/logging"
	"github.com/keagan/splicer/internal/pipeline"
	"github.com/keagan/splicer/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile  string
	verbose  bool
	logJSON  bool
	logFile  string
	closeLog = func() error { return nil }
)

func main() {
	ctx := context.Background()

	err := rootCmd.ExecuteContext(ctx)
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "splicer",
	Short: "splicer - timeline export toolkit",
	Long:  "Compiles clip timelines with keyframed transforms, color and volume into a single ffmpeg filter graph and renders them.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		closer, err := logging.Init(logging.Options{Verbose: verbose, JSON: logJSON, File: logFile})
		if err != nil {
			return err
		}
		closeLog = closer

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./splicer.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also append logs to this file")

	exportCmd.Flags().StringP("output", "o", "output.mp4", "output file")
	exportCmd.Flags().Bool("no-progress", false, "disable the progress bar")
	graphCmd.Flags().Bool("args", false, "print the full ffmpeg argument list")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [project file]",
	Short: "Render a project to a video file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		output, _ := cmd.Flags().GetString("output")
		quiet, _ := cmd.Flags().GetBool("no-progress")

		pipe, err := pipeline.New(log.Logger, cfg)
		if err != nil {
			return err
		}
		defer pipe.Close()

		project, err := pipe.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		opts := pipeline.RenderOptions{OutputPath: output}
		var bar *progressbar.ProgressBar
		if !quiet {
			bar = progressbar.NewOptions(100,
				progressbar.OptionSetDescription("Exporting"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "█",
					SaucerHead:    "█",
					SaucerPadding: "░",
					BarStart:      "▐",
					BarEnd:        "▌",
				}),
				progressbar.OptionSetWidth(50),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetRenderBlankState(true),
			)
			opts.Progress = func(s export.Snapshot) {
				if s.State == export.StateExport || s.State == export.StateDone {
					bar.Set(int(s.Percentage * 100))
				}
			}
		}

		res, err := pipe.Render(cmd.Context(), project, opts)
		if bar != nil {
			bar.Finish()
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return err
		}

		log.Info().
			Str("project", project.Name).
			Str("output", res.OutputPath).
			Str("duration", util.FormatSeconds(res.Duration)).
			Int("bytes", res.Bytes).
			Msg("export complete")

		return nil
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph [project file]",
	Short: "Print the compiled filter graph for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		withArgs, _ := cmd.Flags().GetBool("args")

		pipe, err := pipeline.New(log.Logger, cfg)
		if err != nil {
			return err
		}
		defer pipe.Close()

		project, err := pipe.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		prog, err := pipe.Compile(project)
		if err != nil {
			return err
		}

		if withArgs {
			fmt.Println(strings.Join(prog.Args(), " "))
			return nil
		}
		fmt.Println(prog.Text())
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [media file]",
	Short: "Show the metadata splicer reads from a media file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := ffmpeg.New(log.Logger, ffmpeg.Options{
			BinaryPath: cfg.FFmpeg.BinaryPath,
			ProbePath:  cfg.FFmpeg.ProbePath,
		})
		if err != nil {
			return err
		}

		info, err := exec.ProbeMedia(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("duration:  %s\n", util.FormatSeconds(info.Duration))
		if info.HasVideo {
			fmt.Printf("video:     %s %dx%d @ %.2f fps\n", info.VideoCodec, info.Width, info.Height, info.FPS)
		}
		if info.HasAudio {
			fmt.Printf("audio:     %s\n", info.AudioCodec)
		}
		if info.Bitrate > 0 {
			fmt.Printf("bitrate:   %d\n", info.Bitrate)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "splicer.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}
