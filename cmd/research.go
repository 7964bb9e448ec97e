package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/icp-research/internal/model"
)

var (
	researchType   string
	researchFormat string
	researchFile   string
)

var researchCmd = &cobra.Command{
	Use:   "research [business context]",
	Short: "Run one research session and print the result",
	Long:  "Runs the full pipeline once. The business context is taken from the arguments, --file, or stdin when neither is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		businessContext, err := readBusinessContext(args, researchFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if !model.ValidOutputFormat(researchFormat) {
			return eris.Errorf("unsupported output format %q", researchFormat)
		}

		env, err := initPipeline(ctx, "research")
		if err != nil {
			return err
		}
		defer env.Close()

		s := model.NewResearchState(businessContext, researchType, researchFormat)
		result, err := env.Pipeline.Run(ctx, s)
		if err != nil {
			return eris.Wrap(err, "research")
		}

		zap.L().Info("research complete",
			zap.String("session_id", result.SessionID),
			zap.Float64("quality", result.QualityScore),
			zap.Float64("confidence", result.ConfidenceScore),
			zap.Int64("tokens", result.TokenUsage.Total()),
		)

		return writeResult(cmd.OutOrStdout(), result)
	},
}

// readBusinessContext joins args, or reads path ("-" for stdin), or falls
// back to stdin.
func readBusinessContext(args []string, path string, stdin io.Reader) (string, error) {
	var text string
	switch {
	case len(args) > 0:
		text = strings.Join(args, " ")
	case path != "" && path != "-":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", eris.Wrapf(err, "read %s", path)
		}
		text = string(data)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", eris.Wrap(err, "read stdin")
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", eris.New("business context is required")
	}
	return text, nil
}

// writeResult prints the rendering selected by the state's output format.
func writeResult(w io.Writer, s *model.ResearchState) error {
	switch s.OutputFormat {
	case model.OutputPsychologyReport:
		_, err := fmt.Fprintln(w, s.PsychologyReport)
		return err
	case model.OutputCampaignReady:
		_, err := fmt.Fprintln(w, s.CampaignInsights)
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
}

func init() {
	researchCmd.Flags().StringVar(&researchType, "type", model.DefaultResearchType, "research type")
	researchCmd.Flags().StringVar(&researchFormat, "format", model.OutputFullJSON, "output format: full_json, psychology_report or campaign_ready")
	researchCmd.Flags().StringVarP(&researchFile, "file", "f", "", "read the business context from a file (- for stdin)")
	rootCmd.AddCommand(researchCmd)
}
