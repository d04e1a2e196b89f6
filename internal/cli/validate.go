package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	articleContent   string
	articleFile      string
	articleTitle     string
	validationTypes  []string
	outJSON          string
	noSources        bool
	noContradictions bool
	withSummary      bool
	validateTimeout  time.Duration
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [url]",
	Short: "Validate a single news article",
	Long: `Validate checks one article:
- Extract its factual claims
- Search news sources for each claim
- Decide which sources support or contradict each claim
- Combine the results into a credibility score

The article is given as a URL argument, with --content, or with --file
(use "-" to read from stdin). Content wins when both a URL and content are
given; the URL is then recorded as the article's source.

Example:
  credence validate https://example.com/news/bridge-collapse
  credence validate --content "The bridge collapsed on Monday."
  credence validate --file article.txt --json result.json
  credence validate --file - --llm-provider openai < article.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	// Input flags
	validateCmd.Flags().StringVar(&articleContent, "content", "", "article text")
	validateCmd.Flags().StringVar(&articleFile, "file", "", "read article text from file (- for stdin)")
	validateCmd.Flags().StringVar(&articleTitle, "title", "", "article title")
	validateCmd.Flags().StringSliceVar(&validationTypes, "types", nil, "validation types (comprehensive, fact_check, source_verification, bias_analysis, full_analysis)")

	// Output flags
	validateCmd.Flags().StringVar(&outJSON, "json", "", "write the JSON response to this path (- for stdout)")
	validateCmd.Flags().BoolVar(&noSources, "no-sources", false, "omit evidence from the JSON response")
	validateCmd.Flags().BoolVar(&noContradictions, "no-contradictions", false, "omit contradictions from the JSON response")
	validateCmd.Flags().BoolVar(&withSummary, "summary", false, "add a short article summary")
	validateCmd.Flags().DurationVar(&validateTimeout, "timeout", 3*time.Minute, "overall timeout")

	addPipelineFlags(validateCmd)
}

// addPipelineFlags binds the collaborator flags shared by validate, batch and serve
func addPipelineFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("llm-provider", "", "LLM provider (openai, gemini, anthropic, ollama, heuristic)")
	flags.String("llm-model", "", "LLM model name")
	flags.String("search-provider", "", "news search provider (googlenews, newsapi)")
	flags.Bool("no-cache", false, "disable the result cache")
	flags.Bool("cross-claim", false, "also check claims against each other")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		_ = viper.BindPFlag("llm.provider", flags.Lookup("llm-provider"))
		_ = viper.BindPFlag("llm.model", flags.Lookup("llm-model"))
		_ = viper.BindPFlag("search.provider", flags.Lookup("search-provider"))
		_ = viper.BindPFlag("pipeline.cross_claim_check", flags.Lookup("cross-claim"))
		if noCache, _ := flags.GetBool("no-cache"); noCache {
			viper.Set("cache.enabled", false)
		}
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
	defer cancel()

	svc, _, _, closeFn, err := newService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	if verbose {
		if req.ArticleURL != "" {
			fmt.Fprintf(os.Stderr, "Validating: %s\n", req.ArticleURL)
		}
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", validateTimeout)
		fmt.Fprintln(os.Stderr)
	}

	resp, err := svc.Validate(ctx, req)
	if resp.Results != nil {
		printSummary(os.Stderr, resp.Results)
	} else if resp.Error != "" {
		fmt.Fprintf(os.Stderr, "✗ Validation %s %s: %s\n", resp.ValidationID, resp.Status, resp.Error)
	}

	if outJSON != "" {
		if writeErr := writeResponse(outJSON, resp); writeErr != nil {
			return writeErr
		}
	}

	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func buildRequest(args []string) (pipeline.ValidationRequest, error) {
	req := pipeline.ValidationRequest{
		Title:           articleTitle,
		ValidationTypes: validationTypes,
		ArticleContent:  articleContent,
		IncludeSummary:  withSummary,
	}
	if len(args) == 1 {
		req.ArticleURL = args[0]
	}

	if articleFile != "" {
		text, err := readArticleFile(articleFile)
		if err != nil {
			return req, err
		}
		req.ArticleContent = text
	}

	if noSources {
		req.IncludeSources = new(bool)
	}
	if noContradictions {
		req.IncludeContradictions = new(bool)
	}
	return req, nil
}

func readArticleFile(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read article: %w", err)
	}
	return string(data), nil
}

func writeResponse(path string, resp *pipeline.ValidationResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", path)
	}
	return nil
}

// printSummary writes the human-readable result
func printSummary(w io.Writer, result *model.ValidationResult) {
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Credibility: %.2f  (confidence %.2f)  [%s]\n", result.CredibilityScore, result.Confidence, result.Status)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Validation:      %s\n", result.ID)
	fmt.Fprintf(w, "  Claims:          %d\n", result.ClaimsExtracted)
	fmt.Fprintf(w, "  Sources checked: %d\n", result.SourcesChecked)
	fmt.Fprintf(w, "  Contradictions:  %d\n", len(result.Contradictions))
	fmt.Fprintf(w, "  Time:            %v\n", result.ProcessingTime.Round(time.Millisecond))
	if result.Error != "" {
		fmt.Fprintf(w, "  Error:           %s\n", result.Error)
	}
	if result.Bias != nil {
		fmt.Fprintf(w, "  Bias:            %s (%.2f, confidence %.2f)\n", result.Bias.Direction, result.Bias.Score, result.Bias.Confidence)
	}
	fmt.Fprintf(w, "\n")
	if result.Summary != "" {
		fmt.Fprintf(w, "  %s\n\n", result.Summary)
	}

	scores := make(map[string]model.ClaimScore, len(result.ClaimScores))
	for _, cs := range result.ClaimScores {
		scores[cs.ClaimID] = cs
	}
	for _, claim := range result.Claims {
		cs := scores[claim.ID]
		mark := "✓"
		switch {
		case cs.Contradicts > cs.Supports:
			mark = "✗"
		case cs.Supports == 0:
			mark = "?"
		}
		fmt.Fprintf(w, "  %s %.2f  %s\n", mark, cs.Score, truncate(claim.Text, 70))
	}

	for _, sig := range result.Signals {
		if sig.Severity != model.SeverityInfo {
			fmt.Fprintf(w, "\n  ⚠ %s\n", sig.Description)
		}
	}
	fmt.Fprintf(w, "\n")
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
