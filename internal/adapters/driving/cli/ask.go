package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driving"
	"github.com/recall-labs/recall-cli/internal/core/services"
)

var (
	askTopK    int
	askSources []string
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question over the indexed corpus",
	Long: `Retrieves the most relevant passages from the corpus and generates an
answer grounded in them, with citations back to the source documents.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", services.DefaultTopK, "number of passages to retrieve")
	askCmd.Flags().StringSliceVar(&askSources, "source", nil, "restrict retrieval to these source IDs")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	embedder, err := buildEmbedder()
	if err != nil {
		closeAll(store)
		return err
	}
	llm, err := buildLLM()
	if err != nil {
		closeAll(store, embedder)
		return err
	}
	defer closeAll(store, embedder, llm)

	engine := services.NewAnswerEngine(embedder, llm, store)
	result, err := engine.Answer(ctx, args[0], driving.AnswerOptions{
		TopK:      askTopK,
		SourceIDs: askSources,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, result)
	}
	outputAnswerText(cmd, result)
	return nil
}

func outputAnswerJSON(cmd *cobra.Command, result *domain.QueryResult) error {
	data, err := json.MarshalIndent(answerPayload(result), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, result *domain.QueryResult) {
	cmd.Println(result.Answer)
	if result.Ungrounded {
		cmd.Println("\n(No indexed content matched; answered from general knowledge.)")
		return
	}
	if len(result.Citations) == 0 {
		return
	}
	cmd.Println("\nSources:")
	for i, c := range result.Citations {
		cmd.Printf("  [%d] %s, %s (%.2f)\n", i+1, c.DocumentID, c.Provenance, c.Score)
	}
}

// answerPayload shapes the JSON output.
func answerPayload(result *domain.QueryResult) any {
	type citation struct {
		DocumentID string  `json:"document_id"`
		Provenance string  `json:"provenance"`
		Score      float64 `json:"score"`
	}
	citations := make([]citation, 0, len(result.Citations))
	for _, c := range result.Citations {
		citations = append(citations, citation{
			DocumentID: c.DocumentID,
			Provenance: c.Provenance.String(),
			Score:      c.Score,
		})
	}
	return struct {
		Answer     string     `json:"answer"`
		Ungrounded bool       `json:"ungrounded"`
		Citations  []citation `json:"citations"`
	}{result.Answer, result.Ungrounded, citations}
}
