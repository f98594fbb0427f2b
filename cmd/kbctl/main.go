// kbctl is the operator CLI for the knowledge orchestrator. It loads a
// knowledge-base directory into the index and runs ad-hoc context queries
// against a running service.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	serviceURL string
	timeout    int
)

var rootCmd = &cobra.Command{
	Use:           "kbctl",
	Short:         "Knowledge orchestrator CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Rebuild the passage index from a knowledge-base directory",
	Long: `Rebuild the passage index from a knowledge-base directory.

The directory layout is one subdirectory per document type, each holding
markdown files. The file name (without extension) is recorded as the
document source:

  kb/
    faq/
      shipping.md
    policy/
      returns.md`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Retrieve ranked contexts for a question",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serviceURL, "url", envOr("ORCHESTRATOR_URL", "http://localhost:9020"), "base URL of the orchestrator service")
	rootCmd.PersistentFlags().IntVar(&timeout, "timeout", 600, "request timeout in seconds")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(queryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type documentPayload struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Text   string `json:"text"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	docs, err := loadKnowledgeBase(args[0])
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no markdown documents found under %s", args[0])
	}
	fmt.Printf("Loaded %d documents from %s\n", len(docs), args[0])

	body, err := postJSON("/internal/ingest", map[string]interface{}{"documents": docs})
	if err != nil {
		return err
	}

	var report struct {
		Documents int `json:"documents"`
		Chunks    int `json:"chunks"`
		Indexed   int `json:"indexed"`
		Failures  []struct {
			Source string `json:"source"`
			Reason string `json:"reason"`
		} `json:"failures"`
		GenerationID string `json:"generation_id"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		return fmt.Errorf("failed to decode ingest report: %w", err)
	}

	fmt.Printf("Indexed %d passages from %d documents (generation %s)\n",
		report.Indexed, report.Documents, report.GenerationID)
	for _, f := range report.Failures {
		fmt.Printf("  FAILED %s: %s\n", f.Source, f.Reason)
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d documents failed", len(report.Failures))
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	body, err := postJSON("/v1/context/answer", map[string]interface{}{"question": args[0]})
	if err != nil {
		return err
	}

	var resp struct {
		Outcome  string `json:"outcome"`
		Contexts []struct {
			PageContent string            `json:"page_content"`
			Metadata    map[string]string `json:"metadata"`
		} `json:"contexts"`
		RetrievalID string `json:"retrieval_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Outcome: %s (retrieval %s)\n", resp.Outcome, resp.RetrievalID)
	for i, c := range resp.Contexts {
		fmt.Printf("\n--- context %d (%s/%s) ---\n%s\n",
			i+1, c.Metadata["type"], c.Metadata["source"], c.PageContent)
	}
	return nil
}

// loadKnowledgeBase walks one level of type subdirectories and collects
// every markdown file as a document.
func loadKnowledgeBase(dir string) ([]documentPayload, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base dir: %w", err)
	}

	var docs []documentPayload
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		docType := entry.Name()
		files, err := os.ReadDir(filepath.Join(dir, docType))
		if err != nil {
			return nil, fmt.Errorf("failed to read type dir %s: %w", docType, err)
		}
		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".md") {
				continue
			}
			path := filepath.Join(dir, docType, file.Name())
			text, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			docs = append(docs, documentPayload{
				Type:   docType,
				Source: strings.TrimSuffix(file.Name(), ".md"),
				Text:   string(text),
			})
		}
	}
	return docs, nil
}

func postJSON(path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	client := &http.Client{Timeout: time.Duration(timeout) * time.Second}
	resp, err := client.Post(strings.TrimRight(serviceURL, "/")+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
