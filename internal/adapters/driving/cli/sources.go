package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources and their indexed document counts",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer closeAll(store)

	revisions, err := store.ListDocumentRevisions(ctx)
	if err != nil {
		return err
	}
	counts := make(map[string]int)
	for id := range revisions {
		if i := strings.IndexByte(id, ':'); i > 0 {
			counts[id[:i]]++
		}
	}

	if len(appConfig.Sources) == 0 {
		cmd.Println("No sources configured.")
		return nil
	}
	for _, sc := range appConfig.Sources {
		location := sc.Path
		if sc.Type == "gdrive" {
			location = "folder " + sc.FolderID
			if sc.FolderID == "" {
				location = "entire drive"
			}
		}
		cmd.Printf("  %-20s %-12s %-40s %d documents\n", sc.ID, sc.Type, location, counts[sc.ID])
	}
	return nil
}
