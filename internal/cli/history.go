package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justyntemme/salpanel/internal/history"
	"github.com/justyntemme/salpanel/internal/store"
)

var (
	historyJSON  bool
	historyClear bool
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "Print the persisted directory history, most recent first",
	Args:    cobra.NoArgs,
	GroupID: "inspection",
	RunE:    runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print entries as JSON")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Forget every recorded location")
}

type historyItem struct {
	Kind      string `json:"kind"`
	Location  string `json:"location"`
	TopIndex  int    `json:"topIndex"`
	FocusName string `json:"focusName,omitempty"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	h := current.cfg.History
	db := store.NewDB()
	if err := db.Open(h.DBPath); err != nil {
		return fmt.Errorf("open history %s: %w", h.DBPath, err)
	}
	defer db.Close()

	if historyClear {
		db.Start()
		db.RequestChan <- store.Request{Op: store.ClearHistory}
		db.RequestChan <- store.Request{Op: store.FetchHistory}
		if resp := <-db.ResponseChan; len(resp.History) > 0 {
			return fmt.Errorf("clear history: %d entries left", len(resp.History))
		}
		okColor.Fprintln(cmd.OutOrStdout(), "history cleared")
		return nil
	}

	dh := history.New(h.MaxEntries, db)
	if err := dh.Load(); err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	items := make([]historyItem, 0, dh.Len())
	for _, e := range dh.Entries() {
		items = append(items, historyItem{
			Kind:      e.Kind.String(),
			Location:  e.Location().Describe(),
			TopIndex:  e.TopIndex,
			FocusName: e.FocusName,
		})
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	if len(items) == 0 {
		dimColor.Fprintln(out, "no history")
		return nil
	}
	for i, it := range items {
		fmt.Fprintf(out, "%3d  %-8s %s", i+1, it.Kind, dirColor.Sprint(it.Location))
		if it.FocusName != "" {
			dimColor.Fprintf(out, "  focus=%s top=%d", it.FocusName, it.TopIndex)
		}
		fmt.Fprintln(out)
	}
	return nil
}
