package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/housemerge/internal/merge"
	"github.com/mmynk/housemerge/internal/models"
)

var (
	groupID  string
	callerID string
	sourceID string
	targetID string
	dryRun   bool
	asJSON   bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge a placeholder person into a claimed person",
	Long: `Merge folds an unclaimed placeholder person into a claimed person of the
same group. Tasks, recurring tasks, expenses, splits and settlements move to
the target, the placeholder is archived and an audit entry is recorded.

The caller given by --as must be an admin of the group.`,
	Example: `  housemerge merge --group g1 --source p-placeholder --target p-alice --as u-admin
  housemerge merge --group g1 --source p-placeholder --target p-alice --as u-admin --dry-run`,
	RunE: runMerge,
}

var auditsCmd = &cobra.Command{
	Use:   "audits",
	Short: "List a group's merge history, newest first",
	RunE:  runAudits,
}

func init() {
	for _, cmd := range []*cobra.Command{mergeCmd, auditsCmd} {
		cmd.Flags().StringVar(&groupID, "group", "", "group ID")
		cmd.Flags().StringVar(&callerID, "as", "", "user ID of the caller")
		cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
		_ = cmd.MarkFlagRequired("group")
		_ = cmd.MarkFlagRequired("as")
	}
	mergeCmd.Flags().StringVar(&sourceID, "source", "", "placeholder person ID to archive")
	mergeCmd.Flags().StringVar(&targetID, "target", "", "claimed person ID that receives the records")
	mergeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change and roll back")
	_ = mergeCmd.MarkFlagRequired("source")
	_ = mergeCmd.MarkFlagRequired("target")
}

func runMerge(cmd *cobra.Command, args []string) error {
	engine, cleanup, err := openEngine(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer cleanup()

	req := merge.Request{
		GroupID:        groupID,
		SourcePersonID: sourceID,
		TargetPersonID: targetID,
		CallerUserID:   callerID,
	}

	out := cmd.OutOrStdout()
	if dryRun {
		counts, err := engine.Preview(cmd.Context(), req)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(out, counts.Map())
		}
		fmt.Fprintln(out, "Dry run, nothing was changed.")
		return writeCounts(out, counts.Map())
	}

	entry, err := engine.Merge(cmd.Context(), req)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, entry)
	}
	fmt.Fprintf(out, "Merged %s into %s (audit %s)\n", entry.SourcePersonID, entry.TargetPersonID, entry.ID)
	return writeCounts(out, entry.MovedCounts)
}

func runAudits(cmd *cobra.Command, args []string) error {
	engine, cleanup, err := openEngine(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer cleanup()

	entries, err := engine.ListAudits(cmd.Context(), groupID, callerID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if entries == nil {
			entries = []*models.MergeAuditEntry{}
		}
		return writeJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No merges recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MERGED AT\tSOURCE\tTARGET\tBY\tID")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			time.Unix(e.MergedAt, 0).UTC().Format(time.RFC3339),
			e.SourcePersonID, e.TargetPersonID, e.MergedBy, e.ID)
	}
	return tw.Flush()
}

func writeCounts(w io.Writer, counts map[string]int) error {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s\t%d\n", k, counts[k])
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
