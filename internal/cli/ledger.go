package cli

import (
	stdjson "encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tgienger/annotate/internal/models"
	"github.com/tgienger/annotate/internal/service"
)

const timeLayout = "2006-01-02 15:04"

func parseIndex(s string) (int, error) {
	idx, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(models.ErrIndexOutOfRange, "%q is not an item index", s)
	}
	return idx, nil
}

func (a *app) saveCmd() *cobra.Command {
	var worker, result, input string
	cmd := &cobra.Command{
		Use:   "save <task-id> <index>",
		Short: "Save a worker's annotation for one item",
		Long: "Save a worker's annotation for one item. Saving the same item again\n" +
			"overwrites the previous result.",
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			svc, err := a.open(false)
			if err != nil {
				return err
			}
			idx, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			workerID, err := a.userRef(svc, worker)
			if err != nil {
				return err
			}

			raw := stdjson.RawMessage(result)
			if input != "" {
				task, err := svc.GetTask(args[0])
				if err != nil {
					return err
				}
				if raw, err = task.Config.AnnotationConfig.ParseInput(input); err != nil {
					return err
				}
			}
			if len(raw) == 0 {
				return errors.Wrap(models.ErrInvalidResult, "one of --result or --input is required")
			}

			rec, created, err := svc.Save(args[0], idx, workerID, raw)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(rec)
			}
			verb := "updated"
			if created {
				verb = "saved"
			}
			a.printf("%s item %d: %s\n", verb, idx, models.FormatResult(rec.Result))
			return nil
		},
	}
	cmd.Flags().StringVarP(&worker, "worker", "w", "", "worker id or username")
	cmd.Flags().StringVarP(&result, "result", "r", "", "result as JSON")
	cmd.Flags().StringVarP(&input, "input", "i", "", "result as typed text, interpreted by the task's form")
	_ = cmd.MarkFlagRequired("worker")
	cmd.MarkFlagsMutuallyExclusive("result", "input")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	var (
		worker string
		check  bool
	)
	cmd := &cobra.Command{
		Use:   "get <task-id> <index>",
		Short: "Show a worker's saved annotation for one item",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			svc, err := a.open(false)
			if err != nil {
				return err
			}
			idx, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			workerID, err := a.userRef(svc, worker)
			if err != nil {
				return err
			}
			if check {
				saved, err := svc.IsSaved(args[0], idx, workerID)
				if err != nil {
					return err
				}
				a.printf("%t\n", saved)
				return nil
			}
			result, ok, err := svc.Get(args[0], idx, workerID)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(map[string]any{"saved": ok, "result": result})
			}
			if !ok {
				a.printf("item %d is not saved\n", idx)
				return nil
			}
			a.printf("%s\n", models.FormatResult(result))
			return nil
		},
	}
	cmd.Flags().StringVarP(&worker, "worker", "w", "", "worker id or username")
	cmd.Flags().BoolVar(&check, "check", false, "only print whether the item is saved")
	_ = cmd.MarkFlagRequired("worker")
	return cmd
}

func (a *app) progressCmd() *cobra.Command {
	var worker string
	cmd := &cobra.Command{
		Use:   "progress <task-id>",
		Short: "Show a worker's completion state on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			svc, err := a.open(false)
			if err != nil {
				return err
			}
			workerID, err := a.userRef(svc, worker)
			if err != nil {
				return err
			}
			p, err := svc.Progress(args[0], workerID)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(p)
			}
			a.printf("%d/%d completed (%.2f%%)\n", p.Completed, p.Total, p.Percentage)
			if len(p.UnsavedIndices) > 0 {
				a.printf("unsaved: %v\n", p.UnsavedIndices)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&worker, "worker", "w", "", "worker id or username")
	_ = cmd.MarkFlagRequired("worker")
	return cmd
}

func (a *app) rollupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollup <worker>",
		Short: "Show a worker's completion across every assigned task",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			svc, err := a.open(false)
			if err != nil {
				return err
			}
			workerID, err := a.userRef(svc, args[0])
			if err != nil {
				return err
			}
			r, err := svc.Rollup(workerID)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(r.Tasks)+1)
			for _, p := range r.Tasks {
				rows = append(rows, []string{p.TaskID, fmt.Sprint(p.Completed), fmt.Sprint(p.Total), fmt.Sprintf("%.2f%%", p.Percentage)})
			}
			if len(rows) > 0 {
				rows = append(rows, []string{"total", fmt.Sprint(r.Completed), fmt.Sprint(r.Total), fmt.Sprintf("%.2f%%", r.Percentage)})
			}
			return a.printTable(r, []string{"TASK", "DONE", "TOTAL", "PROGRESS"}, rows)
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <worker>",
		Short: "Show a worker's annotation totals and recent activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			svc, err := a.open(false)
			if err != nil {
				return err
			}
			workerID, err := a.userRef(svc, args[0])
			if err != nil {
				return err
			}
			ws, err := svc.WorkerStats(workerID)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(ws)
			}
			a.printf("total annotations: %d\n", ws.TotalCount)
			rows := make([][]string, 0, len(ws.PerTask))
			for _, tc := range ws.PerTask {
				rows = append(rows, []string{tc.TaskName, fmt.Sprint(tc.Count)})
			}
			if err := a.printTable(ws, []string{"TASK", "COUNT"}, rows); err != nil {
				return err
			}
			days := make([][]string, 0, len(ws.Recent))
			for _, d := range ws.Recent {
				days = append(days, []string{d.Date, fmt.Sprint(d.Count)})
			}
			return a.printTable(ws, []string{"DATE", "COUNT"}, days)
		},
	}
}

func (a *app) leaderboardCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank workers by annotation count",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			svc, err := a.open(false)
			if err != nil {
				return err
			}
			entries, err := svc.Leaderboard(limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				name := e.DisplayName
				if name == "" {
					name = e.WorkerID
				}
				rows = append(rows, []string{
					fmt.Sprint(e.Rank), name, fmt.Sprint(e.Count),
					e.FirstAt.Local().Format(timeLayout), e.LastAt.Local().Format(timeLayout),
				})
			}
			return a.printTable(entries, []string{"RANK", "WORKER", "COUNT", "FIRST", "LAST"}, rows)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "number of workers to show (default from config)")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var worker, out string
	opts := service.ExportOptions{}
	cmd := &cobra.Command{
		Use:   "export <task-id>",
		Short: "Export a task's records with one worker's results",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			svc, err := a.open(false)
			if err != nil {
				return err
			}
			workerID, err := a.userRef(svc, worker)
			if err != nil {
				return err
			}

			w := a.out
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return errors.Wrapf(err, "create %s", out)
				}
				defer f.Close()
				w = f
			}
			n, err := svc.Export(w, args[0], workerID, opts)
			if err != nil {
				return err
			}
			if w != a.out {
				a.printf("exported %d rows to %s\n", n, out)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&worker, "worker", "w", "", "worker id or username")
	flags.StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	flags.StringVar(&opts.Format, "format", service.FormatJSON, "json, jsonl or csv")
	flags.BoolVar(&opts.IncludeOriginal, "include-original", true, "include the source record fields")
	flags.BoolVar(&opts.OnlyCompleted, "only-completed", false, "skip items the worker has not saved")
	_ = cmd.MarkFlagRequired("worker")
	return cmd
}
