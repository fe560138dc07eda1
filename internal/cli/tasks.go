package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tgienger/annotate/internal/models"
	"github.com/tgienger/annotate/internal/records"
	"github.com/tgienger/annotate/internal/service"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			database, err := a.openDB()
			if err != nil {
				return err
			}
			applied, err := database.Migrate()
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				a.printf("schema is up to date\n")
				return nil
			}
			for _, m := range applied {
				a.printf("applied %s\n", m.Name)
			}
			return nil
		},
	}
}

type ingestFlags struct {
	file        string
	name        string
	description string
	label       string
	splits      int
	taskConfig  string
	fields      []string
	form        string
	options     []string
	minValue    int
	maxValue    int
	basePath    string
}

func (a *app) ingestCmd() *cobra.Command {
	var f ingestFlags
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Create a task from a JSONL file, optionally split into shards",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			svc, err := a.open(false)
			if err != nil {
				return err
			}

			file, err := os.Open(f.file)
			if err != nil {
				return errors.Wrapf(err, "open %s", f.file)
			}
			recs, err := records.Parse(file)
			file.Close()
			if err != nil {
				return errors.Wrapf(err, "parse %s", f.file)
			}

			cfg, err := f.config(recs)
			if err != nil {
				return err
			}
			nt := service.NewTask{
				Name:        f.name,
				Description: f.description,
				Config:      cfg,
				Records:     recs,
				Splits:      f.splits,
			}
			if f.label != "" {
				nt.Label = &f.label
			}

			tasks, err := svc.CreateTask(nt)
			if err != nil {
				return err
			}
			return a.printTasks(tasks)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.file, "file", "f", "", "JSONL record file")
	flags.StringVarP(&f.name, "name", "n", "", "task name")
	flags.StringVar(&f.description, "description", "", "task description")
	flags.StringVar(&f.label, "label", "", "optional task label")
	flags.IntVarP(&f.splits, "splits", "k", 1, "number of shards")
	flags.StringVar(&f.taskConfig, "task-config", "", "JSON file holding the full task configuration")
	flags.StringSliceVar(&f.fields, "fields", nil, "fields to display as text (default: every field)")
	flags.StringVar(&f.form, "form", string(models.FormTextInput), "annotation type: single_choice, multiple_choice, rating or text_input")
	flags.StringSliceVar(&f.options, "options", nil, "choice options")
	flags.IntVar(&f.minValue, "min", 1, "rating minimum")
	flags.IntVar(&f.maxValue, "max", 5, "rating maximum")
	flags.StringVar(&f.basePath, "base-path", "", "directory image and pdf paths are relative to")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// config builds the task configuration from --task-config or the quick flags
func (f ingestFlags) config(recs []records.Record) (models.TaskConfig, error) {
	if f.taskConfig != "" {
		var cfg models.TaskConfig
		data, err := os.ReadFile(f.taskConfig)
		if err != nil {
			return cfg, errors.Wrapf(err, "read %s", f.taskConfig)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(models.ErrInvalidTaskConfig, "%s: %v", f.taskConfig, err)
		}
		return cfg, nil
	}

	fields := f.fields
	if len(fields) == 0 {
		fields = records.FieldNames(recs)
	}
	cfg := models.TaskConfig{
		SelectedFields: fields,
		FieldConfigs:   make(map[string]models.FieldConfig, len(fields)),
		BasePath:       f.basePath,
		AnnotationConfig: models.AnnotationForm{
			Type:    models.FormType(f.form),
			Options: f.options,
		},
	}
	for _, field := range fields {
		cfg.FieldConfigs[field] = models.FieldConfig{Type: models.RenderText}
	}
	if cfg.AnnotationConfig.Type == models.FormRating {
		cfg.AnnotationConfig.MinValue = f.minValue
		cfg.AnnotationConfig.MaxValue = f.maxValue
	}
	return cfg, nil
}

func (a *app) printTasks(tasks []models.Task) error {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		shard := "-"
		if t.IsShard() {
			shard = fmt.Sprintf("%d/%d", t.SplitIndex+1, t.TotalSplits)
		}
		rows = append(rows, []string{t.ID, t.Name, t.Status, shard, fmt.Sprint(t.Config.TotalItems)})
	}
	return a.printTable(tasks, []string{"ID", "NAME", "STATUS", "SHARD", "ITEMS"}, rows)
}

func (a *app) tasksCmd() *cobra.Command {
	var worker, parent string
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks, the shards of a partitioned task, or the tasks assigned to a worker",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			svc, err := a.open(false)
			if err != nil {
				return err
			}
			var tasks []models.Task
			switch {
			case worker != "":
				id, err := a.userRef(svc, worker)
				if err != nil {
					return err
				}
				if tasks, err = svc.ListAssignedTasks(id); err != nil {
					return err
				}
			case parent != "":
				if tasks, err = svc.ListShards(parent); err != nil {
					return err
				}
			default:
				if tasks, err = svc.ListTasks(); err != nil {
					return err
				}
			}
			return a.printTasks(tasks)
		},
	}
	cmd.Flags().StringVarP(&worker, "worker", "w", "", "only tasks assigned to this worker (id or username)")
	cmd.Flags().StringVar(&parent, "parent", "", "only the shards sharing this parent id")
	cmd.MarkFlagsMutuallyExclusive("worker", "parent")
	return cmd
}

func (a *app) partitionCmd() *cobra.Command {
	var splits int
	cmd := &cobra.Command{
		Use:   "partition <task-id>",
		Short: "Split an existing task's records into shard tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			svc, err := a.open(false)
			if err != nil {
				return err
			}
			tasks, err := svc.PartitionTask(args[0], splits)
			if err != nil {
				return err
			}
			return a.printTasks(tasks)
		},
	}
	cmd.Flags().IntVarP(&splits, "splits", "k", 2, "number of shards")
	return cmd
}

func (a *app) assignCmd() *cobra.Command {
	var worker, operator string
	cmd := &cobra.Command{
		Use:   "assign <task-id>",
		Short: "Assign a task to a worker, replacing any current assignee",
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
			operatorID, err := a.userRef(svc, operator)
			if err != nil {
				return err
			}
			assignment, err := svc.Assign(args[0], workerID, operatorID)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(assignment)
			}
			a.printf("assigned %s to %s\n", args[0], strings.TrimSpace(worker))
			return nil
		},
	}
	cmd.Flags().StringVarP(&worker, "worker", "w", "", "worker id or username")
	cmd.Flags().StringVarP(&operator, "operator", "o", "", "operator id or username")
	_ = cmd.MarkFlagRequired("worker")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}
