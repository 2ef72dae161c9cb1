package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/profsim/profsim/internal/session"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Fetch or answer the current task without the interactive screen",
}

var taskShowCmd = &cobra.Command{
	Use:   "show <profession-id>",
	Short: "Stream the current task of a profession",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		professionID, err := professionArg(args)
		if err != nil {
			return err
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if err := e.requireLogin(); err != nil {
			return err
		}

		p := newStreamPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
		opts := e.sessionOptions()
		opts.OnChange = p.onChange

		task, err := session.NewGeneration(e.client, professionID, opts).Run(commandContext(cmd))
		p.finish()
		if errors.Is(err, session.ErrNoTask) {
			fmt.Fprintln(cmd.OutOrStdout(), "There are no more tasks for this attempt.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("load task: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\nAnswer with: profsim task submit %d --profession %d --answer \"...\"\n",
			task.ID, professionID)
		return nil
	},
}

var taskSubmitCmd = &cobra.Command{
	Use:   "submit <task-id>",
	Short: "Submit an answer and stream the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := parseID("task ID", args[0])
		if err != nil {
			return err
		}
		answer, _ := cmd.Flags().GetString("answer")
		professionID, _ := cmd.Flags().GetInt("profession")

		if answer == "-" {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read answer: %w", err)
			}
			answer = string(b)
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if err := e.requireLogin(); err != nil {
			return err
		}

		p := newStreamPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
		opts := e.sessionOptions()
		opts.OnChange = p.onChange

		outcome, err := session.NewSubmission(e.client, professionID, taskID, answer, opts).Run(commandContext(cmd))
		p.finish()
		if err != nil {
			return fmt.Errorf("submit answer: %w", err)
		}

		out := cmd.OutOrStdout()
		switch outcome.Kind {
		case session.OutcomeNextTask:
			fmt.Fprintf(out, "\nAnswer accepted. Next: profsim task submit %d --profession %d --answer \"...\"\n",
				outcome.Task.ID, professionID)
		case session.OutcomeCompleted:
			fmt.Fprintln(out, "\nSimulation completed.")
		case session.OutcomeRecorded:
			msg := outcome.Message
			if msg == "" {
				msg = "Answer recorded."
			}
			fmt.Fprintln(out, msg)
		}
		return nil
	},
}

// streamPrinter writes a session's text to out as it grows and its stage
// changes to status.
type streamPrinter struct {
	out    io.Writer
	status io.Writer

	stage    session.Stage
	started  bool
	taskID   int
	question string
	report   string
}

func newStreamPrinter(out, status io.Writer) *streamPrinter {
	return &streamPrinter{out: out, status: status}
}

func (p *streamPrinter) onChange(st session.State) {
	if !p.started || st.Stage != p.stage {
		p.started = true
		p.stage = st.Stage
		if !st.Stage.Terminal() {
			line := fmt.Sprintf("%s (%d%%)", st.Stage.Message(), st.Stage.Progress())
			if step := st.Stage.Step(); step != "" {
				line = step + ": " + line
			}
			fmt.Fprintln(p.status, line)
		}
	}

	if t := st.Task; t != nil {
		if t.ID != 0 && t.ID != p.taskID {
			p.taskID = t.ID
			p.question = ""
			fmt.Fprintf(p.out, "\nTask %d · %s · %d min (task ID %d)\n\n", t.Order, t.Type, t.TimeLimitMinutes, t.ID)
		}
		p.question = p.write(p.question, t.Question)
	}

	if st.Report != "" {
		if p.report == "" {
			fmt.Fprint(p.out, "\nFinal report\n\n")
		}
		p.report = p.write(p.report, st.Report)
	}
}

// write prints what text adds to printed. Text that does not extend printed
// replaces it and is printed whole.
func (p *streamPrinter) write(printed, text string) string {
	switch {
	case text == printed:
	case strings.HasPrefix(text, printed):
		fmt.Fprint(p.out, text[len(printed):])
	default:
		fmt.Fprint(p.out, "\n"+text)
	}
	return text
}

func (p *streamPrinter) finish() {
	if p.question != "" || p.report != "" {
		fmt.Fprintln(p.out)
	}
}

func init() {
	taskSubmitCmd.Flags().StringP("answer", "a", "", `Answer text ("-" reads it from stdin)`)
	taskSubmitCmd.Flags().Int("profession", 0, "Profession the task belongs to (recorded in the session log)")
	_ = taskSubmitCmd.MarkFlagRequired("answer")

	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskSubmitCmd)
}
