package cli

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"course-portal/internal/app"
	"course-portal/internal/catalog"
	"course-portal/internal/config"
	"course-portal/internal/domain"
	"course-portal/internal/infra/file"
	"course-portal/internal/outbox"
	"course-portal/internal/profile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// learner is the per-invocation runtime behind the learner commands.
type learner struct {
	cfg     config.Config
	logger  *zap.Logger
	catalog *catalog.Catalog
	manager *app.Manager
	outbox  *outbox.Outbox
}

func openLearner(ctx context.Context, configPath string) (*learner, error) {
	cfg, logger, err := setup(configPath)
	if err != nil {
		return nil, err
	}

	l := &learner{cfg: cfg, logger: logger, catalog: catalog.Default()}
	var opts []app.Option
	if cfg.Client.BackendURL != "" {
		client := profile.NewClient(cfg.Client.BackendURL, &http.Client{
			Timeout: config.TTLDuration(cfg.Client.Timeout, 10*time.Second),
		}, logger)
		ob := cfg.Client.Outbox
		l.outbox = outbox.New(client, logger,
			outbox.WithCapacity(ob.Capacity),
			outbox.WithMaxAttempts(ob.MaxAttempts),
			outbox.WithBackoff(
				config.TTLDuration(ob.BaseDelay, outbox.DefaultBaseDelay),
				config.TTLDuration(ob.MaxDelay, outbox.DefaultMaxDelay),
			),
		)
		l.outbox.Start(ctx)
		opts = append(opts, app.WithFetcher(client), app.WithMirror(l.outbox))
	}

	slot := file.NewSessionSlot(cfg.Client.SessionPath)
	l.manager = app.NewManager(l.catalog, slot, logger, opts...)
	return l, nil
}

// close flushes pending profile syncs before the process exits.
func (l *learner) close() {
	defer func() { _ = l.logger.Sync() }()
	if l.outbox == nil {
		return
	}
	timeout := config.TTLDuration(l.cfg.Client.Outbox.FlushTimeout, 10*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := l.outbox.Close(ctx); err != nil {
		l.logger.Warn("profile sync incomplete", zap.Error(err))
	}
}

// learnerRun wraps a learner command body with runtime setup and teardown.
func learnerRun(configPath *string, fn func(cmd *cobra.Command, l *learner, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		l, err := openLearner(cmd.Context(), *configPath)
		if err != nil {
			return err
		}
		defer l.close()
		return fn(cmd, l, args)
	}
}

func addLearnerCommands(root *cobra.Command, configPath *string) {
	root.AddCommand(
		newLoginCmd(configPath),
		newRegisterCmd(configPath),
		newLogoutCmd(configPath),
		newWhoamiCmd(configPath),
		newRenameCmd(configPath),
		newCoursesCmd(configPath),
		newEnrollCmd(configPath),
		newCompleteCmd(configPath),
		newQuizCmd(configPath),
		newProgressCmd(configPath),
		newHistoryCmd(configPath),
	)
}

func newLoginCmd(configPath *string) *cobra.Command {
	var password, name string
	cmd := &cobra.Command{
		Use:   "login EMAIL",
		Short: "Start a session, loading the stored profile when one exists",
		Args:  cobra.ExactArgs(1),
		RunE: learnerRun(configPath, func(cmd *cobra.Command, l *learner, args []string) error {
			user, err := l.manager.Login(cmd.Context(), args[0], password, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s>\n", user.FullName, user.Email)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (required, not verified)")
	cmd.Flags().StringVar(&name, "name", "", "display name when no profile is stored")
	return cmd
}

func newRegisterCmd(configPath *string) *cobra.Command {
	var password, name string
	cmd := &cobra.Command{
		Use:   "register EMAIL",
		Short: "Start a session with a fresh profile",
		Args:  cobra.ExactArgs(1),
		RunE: learnerRun(configPath, func(cmd *cobra.Command, l *learner, args []string) error {
			user, err := l.manager.Register(cmd.Context(), args[0], password, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s <%s>\n", user.FullName, user.Email)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (required, not verified)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func newLogoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the local session; the stored profile is kept",
		Args:  cobra.NoArgs,
		RunE: learnerRun(configPath, func(cmd *cobra.Command, l *learner, _ []string) error {
			if err := l.manager.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func newWhoamiCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current learner and overall progress",
		Args:  cobra.NoArgs,
		RunE: learnerRun(configPath, func(cmd *cobra.Command, l *learner, _ []string) error {
			user, ok := l.manager.Current()
			if !ok {
				return domain.ErrNoSession
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", user.FullName, user.Email)
			fmt.Fprintf(out, "Member since %s\n", user.CreatedAt.Format("2006-01-02"))
			fmt.Fprintf(out, "Enrolled courses: %d\n", l.manager.EnrolledCount())
			fmt.Fprintf(out, "Total progress: %d%%\n", l.manager.TotalProgress())
			return nil
		}),
	}
}

func newRenameCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rename NAME",
		Short: "Change the display name",
		Args:  cobra.MinimumNArgs(1),
		RunE: learnerRun(configPath, func(cmd *cobra.Command, l *learner, args []string) error {
			name := strings.Join(args, " ")
			if err := l.manager.UpdateProfile(app.ProfileUpdate{FullName: &name}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Name changed to %s\n", name)
			return nil
		}),
	}
}

func newCoursesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List courses with your progress",
		Args:  cobra.NoArgs,
		RunE: learnerRun(configPath, func(cmd *cobra.Command, l *learner, _ []string) error {
			user, loggedIn := l.manager.Current()
			out := cmd.OutOrStdout()
			for _, c := range l.catalog.Courses() {
				line := fmt.Sprintf("%-10s %-12s %d lessons", c.ID, c.Title, len(c.Lessons))
				if loggedIn {
					if view, ok := l.manager.GetCourseProgress(c.ID); ok {
						line += fmt.Sprintf("  %3d%%", view.Percentage)
					}
					if user.IsEnrolled(c.ID) {
						line += "  enrolled"
					}
				}
				fmt.Fprintln(out, line)
			}
			return nil
		}),
	}
}

func newEnrollCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "enroll COURSE",
		Short: "Enroll in a course",
		Args:  cobra.ExactArgs(1),
		RunE: learnerRun(configPath, func(cmd *cobra.Command, l *learner, args []string) error {
			if err := l.manager.EnrollCourse(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Enrolled in %s\n", args[0])
			return nil
		}),
	}
}

func newCompleteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "complete COURSE LESSON",
		Short: "Mark a lesson as watched",
		Args:  cobra.ExactArgs(2),
		RunE: learnerRun(configPath, func(cmd *cobra.Command, l *learner, args []string) error {
			lessonID, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("lesson must be a number: %w", err)
			}
			if err := l.manager.MarkLessonComplete(args[0], lessonID); err != nil {
				return err
			}
			view, _ := l.manager.GetCourseProgress(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Lesson %d completed, %s is %d%% done\n", lessonID, args[0], view.Percentage)
			return nil
		}),
	}
}

func newQuizCmd(configPath *string) *cobra.Command {
	var answers []string
	cmd := &cobra.Command{
		Use:   "quiz COURSE LESSON",
		Short: "Submit answers for a lesson quiz (answers as QUESTION=OPTION)",
		Args:  cobra.ExactArgs(2),
		RunE: learnerRun(configPath, func(cmd *cobra.Command, l *learner, args []string) error {
			lessonID, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("lesson must be a number: %w", err)
			}
			selected, err := parseAnswers(answers)
			if err != nil {
				return err
			}
			outcome, err := l.manager.SubmitQuiz(args[0], lessonID, selected)
			if err != nil {
				return err
			}
			verdict := "not passed"
			if outcome.Passed {
				verdict = "passed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Score %d%% (%d/%d), %s\n",
				outcome.Result.Score, outcome.Result.CorrectCount, outcome.Result.Total, verdict)
			return nil
		}),
	}
	cmd.Flags().StringSliceVarP(&answers, "answer", "a", nil, "answer as QUESTION=OPTION, repeatable")
	return cmd
}

func newProgressCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "progress COURSE",
		Short: "Show progress and quiz results for a course",
		Args:  cobra.ExactArgs(1),
		RunE: learnerRun(configPath, func(cmd *cobra.Command, l *learner, args []string) error {
			view, ok := l.manager.GetCourseProgress(args[0])
			if !ok {
				if _, loggedIn := l.manager.Current(); !loggedIn {
					return domain.ErrNoSession
				}
				return domain.ErrCourseNotFound
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d%% (%d of %d lessons)\n", args[0], view.Percentage, len(view.CompletedLessons), view.TotalLessons)
			if view.IsCompleted {
				fmt.Fprintln(out, "Course completed")
			}
			lessonIDs := make([]int, 0, len(view.Tests))
			for id := range view.Tests {
				lessonIDs = append(lessonIDs, id)
			}
			sort.Ints(lessonIDs)
			for _, id := range lessonIDs {
				r := view.Tests[id]
				fmt.Fprintf(out, "  lesson %d quiz: %d%% (%d/%d)\n", id, r.Score, r.CorrectCount, r.Total)
			}
			return nil
		}),
	}
}

func newHistoryCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List every quiz result",
		Args:  cobra.NoArgs,
		RunE: learnerRun(configPath, func(cmd *cobra.Command, l *learner, _ []string) error {
			if _, ok := l.manager.Current(); !ok {
				return domain.ErrNoSession
			}
			out := cmd.OutOrStdout()
			entries := l.manager.TestHistory()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No quiz results yet")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %s / %s  %d%%\n",
					e.Result.Date.Format("2006-01-02 15:04"), e.CourseTitle, e.LessonTitle, e.Result.Score)
			}
			return nil
		}),
	}
}

// parseAnswers turns QUESTION=OPTION pairs into a question id to option index map.
func parseAnswers(pairs []string) (map[int]int, error) {
	answers := make(map[int]int, len(pairs))
	for _, pair := range pairs {
		q, a, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("answer %q: expected QUESTION=OPTION", pair)
		}
		qid, err := strconv.Atoi(strings.TrimSpace(q))
		if err != nil {
			return nil, fmt.Errorf("answer %q: bad question id", pair)
		}
		option, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return nil, fmt.Errorf("answer %q: bad option index", pair)
		}
		answers[qid] = option
	}
	return answers, nil
}
