package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/khutwa-dev/khutwa/internal/models"
	"github.com/khutwa-dev/khutwa/internal/workflows"
)

// questionFile is the YAML layout accepted by --questions:
//
//	questions:
//	  - text: What is 2 + 2?
//	    options: ["3", "4", "5", "22"]
//	    answer: B
//
// Questions that carry an id update the existing question in edit mode.
type questionFile struct {
	Questions []struct {
		ID      string   `yaml:"id"`
		Text    string   `yaml:"text"`
		Options []string `yaml:"options"`
		Answer  string   `yaml:"answer"`
	} `yaml:"questions"`
}

func loadQuestions(file string) ([]models.Question, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}

	var f questionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}

	questions := make([]models.Question, 0, len(f.Questions))
	for i, q := range f.Questions {
		if len(q.Options) != 4 {
			return nil, fmt.Errorf("%s: question %d needs exactly 4 options, got %d", file, i+1, len(q.Options))
		}
		questions = append(questions, models.Question{
			ID:            models.ID(q.ID),
			QuestionText:  q.Text,
			OptionA:       q.Options[0],
			OptionB:       q.Options[1],
			OptionC:       q.Options[2],
			OptionD:       q.Options[3],
			CorrectAnswer: strings.ToUpper(strings.TrimSpace(q.Answer)),
		})
	}
	return questions, nil
}

// NewQuizCmd creates the quiz command group
func NewQuizCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Create and edit quizzes",
	}

	cmd.AddCommand(newQuizCreateCmd(env))
	cmd.AddCommand(newQuizEditCmd(env))

	return cmd
}

func newQuizCreateCmd(env *Env) *cobra.Command {
	var courseID, title, questionsFile string
	var duration int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create and publish a quiz for a course",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireRoute(env, "/create-quiz/"+courseID); err != nil {
				return err
			}

			questions, err := loadQuestions(questionsFile)
			if err != nil {
				return err
			}

			draft := workflows.NewQuizDraft(models.ID(courseID))
			draft.Title = title
			if cmd.Flags().Changed("duration") {
				draft.Duration = duration
			}
			draft.Questions = questions

			return runQuizSave(cmd, env, draft)
		},
	}

	cmd.Flags().StringVar(&courseID, "course", "", "Course id")
	cmd.Flags().StringVar(&title, "title", "", "Quiz title")
	cmd.Flags().IntVar(&duration, "duration", workflows.DefaultQuizDuration, "Duration in minutes")
	cmd.Flags().StringVar(&questionsFile, "questions", "", "YAML file with the questions")
	_ = cmd.MarkFlagRequired("course")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("questions")

	return cmd
}

func newQuizEditCmd(env *Env) *cobra.Command {
	var title, questionsFile string
	var duration int

	cmd := &cobra.Command{
		Use:   "edit <quiz-id>",
		Short: "Edit a quiz and replace its questions",
		Long: `Edit a quiz's title and duration. With --questions the file replaces the
quiz's questions: entries with an id update that question, entries without
one are added and questions missing from the file are deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quizID := models.ID(args[0])
			if _, err := requireRoute(env, "/admin/edit-quiz/"+quizID.String()); err != nil {
				return err
			}

			builder := workflows.NewQuizBuilder(env.API, env.App.Logger)
			draft, err := builder.Load(cmd.Context(), quizID)
			if err != nil {
				return apiError(err)
			}

			flags := cmd.Flags()
			if flags.Changed("title") {
				draft.Title = title
			}
			if flags.Changed("duration") {
				draft.Duration = duration
			}
			if questionsFile != "" {
				questions, err := loadQuestions(questionsFile)
				if err != nil {
					return err
				}
				draft.Questions = questions
			}

			return runQuizSave(cmd, env, draft)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New quiz title")
	cmd.Flags().IntVar(&duration, "duration", 0, "New duration in minutes")
	cmd.Flags().StringVar(&questionsFile, "questions", "", "YAML file with the full question list")

	return cmd
}

func runQuizSave(cmd *cobra.Command, env *Env, draft *workflows.QuizDraft) error {
	builder := workflows.NewQuizBuilder(env.API, env.App.Logger)
	result, err := builder.Save(cmd.Context(), draft)
	if err != nil {
		return apiError(err)
	}

	verb := "updated"
	if result.Created {
		verb = "created"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Quiz %s %s (%d added, %d updated, %d deleted)\n",
		result.QuizID, verb, result.Added, result.Updated, result.Deleted)
	return nil
}
