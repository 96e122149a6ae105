package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khutwa-dev/khutwa/internal/models"
	"github.com/khutwa-dev/khutwa/internal/workflows"
)

type courseFlags struct {
	title       string
	description string
	grade       string
	branch      string
	price       float64
	lessons     []string
}

func (f *courseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Course title")
	cmd.Flags().StringVar(&f.description, "description", "", "Course description")
	cmd.Flags().StringVar(&f.grade, "grade", "", "Grade the course is aimed at")
	cmd.Flags().StringVar(&f.branch, "branch", "", "Study branch (default \""+workflows.DefaultBranch+"\")")
	cmd.Flags().Float64Var(&f.price, "price", 0, "Course price")
	cmd.Flags().StringArrayVar(&f.lessons, "lesson", nil, "Lesson link as 'Title=https://url' (repeatable, attached in order)")
}

// NewCourseCmd creates the course command group
func NewCourseCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "course",
		Short: "Create and edit courses",
	}

	cmd.AddCommand(newCourseCreateCmd(env))
	cmd.AddCommand(newCourseEditCmd(env))

	return cmd
}

func newCourseCreateCmd(env *Env) *cobra.Command {
	var f courseFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a course and attach its lessons",
		Example: `  khutwa course create --title "Physics 101" --price 250 \
    --lesson "Intro=https://videos.example.com/intro" \
    --lesson "Live session=https://meet.example.com/abc"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := workflows.CourseDraft{
				Course: models.CourseInput{
					Title:       f.title,
					Description: f.description,
					Grade:       f.grade,
					Branch:      f.branch,
					Price:       f.price,
				},
			}
			return runCourseSave(cmd, env, "/add-course", draft, f.lessons)
		},
	}

	f.register(cmd)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func newCourseEditCmd(env *Env) *cobra.Command {
	var f courseFlags

	cmd := &cobra.Command{
		Use:   "edit <course-id>",
		Short: "Update a course and attach more lessons",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := models.ID(args[0])
			route := "/edit-course/" + id.String()
			if _, err := requireRoute(env, route); err != nil {
				return err
			}

			current, err := env.API.GetCourse(cmd.Context(), id)
			if err != nil {
				return apiError(err)
			}

			in := models.CourseInput{
				Title:        current.Title,
				Description:  current.Description,
				Grade:        current.Grade,
				Branch:       current.Branch,
				Price:        current.Price,
				InstructorID: current.InstructorID,
			}
			flags := cmd.Flags()
			if flags.Changed("title") {
				in.Title = f.title
			}
			if flags.Changed("description") {
				in.Description = f.description
			}
			if flags.Changed("grade") {
				in.Grade = f.grade
			}
			if flags.Changed("branch") {
				in.Branch = f.branch
			}
			if flags.Changed("price") {
				in.Price = f.price
			}

			return runCourseSave(cmd, env, route, workflows.CourseDraft{ID: id, Course: in}, f.lessons)
		},
	}

	f.register(cmd)

	return cmd
}

func runCourseSave(cmd *cobra.Command, env *Env, route string, draft workflows.CourseDraft, lessons []string) error {
	out := cmd.OutOrStdout()

	outcome, err := requireRoute(env, route)
	if err != nil {
		return err
	}

	for _, l := range lessons {
		link, err := parseLesson(l)
		if err != nil {
			return err
		}
		draft.Lessons = append(draft.Lessons, link)
	}

	wizard := workflows.NewCourseWizard(env.API, env.App.Logger)
	result, err := wizard.Save(cmd.Context(), draft, outcome.Identity)
	if err != nil && (result.Created || len(result.Attached) > 0) {
		fmt.Fprintf(out, "Course %s saved, %d of %d lesson(s) attached before the failure\n",
			result.CourseID, len(result.Attached), len(draft.Lessons))
	}
	if err != nil {
		return apiError(err)
	}

	verb := "updated"
	if result.Created {
		verb = "created"
	}
	fmt.Fprintf(out, "✓ Course %s %s\n", result.CourseID, verb)
	for _, title := range result.Attached {
		fmt.Fprintf(out, "  + %s\n", title)
	}
	return nil
}

// parseLesson reads a 'Title=URL' lesson flag
func parseLesson(s string) (models.LessonLink, error) {
	title, link, ok := strings.Cut(s, "=")
	title = strings.TrimSpace(title)
	link = strings.TrimSpace(link)
	if !ok || title == "" || link == "" {
		return models.LessonLink{}, fmt.Errorf("invalid lesson %q, expected 'Title=https://url'", s)
	}
	return models.LessonLink{Title: title, LinkURL: link}, nil
}
