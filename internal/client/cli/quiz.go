package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/client/models"
	"github.com/dmitrijs2005/learnhub/internal/client/services"
)

const defaultQuizMinutes = 30

// Quiz runs a timed attempt: it shows every question, collects an option
// number for each and submits the answers. Questions left when time runs
// out are skipped.
func (a *App) Quiz(ctx context.Context, args string) error {
	nums, err := parseInts(args, 1)
	if err != nil {
		if nums, err = parseInts(args, 2); err != nil {
			return fmt.Errorf("usage: quiz <assessmentId> [minutes]")
		}
	}
	assessmentID := nums[0]
	minutes := int64(defaultQuizMinutes)
	if len(nums) == 2 {
		minutes = nums[1]
	}

	questions, err := a.quizzes.Questions(ctx, assessmentID)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		fmt.Fprintln(a.out, "No questions")
		return nil
	}

	attempt, err := a.quizzes.StartAttempt(ctx, assessmentID, time.Duration(minutes)*time.Minute)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Attempt %d started, %s left\n", attempt.AttemptID, attempt.Remaining().Round(time.Second))

	answers := make([]models.Answer, 0, len(questions))
	for i, q := range questions {
		if attempt.Remaining() == 0 {
			fmt.Fprintln(a.out, "Time is up")
			break
		}
		choice, err := a.askQuestion(i+1, q)
		if err != nil {
			return err
		}
		if choice >= 0 {
			answers = append(answers, models.Answer{QuestionID: q.QuestionID, SelectedOption: choice})
		}
	}

	res, err := attempt.Submit(ctx, answers)
	if errors.Is(err, services.ErrAttemptExpired) {
		return fmt.Errorf("answers not submitted: %w", err)
	}
	if err != nil {
		return err
	}

	verdict := "failed"
	if res.Passed {
		verdict = "passed"
	}
	fmt.Fprintf(a.out, "Score: %d/%d (%s)\n", res.Score, res.MaxScore, verdict)
	return nil
}

// askQuestion returns the 0-based option picked, or -1 when skipped.
func (a *App) askQuestion(n int, q models.Question) (int, error) {
	fmt.Fprintf(a.out, "%d. %s\n", n, q.Text)
	for i, opt := range q.Options {
		fmt.Fprintf(a.out, "   %d) %s\n", i+1, opt)
	}

	for {
		text, err := getSimpleText(a.reader, "Answer (empty to skip)", a.out)
		if err != nil {
			return -1, err
		}
		if text == "" {
			return -1, nil
		}
		v, err := strconv.Atoi(text)
		if err == nil && v >= 1 && v <= len(q.Options) {
			return v - 1, nil
		}
		fmt.Fprintf(a.out, "Pick a number from 1 to %d\n", len(q.Options))
	}
}
