package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/learnhub/internal/client/models"
	"github.com/dmitrijs2005/learnhub/internal/client/services"
)

// Courses lists the catalogue.
func (a *App) Courses(ctx context.Context) error {
	courses, err := a.courses.List(ctx)
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		fmt.Fprintln(a.out, "No courses")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE")
	for _, c := range courses {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\n", c.CourseID, c.Title, c.Price)
	}
	return tw.Flush()
}

// NewCourse prompts for the course details and creates it.
func (a *App) NewCourse(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Enter title", a.out)
	if err != nil {
		return err
	}
	description, err := getSimpleText(a.reader, "Enter description", a.out)
	if err != nil {
		return err
	}
	priceText, err := getSimpleText(a.reader, "Enter price [0]", a.out)
	if err != nil {
		return err
	}

	var price float64
	if priceText != "" {
		if price, err = strconv.ParseFloat(priceText, 64); err != nil {
			return fmt.Errorf("invalid price %q", priceText)
		}
	}

	c, err := a.courses.Create(ctx, services.CreateCourseRequest{
		Title:       title,
		Description: description,
		Price:       price,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Course created: #%d %s\n", c.CourseID, c.Title)
	return nil
}

// Sections prints the sections of a course in order.
func (a *App) Sections(ctx context.Context, args string) error {
	nums, err := parseInts(args, 1)
	if err != nil {
		return fmt.Errorf("usage: sections <courseId>")
	}
	courseID := nums[0]

	sections, err := a.courses.Sections(ctx, courseID)
	if err != nil {
		return err
	}
	a.printSections(sections)
	return nil
}

// Reorder moves a section, given as 1-based positions, and prints the new
// order.
func (a *App) Reorder(ctx context.Context, args string) error {
	nums, err := parseInts(args, 3)
	if err != nil {
		return fmt.Errorf("usage: reorder <courseId> <from> <to>")
	}

	sections, err := a.courses.ReorderSections(ctx, nums[0], int(nums[1])-1, int(nums[2])-1)
	if err != nil {
		return err
	}
	a.printSections(sections)
	return nil
}

func (a *App) printSections(sections []models.Section) {
	if len(sections) == 0 {
		fmt.Fprintln(a.out, "No sections")
		return
	}
	for i, s := range sections {
		fmt.Fprintf(a.out, "%d. %s\n", i+1, s.Title)
	}
}

func parseInts(args string, n int) ([]int64, error) {
	fields := strings.Fields(args)
	if len(fields) != n {
		return nil, fmt.Errorf("want %d numbers, got %d", n, len(fields))
	}
	nums := make([]int64, n)
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, err
		}
		nums[i] = v
	}
	return nums, nil
}
