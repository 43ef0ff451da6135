package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hourglass-app/hourglass/internal/backend"
)

// parseFact reads "activity@category, description".
func parseFact(s string) backend.Fact {
	var f backend.Fact
	head, desc, _ := strings.Cut(s, ",")
	f.Description = strings.TrimSpace(desc)

	if i := strings.LastIndex(head, "@"); i >= 0 {
		f.Category = strings.TrimSpace(head[i+1:])
		head = head[:i]
	}
	f.Activity = strings.TrimSpace(head)
	return f
}

func label(f backend.Fact) string {
	return backend.Activity{Name: f.Activity, Category: f.Category}.String()
}

func (c *cli) runStart(args []string) error {
	if len(args) == 0 {
		return usageError("start needs an activity")
	}

	a, err := c.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	f := parseFact(strings.Join(args, " "))
	if err := a.Control.Start(f, c.now()); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Started %s\n", label(f))
	return nil
}

func (c *cli) runStop() error {
	a, err := c.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := a.Control.Stop(context.Background(), c.now())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Stopped %s after %s\n", label(f), f.Duration().Round(time.Minute))
	return nil
}

func (c *cli) runCurrent() error {
	a, err := c.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	f, ok, err := a.Control.Current()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(c.stdout, "No activity running")
		return nil
	}
	fmt.Fprintf(c.stdout, "%s since %s (%s)\n",
		label(f), f.Start.Format("15:04"), c.now().Sub(f.Start).Round(time.Minute))
	return nil
}

func (c *cli) runToday() error {
	a, err := c.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	now := c.now()
	facts, err := a.Control.FactsForDay(context.Background(), a.Control.TrackingDay(now))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	var total time.Duration
	for _, f := range facts {
		total += f.Duration()
		fmt.Fprintf(tw, "%s-%s\t%s\t%s\t%s\n",
			f.Start.Local().Format("15:04"), f.End.Local().Format("15:04"),
			f.Duration().Round(time.Minute), label(f), f.Description)
	}
	if f, ok, err := a.Control.Current(); err == nil && ok {
		d := now.Sub(f.Start)
		total += d
		fmt.Fprintf(tw, "%s-\t%s\t%s\t%s\n",
			f.Start.Local().Format("15:04"), d.Round(time.Minute), label(f), f.Description)
	}
	fmt.Fprintf(tw, "total\t%s\t\t\n", total.Round(time.Minute))
	return tw.Flush()
}

// runActivities prints completion candidates as configured in [Frontend].
func (c *cli) runActivities() error {
	a, err := c.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.Manager.Current()
	acts, err := a.Control.RecentActivities(context.Background(), c.now(), cfg.AutocompleteActivitiesRange)
	if err != nil {
		return err
	}
	for _, act := range acts {
		if cfg.AutocompleteSplitActivity {
			fmt.Fprintf(c.stdout, "%s\t%s\n", act.Name, act.Category)
		} else {
			fmt.Fprintln(c.stdout, act.String())
		}
	}
	return nil
}
