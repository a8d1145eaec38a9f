package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) assignSession(id int64) error {
	assignments, stats, err := cli.kholleSvc.Assign(context.Background(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "session %d: %d assignments, %.1f%% first choices, %d without preference\n",
		id, len(assignments), stats.FirstChoiceRate, stats.WithoutPreference)
	return nil
}

func (cli *commandLine) assignUpcoming() error {
	report, err := cli.job.Run(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d processed, %d skipped, %d errors\n", report.Processed, report.Skipped, report.Errors)
	return nil
}
