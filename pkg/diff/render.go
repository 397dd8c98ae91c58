package diff

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/newtron-network/newtgrade/pkg/cli"
	"github.com/newtron-network/newtgrade/pkg/model"
)

// DocumentReader reads one persisted category document.
type DocumentReader interface {
	ReadCategory(ctx context.Context, host string, phase model.Phase, c model.Category) ([]byte, error)
}

// CompareStored diffs the stored precheck and postcheck documents of host.
// Categories are read independently, so one unreadable document only
// affects its own report.
func CompareStored(ctx context.Context, r DocumentReader, host string) []*Report {
	var reports []*Report
	for _, c := range model.Categories {
		if !c.Diffable() {
			continue
		}
		before, err := r.ReadCategory(ctx, host, model.PhasePrecheck, c)
		if err != nil {
			reports = append(reports, &Report{Category: c, Err: err})
			continue
		}
		after, err := r.ReadCategory(ctx, host, model.PhasePostcheck, c)
		if err != nil {
			reports = append(reports, &Report{Category: c, Err: err})
			continue
		}
		reports = append(reports, Compare(c, before, after))
	}
	return reports
}

// Render prints the category-by-category report and returns the number of
// categories that changed or failed to compare.
func Render(w io.Writer, reports []*Report) int {
	var flagged int
	for _, r := range reports {
		fmt.Fprintf(w, "\n%s\n", cli.Bold(r.Category.Title()))
		switch {
		case r.Err != nil:
			flagged++
			fmt.Fprintf(w, "  %s %v\n", cli.Red("error:"), r.Err)
		case r.Empty():
			fmt.Fprintf(w, "  %s\n", cli.Green("no differences found"))
		default:
			flagged++
			t := cli.NewTableWriter(w, "CHANGE", "PATH", "BEFORE", "AFTER").WithPrefix("  ")
			for _, c := range r.Changes {
				t.Row(colorType(c.Type), c.PathString(), formatValue(c.Old), formatValue(c.New))
			}
			t.Flush()
		}
	}

	fmt.Fprintln(w)
	if flagged == 0 {
		fmt.Fprintln(w, cli.Green(fmt.Sprintf("No differences in %d categories", len(reports))))
	} else {
		fmt.Fprintln(w, cli.Red(fmt.Sprintf("%d of %d categories differ", flagged, len(reports))))
	}
	return flagged
}

func colorType(t ChangeType) string {
	switch t {
	case ChangeAdded:
		return cli.Green(string(t))
	case ChangeRemoved:
		return cli.Red(string(t))
	default:
		return cli.Yellow(string(t))
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return t
	case json.Number:
		return t.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
