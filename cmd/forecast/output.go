package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/feforecast/internal/forecast"
	"github.com/cory-johannsen/feforecast/internal/forecastserver"
)

// writeJSON prints forecasts in the same layout the daemon returns them.
func writeJSON(w io.Writer, forecasts []forecast.Forecast) error {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(forecasts))}
	for _, f := range forecasts {
		s, err := forecastserver.ForecastToStruct(f)
		if err != nil {
			return err
		}
		list.Values = append(list.Values, structpb.NewStructValue(s))
	}
	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding forecasts: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func writeText(w io.Writer, forecasts []forecast.Forecast) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, f := range forecasts {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		kind := "exact"
		if !f.Exact() {
			kind = fmt.Sprintf("simulated, %d trials", f.Trials)
		}
		fmt.Fprintf(tw, "%s\t%s, %s\n", f.Matchup.Label(), f.System, kind)
		fmt.Fprintf(tw, "attacker dies\t%6.2f%%\n", 100*f.Summary.AttackerDies)
		fmt.Fprintf(tw, "defender dies\t%6.2f%%\n", 100*f.Summary.DefenderDies)
		fmt.Fprintf(tw, "both survive\t%6.2f%%\n", 100*f.Summary.BothSurvive)
		fmt.Fprintf(tw, "expected hp\t%.2f / %.2f\n", f.Summary.ExpectedAtkHP, f.Summary.ExpectedDefHP)
		fmt.Fprintln(tw, "prob\tatk hp\tdef hp")
		for _, o := range f.Outcomes {
			fmt.Fprintf(tw, "%.6f\t%d\t%d\n", o.Prob, o.AtkHP, o.DefHP)
		}
	}
	return tw.Flush()
}
