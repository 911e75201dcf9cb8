package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cognicore/shortliffe/pkg/shortliffe/cf"
	"github.com/cognicore/shortliffe/pkg/shortliffe/inference"
	"github.com/cognicore/shortliffe/pkg/shortliffe/kb"
	"github.com/cognicore/shortliffe/pkg/shortliffe/query"
)

func printResult(w io.Writer, res inference.Result) {
	names := res.InferredNames()
	if len(names) == 0 {
		fmt.Fprintln(w, "Nothing new inferred.")
	} else {
		fmt.Fprintln(w, "Inferred:")
		for _, name := range names {
			v := res.Inferred[name]
			fmt.Fprintf(w, "  %s: %.4f (%s)\n", name, v, cf.LevelOf(v))
		}
	}

	fmt.Fprintf(w, "Passes: %d", res.Passes)
	if !res.Fixpoint {
		fmt.Fprint(w, " (stopped before fixpoint)")
	}
	fmt.Fprintln(w)

	for _, s := range res.Skipped {
		fmt.Fprintf(w, "Skipped rule %d (=> %s): %s\n", s.RuleIndex, s.Then, s.Error)
	}
}

func printReport(w io.Writer, rep query.Report) {
	if !rep.Success {
		fmt.Fprintln(w, "Error:", rep.Error)
		return
	}

	fmt.Fprintln(w, "Matched:")
	for _, item := range rep.Items {
		prefix := ""
		if item.Negated {
			prefix = "not "
		}
		if item.MatchedFact == nil {
			fmt.Fprintf(w, "  %s%s -> (no match)\n", prefix, item.Input)
			continue
		}
		fmt.Fprintf(w, "  %s%s -> %s (%.2f)\n", prefix, item.Input, *item.MatchedFact, item.CF)
	}

	if len(rep.Conclusions) == 0 {
		fmt.Fprintln(w, "No conclusions.")
		for _, nm := range rep.NearMisses {
			fmt.Fprintf(w, "  close to %s: missing %s (%.0f%% covered)\n",
				nm.Then, strings.Join(nm.Missing, ", "), nm.Coverage*100)
		}
		return
	}

	fmt.Fprintln(w, "Conclusions:")
	for _, c := range rep.Conclusions {
		fmt.Fprintf(w, "  %s: %.4f (%s)\n", c.Fact, c.CF, c.Level)
		if c.Explanation != "" {
			fmt.Fprintf(w, "    %s\n", c.Explanation)
		}
	}
}

func printSnapshot(w io.Writer, snap kb.Snapshot) {
	names := make([]string, 0, len(snap.Facts))
	for name := range snap.Facts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "Facts (%d):\n", len(names))
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %.2f\n", name, snap.Facts[name])
	}
	fmt.Fprintf(w, "Rules (%d):\n", len(snap.Rules))
	for i, r := range snap.Rules {
		fmt.Fprintf(w, "  %d. %s\n", i, r)
	}
}
