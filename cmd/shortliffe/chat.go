package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/shortliffe/pkg/shortliffe"
)

const chatHelp = `Type symptoms to query, for example: cough, fever
Commands:
  :facts                      list facts
  :rules                      list rules
  :fact NAME CF               add or overwrite a fact
  :rule CONDITIONS => THEN CF add a rule
  :infer                      run forward chaining
  :explain FACT               show how FACT was inferred by the last :infer
  :save [NAME]                store the knowledge base
  :help                       this text
  :quit                       exit (also Ctrl+D)`

func newChatCmd(a *app) *cobra.Command {
	var kbName string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive session over one knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withSystem(ctx, kbName, func(sys *shortliffe.System) error {
				s := &chatSession{ctx: ctx, sys: sys, kb: kbName, out: cmd.OutOrStdout()}
				return s.run(cmd.InOrStdin())
			})
		},
	}
	cmd.Flags().StringVarP(&kbName, "kb", "k", "", "Knowledge base to load first")
	return cmd
}

type chatSession struct {
	ctx context.Context
	sys *shortliffe.System
	kb  string
	out io.Writer

	lastExplain func(string) string
}

func (s *chatSession) run(in io.Reader) error {
	fmt.Fprintln(s.out, "===========================================")
	fmt.Fprintln(s.out, "  shortliffe")
	fmt.Fprintln(s.out, "  Certainty-factor expert system")
	fmt.Fprintln(s.out, "===========================================")
	if s.kb != "" {
		fmt.Fprintf(s.out, "Knowledge base: %s\n", s.kb)
	}
	fmt.Fprintln(s.out, "Type :help for commands.")
	fmt.Fprintln(s.out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quit := s.handle(line); quit {
			break
		}
	}

	fmt.Fprintln(s.out, "\nGoodbye!")
	return scanner.Err()
}

// handle executes one input line and reports whether the session should end.
func (s *chatSession) handle(line string) bool {
	if !strings.HasPrefix(line, ":") {
		printReport(s.out, s.sys.Query(line))
		return false
	}

	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch command {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		fmt.Fprintln(s.out, chatHelp)
	case ":facts":
		printSnapshot(s.out, s.sys.State())
	case ":rules":
		for i, r := range s.sys.Rules() {
			fmt.Fprintf(s.out, "  %d. %s\n", i, r)
		}
	case ":fact":
		name, v, err := splitTrailingCF(rest)
		if err == nil {
			_, err = s.sys.AddFact(name, v)
		}
		s.report(err)
	case ":rule":
		cond, then, ok := strings.Cut(rest, "=>")
		if !ok {
			fmt.Fprintln(s.out, "Error: expected CONDITIONS => THEN CF")
			return false
		}
		concl, v, err := splitTrailingCF(then)
		if err == nil {
			_, err = s.sys.AddRule(strings.TrimSpace(cond), concl, v)
		}
		s.report(err)
	case ":infer":
		res := s.sys.Infer()
		s.lastExplain = res.Explain
		printResult(s.out, res)
	case ":explain":
		if s.lastExplain == nil {
			fmt.Fprintln(s.out, "Run :infer first.")
			return false
		}
		fmt.Fprint(s.out, s.lastExplain(rest))
		fmt.Fprintln(s.out)
	case ":save":
		name := rest
		if name == "" {
			name = s.kb
		}
		if name == "" {
			fmt.Fprintln(s.out, "Error: no knowledge base name")
			return false
		}
		stored, err := s.sys.SaveKnowledgeBase(s.ctx, name, nil)
		if err != nil {
			s.report(err)
			return false
		}
		s.kb = stored
		fmt.Fprintf(s.out, "Saved %s\n", stored)
	default:
		fmt.Fprintf(s.out, "Unknown command %s. Type :help.\n", command)
	}
	return false
}

func (s *chatSession) report(err error) {
	if err != nil {
		fmt.Fprintln(s.out, "Error:", err)
		return
	}
	fmt.Fprintln(s.out, "OK")
}

// splitTrailingCF splits "some fact name 0.8" into the name and the number.
func splitTrailingCF(s string) (string, float64, error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return "", 0, fmt.Errorf("expected NAME CF, got %q", s)
	}
	v, err := strconv.ParseFloat(s[i+1:], 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid certainty factor %q", s[i+1:])
	}
	return strings.TrimSpace(s[:i]), v, nil
}
