package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"

	"github.com/theGeekist/edgepress-sub001/common"
	"github.com/theGeekist/edgepress-sub001/pipeline"
	"github.com/theGeekist/edgepress-sub001/registry"
	"github.com/theGeekist/edgepress-sub001/state"
)

func listPacks(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	var only common.Target
	if name := cmd.String("target"); name != "" {
		t, err := common.ParseTarget(name)
		if err != nil {
			return err
		}
		only = t
	}
	return writePacks(cmd.Root().Writer, env.Pipeline, only)
}

// writePacks prints both registries, entries are ordered by id.
func writePacks(out io.Writer, p *pipeline.Pipeline, only common.Target) error {
	if p == nil {
		return fmt.Errorf("pipeline is not initialized")
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	imports := p.Imports().All()
	slices.SortFunc(imports, func(a, b registry.ImportTransform) int { return compareIDs(a.ID, b.ID) })

	fmt.Fprintf(tw, "IMPORT TRANSFORMS (%d)\n", len(imports))
	fmt.Fprintln(tw, "ID\tPRIORITY\tSOURCE BLOCKS")
	for _, t := range imports {
		names := strings.Join(t.SourceBlockNames, ", ")
		if t.CanHandle != nil {
			names = strings.TrimPrefix(names+", <predicate>", ", ")
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", t.ID, t.Priority, names)
	}

	renderers := slices.DeleteFunc(p.Renderers().All(), func(r registry.Renderer) bool {
		return only != "" && !slices.Contains(r.Targets, only)
	})
	slices.SortFunc(renderers, func(a, b registry.Renderer) int { return compareIDs(a.ID, b.ID) })

	fmt.Fprintf(tw, "\nRENDERERS (%d)\n", len(renderers))
	fmt.Fprintln(tw, "ID\tPRIORITY\tBLOCK KINDS\tTARGETS")
	for _, r := range renderers {
		targets := make([]string, 0, len(r.Targets))
		for _, t := range r.Targets {
			targets = append(targets, t.String())
		}
		kinds := strings.Join(r.BlockKinds, ", ")
		if r.CanHandle != nil {
			kinds = strings.TrimPrefix(kinds+", <predicate>", ", ")
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.ID, r.Priority, kinds, strings.Join(targets, ", "))
	}
	return tw.Flush()
}

func compareIDs(a, b string) int {
	switch {
	case a == b:
		return 0
	case natural.Less(a, b):
		return -1
	}
	return 1
}
